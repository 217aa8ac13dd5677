package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// SubmitRequest is the payload a student sends to submit or resubmit work.
// StudentID is only honoured for admins submitting on behalf of a student.
type SubmitRequest struct {
	StudentID   *uint    `json:"student_id" validate:"omitempty,gt=0"`
	Content     string   `json:"content" validate:"max=20000"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,max=2048"`
}

// GradeSubmissionRequest grades a submission.
type GradeSubmissionRequest struct {
	Marks           *float64 `json:"marks" validate:"required"`
	Feedback        string   `json:"feedback" validate:"max=5000"`
	ExpectedVersion *int     `json:"expected_version" validate:"omitempty,gte=1"`
}

// SubmissionListQuery pages through an assignment's submissions.
type SubmissionListQuery struct {
	Status   string `query:"status" validate:"omitempty,oneof=submitted late graded"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=200"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                    `json:"id"`
	AssignmentID uint                    `json:"assignment_id"`
	StudentID    uint                    `json:"student_id"`
	SubmittedAt  time.Time               `json:"submitted_at"`
	Content      string                  `json:"content"`
	Attachments  []string                `json:"attachments"`
	Status       models.SubmissionStatus `json:"status"`
	IsLate       bool                    `json:"is_late"`
	Marks        *float64                `json:"marks"`
	Feedback     string                  `json:"feedback"`
	GradedBy     *uint                   `json:"graded_by"`
	GradedAt     *time.Time              `json:"graded_at"`
	Version      int                     `json:"version"`
	Created      bool                    `json:"created,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// SubmissionListResponse wraps a page of submissions.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Marks    float64   `json:"marks"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	attachments := make([]string, 0, len(model.Attachments))
	attachments = append(attachments, model.Attachments...)

	return SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		SubmittedAt:  model.SubmittedAt,
		Content:      model.Content,
		Attachments:  attachments,
		Status:       model.Status,
		IsLate:       model.IsLate,
		Marks:        model.Marks,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
		Version:      model.Version,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// NewGradeHistoryResponseSlice serializes grade history rows.
func NewGradeHistoryResponseSlice(history []models.SubmissionGradeHistory) []SubmissionGradeHistoryResponse {
	responses := make([]SubmissionGradeHistoryResponse, 0, len(history))
	for _, entry := range history {
		responses = append(responses, SubmissionGradeHistoryResponse{
			Marks:    entry.Marks,
			Feedback: entry.Feedback,
			GradedBy: entry.GradedBy,
			GradedAt: entry.GradedAt,
		})
	}
	return responses
}
