package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

const isoLayout = time.RFC3339

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	SubjectID   uint     `json:"subject_id" validate:"required,gt=0"`
	ClassID     uint     `json:"class_id" validate:"required,gt=0"`
	TeacherID   *uint    `json:"teacher_id" validate:"omitempty,gt=0"`
	DueDate     string   `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	TotalMarks  int      `json:"total_marks" validate:"required,gte=1"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,max=2048"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	SubjectID   *uint     `json:"subject_id" validate:"omitempty,gt=0"`
	ClassID     *uint     `json:"class_id" validate:"omitempty,gt=0"`
	DueDate     *string   `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	TotalMarks  *int      `json:"total_marks" validate:"omitempty,gte=1"`
	Attachments *[]string `json:"attachments" validate:"omitempty,dive,max=2048"`
}

// AssignmentListQuery captures list filters taken from the query string.
type AssignmentListQuery struct {
	ClassID   uint   `query:"class_id"`
	SubjectID uint   `query:"subject_id"`
	TeacherID uint   `query:"teacher_id"`
	Active    string `query:"active" validate:"omitempty,oneof=true false all"`
	Search    string `query:"search"`
	Sort      string `query:"sort"`
	Page      int    `query:"page" validate:"omitempty,gte=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID            uint             `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	SubjectID     uint             `json:"subject_id"`
	ClassID       uint             `json:"class_id"`
	TeacherID     uint             `json:"teacher_id"`
	DueDate       time.Time        `json:"due_date"`
	TotalMarks    int              `json:"total_marks"`
	Attachments   []string         `json:"attachments"`
	IsActive      bool             `json:"is_active"`
	Status        models.DueStatus `json:"status"`
	DaysRemaining int              `json:"days_remaining"`
	Stats         *models.Stats    `json:"stats,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model into a DTO, deriving the due status at now.
func NewAssignmentResponse(model models.Assignment, now time.Time) AssignmentResponse {
	classification := model.Classify(now)
	attachments := make([]string, 0, len(model.Attachments))
	attachments = append(attachments, model.Attachments...)

	return AssignmentResponse{
		ID:            model.ID,
		Title:         model.Title,
		Description:   model.Description,
		SubjectID:     model.SubjectID,
		ClassID:       model.ClassID,
		TeacherID:     model.TeacherID,
		DueDate:       model.DueDate,
		TotalMarks:    model.TotalMarks,
		Attachments:   attachments,
		IsActive:      model.IsActive,
		Status:        classification.Status,
		DaysRemaining: classification.DaysRemaining,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// ParseDueDate parses an RFC3339 timestamp into UTC.
func ParseDueDate(value string) (time.Time, error) {
	parsed, err := time.Parse(isoLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
