package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus tracks where a submission is in its grading lifecycle.
type SubmissionStatus string

const (
	// SubmissionStatusSubmitted indicates an on-time submission awaiting grading.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusLate indicates a submission received after the due date, awaiting grading.
	SubmissionStatusLate SubmissionStatus = "late"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded SubmissionStatus = "graded"
)

// Submission is one student's response to an assignment. Each student owns at
// most one submission per assignment.
type Submission struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	AssignmentID uint                        `gorm:"not null;uniqueIndex:idx_submissions_assignment_student" json:"assignment_id"`
	StudentID    uint                        `gorm:"not null;uniqueIndex:idx_submissions_assignment_student" json:"student_id"`
	SubmittedAt  time.Time                   `gorm:"not null" json:"submitted_at"`
	Content      string                      `gorm:"type:text" json:"content"`
	Attachments  datatypes.JSONSlice[string] `gorm:"type:json" json:"attachments"`
	Status       SubmissionStatus            `gorm:"size:16;not null;index" json:"status"`
	IsLate       bool                        `gorm:"not null;default:false" json:"is_late"`
	Marks        *float64                    `json:"marks"`
	Feedback     string                      `gorm:"type:text" json:"feedback"`
	GradedBy     *uint                       `json:"graded_by"`
	GradedAt     *time.Time                  `json:"graded_at"`
	Version      int                         `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	History      []SubmissionGradeHistory    `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"-"`
}

// SubmissionGradeHistory records every grading action applied to a submission.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Marks        float64   `gorm:"not null" json:"marks"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}

// TableName overrides the pluralised default.
func (SubmissionGradeHistory) TableName() string { return "submission_grade_history" }

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// stamp records the submission time and derives lateness against the due date.
// Lateness uses the same boundary as the due date classifier.
func (s *Submission) stamp(dueDate, submittedAt time.Time) {
	s.SubmittedAt = submittedAt
	s.IsLate = ClassifyDueDate(dueDate, submittedAt).IsOverdue()
	if s.IsLate {
		s.Status = SubmissionStatusLate
	} else {
		s.Status = SubmissionStatusSubmitted
	}
}
