package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

const (
	// MaxTitleLength bounds assignment titles, counted in characters.
	MaxTitleLength = 200
	// MaxDescriptionLength bounds assignment descriptions, counted in characters.
	MaxDescriptionLength = 2000
)

// Assignment is a graded task issued to a class for a subject. It owns the
// submissions made against it; they are never queried independently.
type Assignment struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	SubjectID   uint                        `gorm:"not null;index" json:"subject_id"`
	ClassID     uint                        `gorm:"not null;index" json:"class_id"`
	TeacherID   uint                        `gorm:"not null;index" json:"teacher_id"`
	DueDate     time.Time                   `gorm:"not null;index" json:"due_date"`
	TotalMarks  int                         `gorm:"not null" json:"total_marks"`
	Attachments datatypes.JSONSlice[string] `gorm:"type:json" json:"attachments"`
	IsActive    bool                        `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	Submissions []Submission                `gorm:"foreignKey:AssignmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	studentIndex map[uint]int
}

// AssignmentInput carries the attributes needed to create an assignment.
type AssignmentInput struct {
	Title       string
	Description string
	SubjectID   uint
	ClassID     uint
	TeacherID   uint
	DueDate     time.Time
	TotalMarks  int
	Attachments []string
}

// AssignmentChanges describes a partial metadata update. Nil fields are left untouched.
type AssignmentChanges struct {
	Title       *string
	Description *string
	SubjectID   *uint
	ClassID     *uint
	DueDate     *time.Time
	TotalMarks  *int
	Attachments *[]string
}

// GradeInput describes a grading action on one student's submission.
type GradeInput struct {
	StudentID uint
	Marks     float64
	Feedback  string
	GraderID  uint
	// ExpectedVersion, when set, must match the submission's current version.
	ExpectedVersion *int
}

// NewAssignment validates the input and returns an active assignment.
// A due date in the past is accepted; see DueDateWarning.
func NewAssignment(input AssignmentInput) (*Assignment, error) {
	problems := &ValidationError{}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	validateTitle(problems, title)
	validateDescription(problems, description)
	validateTotalMarks(problems, input.TotalMarks)

	if input.DueDate.IsZero() {
		problems.add("due_date", "must be a valid timestamp")
	}
	if input.SubjectID == 0 {
		problems.add("subject_id", "is required")
	}
	if input.ClassID == 0 {
		problems.add("class_id", "is required")
	}
	if input.TeacherID == 0 {
		problems.add("teacher_id", "is required")
	}

	if err := problems.orNil(); err != nil {
		return nil, err
	}

	return &Assignment{
		Title:       title,
		Description: description,
		SubjectID:   input.SubjectID,
		ClassID:     input.ClassID,
		TeacherID:   input.TeacherID,
		DueDate:     input.DueDate.UTC(),
		TotalMarks:  input.TotalMarks,
		Attachments: cleanAttachments(input.Attachments),
		IsActive:    true,
	}, nil
}

// ApplyChanges updates metadata in place and returns the names of the fields
// that changed. Total marks cannot change once any submission is graded.
func (a *Assignment) ApplyChanges(changes AssignmentChanges) ([]string, error) {
	problems := &ValidationError{}
	changed := make([]string, 0)

	if changes.Title != nil {
		validateTitle(problems, strings.TrimSpace(*changes.Title))
	}
	if changes.Description != nil {
		validateDescription(problems, strings.TrimSpace(*changes.Description))
	}
	if changes.TotalMarks != nil {
		validateTotalMarks(problems, *changes.TotalMarks)
	}
	if changes.DueDate != nil && changes.DueDate.IsZero() {
		problems.add("due_date", "must be a valid timestamp")
	}
	if changes.SubjectID != nil && *changes.SubjectID == 0 {
		problems.add("subject_id", "is required")
	}
	if changes.ClassID != nil && *changes.ClassID == 0 {
		problems.add("class_id", "is required")
	}
	if err := problems.orNil(); err != nil {
		return nil, err
	}

	if changes.TotalMarks != nil && *changes.TotalMarks != a.TotalMarks && a.HasGradedSubmission() {
		return nil, fmt.Errorf("total_marks: %w", ErrImmutableField)
	}

	if changes.Title != nil {
		if title := strings.TrimSpace(*changes.Title); title != a.Title {
			a.Title = title
			changed = append(changed, "title")
		}
	}
	if changes.Description != nil {
		if description := strings.TrimSpace(*changes.Description); description != a.Description {
			a.Description = description
			changed = append(changed, "description")
		}
	}
	if changes.SubjectID != nil && *changes.SubjectID != a.SubjectID {
		a.SubjectID = *changes.SubjectID
		changed = append(changed, "subject_id")
	}
	if changes.ClassID != nil && *changes.ClassID != a.ClassID {
		a.ClassID = *changes.ClassID
		changed = append(changed, "class_id")
	}
	if changes.DueDate != nil && !changes.DueDate.Equal(a.DueDate) {
		a.DueDate = changes.DueDate.UTC()
		changed = append(changed, "due_date")
	}
	if changes.TotalMarks != nil && *changes.TotalMarks != a.TotalMarks {
		a.TotalMarks = *changes.TotalMarks
		changed = append(changed, "total_marks")
	}
	if changes.Attachments != nil {
		if attachments := cleanAttachments(*changes.Attachments); !sameAttachments(attachments, a.Attachments) {
			a.Attachments = attachments
			changed = append(changed, "attachments")
		}
	}

	return changed, nil
}

// Deactivate soft-deletes the assignment. Submissions are kept so grading
// history and statistics stay computable.
func (a *Assignment) Deactivate() {
	a.IsActive = false
}

// Classify returns the due date classification at now.
func (a *Assignment) Classify(now time.Time) DueClassification {
	return ClassifyDueDate(a.DueDate, now)
}

// CurrentStatus returns the derived assignment status at now.
func (a *Assignment) CurrentStatus(now time.Time) DueStatus {
	return a.Classify(now).Status
}

// DueDateWarning returns a non-empty message when the due date already passed.
func (a *Assignment) DueDateWarning(now time.Time) string {
	if a.Classify(now).IsOverdue() {
		return "due date is in the past"
	}
	return ""
}

// HasGradedSubmission reports whether any owned submission has been graded.
func (a *Assignment) HasGradedSubmission() bool {
	for _, submission := range a.Submissions {
		if submission.IsGraded() {
			return true
		}
	}
	return false
}

// Submit records a student's submission. A first submission creates a record;
// later ones overwrite it and re-derive lateness, unless it was already graded.
// The returned pointer addresses the owned record and is valid until the next Submit.
func (a *Assignment) Submit(studentID uint, content string, attachments []string, now time.Time) (*Submission, bool, error) {
	if studentID == 0 {
		return nil, false, NewValidationError(FieldError{Field: "student_id", Message: "is required"})
	}
	if !a.IsActive {
		return nil, false, fmt.Errorf("%w: assignment %d is inactive", ErrValidation, a.ID)
	}

	if idx, ok := a.indexOf(studentID); ok {
		existing := &a.Submissions[idx]
		if existing.IsGraded() {
			return nil, false, fmt.Errorf("student %d: %w", studentID, ErrSubmissionLocked)
		}
		existing.Content = strings.TrimSpace(content)
		existing.Attachments = cleanAttachments(attachments)
		existing.stamp(a.DueDate, now)
		existing.Version++
		return existing, false, nil
	}

	submission := Submission{
		AssignmentID: a.ID,
		StudentID:    studentID,
		Content:      strings.TrimSpace(content),
		Attachments:  cleanAttachments(attachments),
		Version:      1,
	}
	submission.stamp(a.DueDate, now)

	a.Submissions = append(a.Submissions, submission)
	a.studentIndex[studentID] = len(a.Submissions) - 1

	return &a.Submissions[len(a.Submissions)-1], true, nil
}

// Grade sets marks and feedback on a student's submission and marks it graded.
// Re-grading overwrites the previous grade; lateness is never re-derived.
func (a *Assignment) Grade(input GradeInput, now time.Time) (*Submission, error) {
	idx, ok := a.indexOf(input.StudentID)
	if !ok {
		return nil, fmt.Errorf("submission for student %d: %w", input.StudentID, ErrNotFound)
	}

	if math.IsNaN(input.Marks) || input.Marks < 0 || input.Marks > float64(a.TotalMarks) {
		return nil, fmt.Errorf("%w: marks %.2f not within [0, %d]", ErrOutOfRange, input.Marks, a.TotalMarks)
	}

	submission := &a.Submissions[idx]
	if input.ExpectedVersion != nil && *input.ExpectedVersion != submission.Version {
		return nil, fmt.Errorf("submission %d at version %d, expected %d: %w", submission.ID, submission.Version, *input.ExpectedVersion, ErrConflict)
	}

	marks := input.Marks
	gradedAt := now
	grader := input.GraderID

	submission.Marks = &marks
	submission.Feedback = strings.TrimSpace(input.Feedback)
	submission.Status = SubmissionStatusGraded
	submission.GradedBy = &grader
	submission.GradedAt = &gradedAt
	submission.Version++

	return submission, nil
}

// SubmissionFor returns the submission made by the student.
func (a *Assignment) SubmissionFor(studentID uint) (Submission, error) {
	idx, ok := a.indexOf(studentID)
	if !ok {
		return Submission{}, fmt.Errorf("submission for student %d: %w", studentID, ErrNotFound)
	}
	return a.Submissions[idx], nil
}

// SubmissionList returns the submissions in insertion order.
func (a *Assignment) SubmissionList() []Submission {
	list := make([]Submission, len(a.Submissions))
	copy(list, a.Submissions)
	return list
}

// ComputeStats derives statistics from the current submissions. Nothing is cached.
func (a *Assignment) ComputeStats(enrolledStudentIDs []uint, now time.Time) Stats {
	return StatsFromTally(TallySubmissions(a.Submissions), CountDistinct(enrolledStudentIDs), a.DueDate, now)
}

func (a *Assignment) indexOf(studentID uint) (int, bool) {
	if a.studentIndex == nil || len(a.studentIndex) != len(a.Submissions) {
		a.studentIndex = make(map[uint]int, len(a.Submissions))
		for i, submission := range a.Submissions {
			a.studentIndex[submission.StudentID] = i
		}
	}
	idx, ok := a.studentIndex[studentID]
	return idx, ok
}

func validateTitle(problems *ValidationError, title string) {
	switch {
	case title == "":
		problems.add("title", "must not be empty")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		problems.add("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
}

func validateDescription(problems *ValidationError, description string) {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		problems.add("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
}

func validateTotalMarks(problems *ValidationError, totalMarks int) {
	if totalMarks < 1 {
		problems.add("total_marks", "must be at least 1")
	}
}

func sameAttachments(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cleanAttachments(refs []string) datatypes.JSONSlice[string] {
	cleaned := make(datatypes.JSONSlice[string], 0, len(refs))
	for _, ref := range refs {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
