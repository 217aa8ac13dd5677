package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// SubmissionPage selects a window of an assignment's submissions.
type SubmissionPage struct {
	Status   *models.SubmissionStatus
	Page     int
	PageSize int
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID uint, page SubmissionPage) ([]models.Submission, int64, error)
	ListByAssignments(ctx context.Context, assignmentIDs []uint) ([]models.Submission, error)
	ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error)
	Create(ctx context.Context, submission *models.Submission) error
	// Update persists the submission only when the stored version still equals previousVersion.
	Update(ctx context.Context, submission *models.Submission, previousVersion int) error
	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
	WithTx(tx *gorm.DB) SubmissionRepository
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) WithTx(tx *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: tx}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint, page SubmissionPage) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).Where("assignment_id = ?", assignmentID)
	if page.Status != nil {
		query = query.Where("status = ?", *page.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page.PageSize > 0 {
		current := page.Page
		if current <= 0 {
			current = 1
		}
		query = query.Offset((current - 1) * page.PageSize).Limit(page.PageSize)
	}

	var submissions []models.Submission
	if err := query.Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) ListByAssignments(ctx context.Context, assignmentIDs []uint) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return []models.Submission{}, nil
	}

	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id IN ?", assignmentIDs).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	var history []models.SubmissionGradeHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("graded_at DESC").
		Order("id DESC").
		Find(&history).Error; err != nil {
		return nil, err
	}

	return history, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("submission for student %d: %w", submission.StudentID, models.ErrConflict)
	}
	return err
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission, previousVersion int) error {
	result := r.db.WithContext(ctx).
		Model(submission).
		Where("version = ?", previousVersion).
		Select("submitted_at", "content", "attachments", "status", "is_late", "marks", "feedback", "graded_by", "graded_at", "version", "updated_at").
		Updates(submission)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("submission %d changed concurrently: %w", submission.ID, models.ErrConflict)
	}
	return nil
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}
