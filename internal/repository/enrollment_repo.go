package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// EnrollmentRepository reads class rosters.
type EnrollmentRepository interface {
	StudentIDsByClass(ctx context.Context, classID uint) ([]uint, error)
	StudentIDsByClasses(ctx context.Context, classIDs []uint) (map[uint][]uint, error)
	Enroll(ctx context.Context, classID uint, studentIDs ...uint) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository builds the roster repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) StudentIDsByClass(ctx context.Context, classID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.ClassEnrollment{}).
		Where("class_id = ?", classID).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *enrollmentRepository) StudentIDsByClasses(ctx context.Context, classIDs []uint) (map[uint][]uint, error) {
	rosters := make(map[uint][]uint, len(classIDs))
	if len(classIDs) == 0 {
		return rosters, nil
	}

	var rows []models.ClassEnrollment
	if err := r.db.WithContext(ctx).
		Where("class_id IN ?", classIDs).
		Order("student_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		rosters[row.ClassID] = append(rosters[row.ClassID], row.StudentID)
	}
	return rosters, nil
}

func (r *enrollmentRepository) Enroll(ctx context.Context, classID uint, studentIDs ...uint) error {
	if len(studentIDs) == 0 {
		return nil
	}

	rows := make([]models.ClassEnrollment, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		rows = append(rows, models.ClassEnrollment{ClassID: classID, StudentID: studentID})
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}
