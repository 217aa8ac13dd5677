package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedAssignment(t *testing.T, db *gorm.DB, title string, classID uint, due time.Time) models.Assignment {
	t.Helper()
	assignment, err := models.NewAssignment(models.AssignmentInput{
		Title:      title,
		SubjectID:  1,
		ClassID:    classID,
		TeacherID:  5,
		DueDate:    due,
		TotalMarks: 100,
	})
	require.NoError(t, err)
	require.NoError(t, NewAssignmentRepository(db).Create(context.Background(), assignment))
	return *assignment
}

func TestAssignmentRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	seedAssignment(t, db, "Graph Theory", 1, base.Add(48*time.Hour))
	seedAssignment(t, db, "Sorting", 1, base.Add(24*time.Hour))
	inactive := seedAssignment(t, db, "Graphs Advanced", 2, base.Add(72*time.Hour))
	inactive.Deactivate()
	require.NoError(t, repo.Update(ctx, &inactive))

	items, total, err := repo.ListWithFilter(ctx, AssignmentFilter{Search: "graph"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Graph Theory", items[0].Title)

	active := true
	items, total, err = repo.ListWithFilter(ctx, AssignmentFilter{Active: &active, PageSize: 1, Page: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	require.Equal(t, "Sorting", items[0].Title, "default order is by due date")

	classID := uint(2)
	items, _, err = repo.ListWithFilter(ctx, AssignmentFilter{ClassID: &classID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].IsActive)
}

func TestSubmissionRepositoryRejectsDuplicateStudent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	assignment := seedAssignment(t, db, "Lab", 1, time.Now().Add(time.Hour))
	repo := NewSubmissionRepository(db)

	first := models.Submission{AssignmentID: assignment.ID, StudentID: 3, SubmittedAt: time.Now(), Status: models.SubmissionStatusSubmitted, Version: 1}
	require.NoError(t, repo.Create(ctx, &first))

	duplicate := models.Submission{AssignmentID: assignment.ID, StudentID: 3, SubmittedAt: time.Now(), Status: models.SubmissionStatusSubmitted, Version: 1}
	err := repo.Create(ctx, &duplicate)
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestSubmissionRepositoryUpdateChecksVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	assignment := seedAssignment(t, db, "Lab", 1, time.Now().Add(time.Hour))
	repo := NewSubmissionRepository(db)

	submission := models.Submission{AssignmentID: assignment.ID, StudentID: 3, SubmittedAt: time.Now(), Status: models.SubmissionStatusSubmitted, Version: 1}
	require.NoError(t, repo.Create(ctx, &submission))

	marks := 40.0
	submission.Marks = &marks
	submission.Status = models.SubmissionStatusGraded
	submission.Version = 2
	require.NoError(t, repo.Update(ctx, &submission, 1))

	submission.Version = 3
	err := repo.Update(ctx, &submission, 1)
	require.ErrorIs(t, err, models.ErrConflict)

	stored, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Version)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.Equal(t, 40.0, *stored.Marks)
}

func TestGetWithSubmissionsKeepsInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	assignment := seedAssignment(t, db, "Lab", 1, time.Now().Add(time.Hour))
	subs := NewSubmissionRepository(db)

	for _, student := range []uint{9, 4, 7} {
		submission := models.Submission{AssignmentID: assignment.ID, StudentID: student, SubmittedAt: time.Now(), Status: models.SubmissionStatusSubmitted, Version: 1}
		require.NoError(t, subs.Create(ctx, &submission))
	}

	loaded, err := NewAssignmentRepository(db).GetWithSubmissions(ctx, assignment.ID, true)
	require.NoError(t, err)
	require.Len(t, loaded.Submissions, 3)
	require.Equal(t, uint(9), loaded.Submissions[0].StudentID)
	require.Equal(t, uint(7), loaded.Submissions[2].StudentID)
}

func TestEnrollmentRepositoryIgnoresDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewEnrollmentRepository(db)

	require.NoError(t, repo.Enroll(ctx, 1, 10, 11))
	require.NoError(t, repo.Enroll(ctx, 1, 11, 12))
	require.NoError(t, repo.Enroll(ctx, 2, 10))

	ids, err := repo.StudentIDsByClass(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []uint{10, 11, 12}, ids)

	rosters, err := repo.StudentIDsByClasses(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, rosters[1], 3)
	require.Equal(t, []uint{10}, rosters[2])
	require.Empty(t, rosters[3])
}
