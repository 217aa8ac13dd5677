package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/events"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func TestGradeValidatesBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assignment := env.createAssignment(t, teacher)
	submission := env.submit(t, studentA, assignment.ID, "work")

	_, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(101)})
	require.ErrorIs(t, err, models.ErrOutOfRange)

	_, err = env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(-1)})
	require.ErrorIs(t, err, models.ErrOutOfRange)

	_, err = env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{})
	require.Error(t, err)

	graded, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(100), Feedback: "perfect"})
	require.NoError(t, err)
	require.Equal(t, 100.0, *graded.Marks)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
	require.Equal(t, teacher.ID, *graded.GradedBy)
	require.NotNil(t, graded.GradedAt)

	_, err = env.grading.Grade(ctx, teacher, 9999, dto.GradeSubmissionRequest{Marks: marks(10)})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradeRequiresOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assignment := env.createAssignment(t, teacher)
	submission := env.submit(t, studentA, assignment.ID, "work")

	_, err := env.grading.Grade(ctx, otherTeacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(10)})
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.grading.Grade(ctx, studentA, submission.ID, dto.GradeSubmissionRequest{Marks: marks(100)})
	require.ErrorIs(t, err, models.ErrForbidden)

	graded, err := env.grading.Grade(ctx, admin, submission.ID, dto.GradeSubmissionRequest{Marks: marks(10)})
	require.NoError(t, err)
	require.Equal(t, admin.ID, *graded.GradedBy)
}

func TestRegradeKeepsLatestAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assignment := env.createAssignment(t, teacher)

	env.clock.Set(scenarioDue.Add(time.Hour))
	submission := env.submit(t, studentA, assignment.ID, "late work")
	require.True(t, submission.IsLate)

	env.clock.Set(scenarioDue.Add(2 * time.Hour))
	_, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(50), Feedback: "ok"})
	require.NoError(t, err)

	env.clock.Set(scenarioDue.Add(3 * time.Hour))
	regraded, err := env.grading.Grade(ctx, admin, submission.ID, dto.GradeSubmissionRequest{Marks: marks(65), Feedback: "better"})
	require.NoError(t, err)
	require.Equal(t, 65.0, *regraded.Marks)
	require.Equal(t, "better", regraded.Feedback)
	require.Equal(t, admin.ID, *regraded.GradedBy)
	require.True(t, regraded.IsLate, "lateness is frozen once graded")
	require.Equal(t, 3, regraded.Version)

	history, err := env.grading.History(ctx, teacher, submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 65.0, history[0].Marks)
	require.Equal(t, 50.0, history[1].Marks)

	_, err = env.grading.History(ctx, studentA, submission.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	gradedEvents := 0
	for _, eventType := range env.events.types() {
		if eventType == events.TypeSubmissionGraded {
			gradedEvents++
		}
	}
	require.Equal(t, 2, gradedEvents)
}

func TestRegradeWithSameValuesRefreshesGradedAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assignment := env.createAssignment(t, teacher)
	submission := env.submit(t, studentA, assignment.ID, "work")

	env.clock.Set(time.Date(2024, time.December, 19, 23, 0, 0, 0, time.UTC))
	first, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(80), Feedback: "ok"})
	require.NoError(t, err)

	later := time.Date(2024, time.December, 20, 1, 0, 0, 0, time.UTC)
	env.clock.Set(later)
	second, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(80), Feedback: "ok"})
	require.NoError(t, err)
	require.True(t, second.GradedAt.Equal(later))
	require.True(t, second.GradedAt.After(*first.GradedAt))
	require.Equal(t, 80.0, *second.Marks)
	require.Equal(t, "ok", second.Feedback)
	require.Equal(t, first.Version+1, second.Version)

	stored, err := env.submissions.Get(ctx, teacher, assignment.ID, studentA.ID)
	require.NoError(t, err)
	require.True(t, stored.GradedAt.Equal(later))

	history, err := env.grading.History(ctx, teacher, submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestGradeWithStaleExpectedVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assignment := env.createAssignment(t, teacher)
	submission := env.submit(t, studentA, assignment.ID, "draft")
	env.submit(t, studentA, assignment.ID, "final")

	stale := submission.Version
	_, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(70), ExpectedVersion: &stale})
	require.ErrorIs(t, err, models.ErrConflict)

	current := stale + 1
	graded, err := env.grading.Grade(ctx, teacher, submission.ID, dto.GradeSubmissionRequest{Marks: marks(70), ExpectedVersion: &current})
	require.NoError(t, err)
	require.Equal(t, "final", graded.Content)
}
