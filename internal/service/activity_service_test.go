package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
	filter  repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(_ context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.filter = filter
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksSensitiveMetadata(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	err := svc.Record(context.Background(), ActivityEntry{
		Actor:        Actor{ID: 11, Role: " Teacher "},
		Action:       "Submission.Graded",
		EntityType:   "submission",
		EntityID:     uintPtr(5),
		AssignmentID: uintPtr(2),
		Metadata: map[string]interface{}{
			"reviewer_email": "teacher@example.com",
			"marks":          85,
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	stored := repo.entries[0]
	require.Equal(t, ActionSubmissionGraded, stored.Action)
	require.Equal(t, "teacher", stored.ActorRole)
	require.Equal(t, "***", stored.Metadata["reviewer_email"])
	require.Equal(t, 85, stored.Metadata["marks"])
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	err := svc.Record(context.Background(), ActivityEntry{EntityType: "assignment"})
	require.Error(t, err)
}

func TestActivityServiceListScopesByAssignment(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	require.NoError(t, svc.Record(context.Background(), ActivityEntry{
		Actor:      Actor{},
		Action:     ActionAssignmentCreated,
		EntityType: "assignment",
	}))

	result, err := svc.List(context.Background(), dto.ActivityListRequest{AssignmentID: 4, Action: " Assignment.Created ", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.NotNil(t, repo.filter.AssignmentID)
	require.Equal(t, uint(4), *repo.filter.AssignmentID)
	require.Equal(t, ActionAssignmentCreated, repo.filter.Action)
	require.Nil(t, repo.filter.ActorID)
	require.Equal(t, "system", repo.entries[0].ActorRole)
	require.Equal(t, int64(1), result.Pagination.TotalItems)
}
