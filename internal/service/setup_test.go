package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/cache"
	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/events"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

var (
	teacher      = Actor{ID: 11, Role: RoleTeacher}
	otherTeacher = Actor{ID: 12, Role: RoleTeacher}
	admin        = Actor{ID: 99, Role: RoleAdmin}
	studentA     = Actor{ID: 1, Role: RoleStudent}
	studentB     = Actor{ID: 2, Role: RoleStudent}

	scenarioDue = time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type testEnv struct {
	db             *gorm.DB
	redis          *miniredis.Miniredis
	clock          *fakeClock
	events         *recordingPublisher
	enrollments    repository.EnrollmentRepository
	submissionRepo repository.SubmissionRepository
	activity       ActivityService
	stats          StatsService
	assignments    AssignmentService
	submissions    SubmissionService
	grading        GradingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	clock := &fakeClock{now: scenarioDue.Add(-5 * 24 * time.Hour)}
	publisher := &recordingPublisher{}
	validate := dto.NewValidator()
	logger := testLogger()

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	transactor := repository.NewTransactor(db)
	authorizer := NewRoleAuthorizer()

	activity := NewActivityService(repository.NewActivityLogRepository(db), logger)
	stats := NewStatsService(assignmentRepo, submissionRepo, enrollmentRepo, cache.NewStatsCache(redisClient, "test", time.Minute), authorizer, logger)
	stats.(*statsService).now = clock.Now

	assignments := NewAssignmentService(AssignmentDependencies{
		Assignments: assignmentRepo,
		Transactor:  transactor,
		Stats:       stats,
		Authorizer:  authorizer,
		Activity:    activity,
		Events:      publisher,
		Validator:   validate,
	}, logger)
	assignments.(*assignmentService).now = clock.Now

	deps := SubmissionDependencies{
		Assignments: assignmentRepo,
		Submissions: submissionRepo,
		Transactor:  transactor,
		Stats:       stats,
		Authorizer:  authorizer,
		Activity:    activity,
		Events:      publisher,
		Validator:   validate,
	}
	submissions := NewSubmissionService(deps, logger)
	submissions.(*submissionService).now = clock.Now
	grading := NewGradingService(deps, logger)
	grading.(*gradingService).now = clock.Now

	return &testEnv{
		db:             db,
		redis:          mr,
		clock:          clock,
		events:         publisher,
		enrollments:    enrollmentRepo,
		submissionRepo: submissionRepo,
		activity:       activity,
		stats:          stats,
		assignments:    assignments,
		submissions:    submissions,
		grading:        grading,
	}
}

func (e *testEnv) createAssignment(t *testing.T, actor Actor) dto.AssignmentResponse {
	t.Helper()
	created, err := e.assignments.Create(context.Background(), actor, dto.AssignmentCreateRequest{
		Title:       "Essay on photosynthesis",
		Description: "Explain the light reactions.",
		SubjectID:   3,
		ClassID:     7,
		DueDate:     scenarioDue.Format(time.RFC3339),
		TotalMarks:  100,
	})
	require.NoError(t, err)
	return created
}

func (e *testEnv) submit(t *testing.T, actor Actor, assignmentID uint, content string) dto.SubmissionResponse {
	t.Helper()
	submission, err := e.submissions.Submit(context.Background(), actor, assignmentID, dto.SubmitRequest{Content: content})
	require.NoError(t, err)
	return submission
}

func marks(value float64) *float64 {
	return &value
}
