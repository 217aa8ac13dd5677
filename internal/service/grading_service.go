package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/events"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// GradingService encapsulates grading workflows for teachers and administrators.
type GradingService interface {
	Grade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
	History(ctx context.Context, actor Actor, submissionID uint) ([]dto.SubmissionGradeHistoryResponse, error)
}

type gradingService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	tx          repository.Transactor
	stats       StatsService
	authorizer  Authorizer
	activity    ActivityRecorder
	events      events.Publisher
	validator   *validator.Validate
	sanitizer   textSanitizer
	locks       *keyedLock
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(deps SubmissionDependencies, logger zerolog.Logger) GradingService {
	return &gradingService{
		assignments: deps.Assignments,
		submissions: deps.Submissions,
		tx:          deps.Transactor,
		stats:       deps.Stats,
		authorizer:  deps.Authorizer,
		activity:    deps.Activity,
		events:      publisherOrNop(deps.Events),
		validator:   deps.Validator,
		sanitizer:   newTextSanitizer(),
		locks:       assignmentLocks,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-classroom-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.update",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int64("grading.submission_id", int64(submissionID)),
			attribute.Int64("grading.actor_id", int64(actor.ID)),
		),
	)
	defer span.End()

	fail := func(err error, status string) (dto.SubmissionResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		observability.Gradings().WithLabelValues(status).Inc()
		return dto.SubmissionResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return fail(err, "validation_failed")
	}

	target, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return fail(translateNotFound(err, ErrSubmissionNotFound), "submission_lookup_failed")
	}

	unlock := s.locks.Lock(target.AssignmentID)
	defer unlock()

	feedback := s.sanitizer.richText(payload.Feedback)
	var (
		graded    models.Submission
		previous  *float64
		unchanged bool
	)
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		assignment, err := s.assignments.WithTx(tx).GetWithSubmissions(ctx, target.AssignmentID, true)
		if err != nil {
			return translateNotFound(err, ErrAssignmentNotFound)
		}
		if !s.authorizer.CanGrade(actor, assignment) {
			return forbidden("grade submission")
		}

		current, err := assignment.SubmissionFor(target.StudentID)
		if err != nil {
			return ErrSubmissionNotFound
		}
		previous = current.Marks
		unchanged = sameGrade(current, *payload.Marks, feedback, actor.ID)

		now := s.now().UTC()
		submission, err := assignment.Grade(models.GradeInput{
			StudentID:       current.StudentID,
			Marks:           *payload.Marks,
			Feedback:        feedback,
			GraderID:        actor.ID,
			ExpectedVersion: payload.ExpectedVersion,
		}, now)
		if err != nil {
			return err
		}

		repo := s.submissions.WithTx(tx)
		if err := repo.Update(ctx, submission, current.Version); err != nil {
			return err
		}
		graded = *submission
		if unchanged {
			// Same grade again: graded_at moves, history keeps one row per distinct grade.
			return nil
		}
		if err := repo.CreateHistory(ctx, &models.SubmissionGradeHistory{
			SubmissionID: submission.ID,
			Marks:        *submission.Marks,
			Feedback:     submission.Feedback,
			GradedBy:     actor.ID,
			GradedAt:     now,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fail(err, "grading_failed")
	}

	span.SetAttributes(
		attribute.Float64("grading.marks", *payload.Marks),
		attribute.Bool("grading.unchanged", unchanged),
	)
	if unchanged {
		observability.Gradings().WithLabelValues("unchanged").Inc()
		return dto.NewSubmissionResponse(graded), nil
	}
	s.stats.Invalidate(ctx, graded.AssignmentID)

	outcome := "graded"
	if previous != nil {
		outcome = "regraded"
	}
	observability.Gradings().WithLabelValues(outcome).Inc()

	s.recordActivity(ctx, actor, graded, previous)
	if err := s.events.Publish(ctx, events.Event{
		Type:         events.TypeSubmissionGraded,
		AssignmentID: graded.AssignmentID,
		SubmissionID: graded.ID,
		StudentID:    graded.StudentID,
		ActorID:      actor.ID,
		Data:         map[string]interface{}{"marks": *graded.Marks, "regrade": previous != nil},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", graded.ID).Msg("failed to publish grading event")
	}

	return dto.NewSubmissionResponse(graded), nil
}

func (s *gradingService) History(ctx context.Context, actor Actor, submissionID uint) ([]dto.SubmissionGradeHistoryResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, translateNotFound(err, ErrSubmissionNotFound)
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, translateNotFound(err, ErrAssignmentNotFound)
	}
	if !s.authorizer.CanGrade(actor, assignment) {
		return nil, forbidden("view grade history")
	}

	history, err := s.submissions.ListHistory(ctx, submission.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewGradeHistoryResponseSlice(history), nil
}

func (s *gradingService) recordActivity(ctx context.Context, actor Actor, submission models.Submission, previous *float64) {
	if s.activity == nil {
		return
	}
	metadata := map[string]interface{}{
		"student_id": submission.StudentID,
		"marks":      *submission.Marks,
		"version":    submission.Version,
	}
	if previous != nil {
		metadata["previous_marks"] = *previous
	}
	if err := s.activity.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       ActionSubmissionGraded,
		EntityType:   "submission",
		EntityID:     uintPtr(submission.ID),
		AssignmentID: uintPtr(submission.AssignmentID),
		Metadata:     metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to record grading activity")
	}
}

func sameGrade(current models.Submission, marks float64, feedback string, graderID uint) bool {
	if !current.IsGraded() || current.Marks == nil || current.GradedBy == nil {
		return false
	}
	return math.Abs(*current.Marks-marks) < 1e-9 &&
		strings.TrimSpace(current.Feedback) == feedback &&
		*current.GradedBy == graderID
}
