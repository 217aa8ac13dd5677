package service

import (
	"context"
	"strconv"
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

// SubmissionService handles student submissions and their retrieval.
type SubmissionService interface {
	Submit(ctx context.Context, actor Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, assignmentID, studentID uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor Actor, assignmentID uint, query dto.SubmissionListQuery) (dto.SubmissionListResponse, error)
}

// SubmissionDependencies groups the collaborators shared by the submission and grading services.
type SubmissionDependencies struct {
	Assignments repository.AssignmentRepository
	Submissions repository.SubmissionRepository
	Transactor  repository.Transactor
	Stats       StatsService
	Authorizer  Authorizer
	Activity    ActivityRecorder
	Events      events.Publisher
	Validator   *validator.Validate
}

type submissionService struct {
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

// NewSubmissionService constructs the submission service.
func NewSubmissionService(deps SubmissionDependencies, logger zerolog.Logger) SubmissionService {
	return &submissionService{
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
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, actor Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-classroom-api/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.submit",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int64("submission.assignment_id", int64(assignmentID)),
			attribute.Int64("submission.actor_id", int64(actor.ID)),
		),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	studentID := actor.ID
	if payload.StudentID != nil {
		studentID = *payload.StudentID
	} else if actor.IsAdmin() {
		err := models.NewValidationError(models.FieldError{Field: "student_id", Message: "is required when submitting on behalf of a student"})
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}
	content := s.sanitizer.richText(payload.Content)

	unlock := s.locks.Lock(assignmentID)
	defer unlock()

	var (
		result  models.Submission
		created bool
	)
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		assignment, err := s.assignments.WithTx(tx).GetWithSubmissions(ctx, assignmentID, true)
		if err != nil {
			return translateNotFound(err, ErrAssignmentNotFound)
		}
		if !s.authorizer.CanSubmit(actor, assignment, studentID) {
			return forbidden("submit for another student")
		}

		previousVersion := 0
		if existing, err := assignment.SubmissionFor(studentID); err == nil {
			previousVersion = existing.Version
		}

		submission, isNew, err := assignment.Submit(studentID, content, payload.Attachments, s.now().UTC())
		if err != nil {
			return err
		}

		repo := s.submissions.WithTx(tx)
		if isNew {
			err = repo.Create(ctx, submission)
		} else {
			err = repo.Update(ctx, submission, previousVersion)
		}
		if err != nil {
			return err
		}

		result = *submission
		created = isNew
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit_failed")
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(attribute.String("submission.status", string(result.Status)), attribute.Bool("submission.created", created))
	observability.Submissions().WithLabelValues(string(result.Status), strconv.FormatBool(created)).Inc()
	s.stats.Invalidate(ctx, assignmentID)

	s.recordActivity(ctx, actor, result, created)
	eventType := events.TypeSubmissionUpdated
	if created {
		eventType = events.TypeSubmissionCreated
	}
	if err := s.events.Publish(ctx, events.Event{
		Type:         eventType,
		AssignmentID: assignmentID,
		SubmissionID: result.ID,
		StudentID:    result.StudentID,
		ActorID:      actor.ID,
		Data:         map[string]interface{}{"status": result.Status, "is_late": result.IsLate},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", result.ID).Msg("failed to publish submission event")
	}

	response := dto.NewSubmissionResponse(result)
	response.Created = created
	return response, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, assignmentID, studentID uint) (dto.SubmissionResponse, error) {
	assignment, err := s.assignments.GetWithSubmissions(ctx, assignmentID, false)
	if err != nil {
		return dto.SubmissionResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}
	if !s.authorizer.CanViewSubmission(actor, assignment, studentID) {
		return dto.SubmissionResponse{}, forbidden("view submission")
	}

	submission, err := assignment.SubmissionFor(studentID)
	if err != nil {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, actor Actor, assignmentID uint, query dto.SubmissionListQuery) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionListResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}
	if !s.authorizer.CanGrade(actor, assignment) {
		return dto.SubmissionListResponse{}, forbidden("list submissions")
	}

	page := repository.SubmissionPage{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.SubmissionStatus(query.Status)
		page.Status = &status
	}

	submissions, total, err := s.submissions.ListByAssignment(ctx, assignment.ID, page)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	return dto.SubmissionListResponse{
		Items:      dto.NewSubmissionResponseSlice(submissions),
		Pagination: dto.NewPaginationMeta(query.Page, query.PageSize, total),
	}, nil
}

func (s *submissionService) recordActivity(ctx context.Context, actor Actor, submission models.Submission, created bool) {
	if s.activity == nil {
		return
	}
	entry := ActivityEntry{
		Actor:        actor,
		Action:       ActionSubmissionSubmitted,
		EntityType:   "submission",
		EntityID:     uintPtr(submission.ID),
		AssignmentID: uintPtr(submission.AssignmentID),
		Metadata: map[string]interface{}{
			"student_id": submission.StudentID,
			"status":     string(submission.Status),
			"is_late":    submission.IsLate,
			"created":    created,
			"version":    submission.Version,
		},
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to record submission activity")
	}
}

func publisherOrNop(publisher events.Publisher) events.Publisher {
	if publisher == nil {
		return events.Nop{}
	}
	return publisher
}
