package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/events"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	List(ctx context.Context, actor Actor, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Deactivate(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Activity(ctx context.Context, actor Actor, id uint, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

// AssignmentDependencies groups the collaborators of the assignment service.
type AssignmentDependencies struct {
	Assignments repository.AssignmentRepository
	Transactor  repository.Transactor
	Stats       StatsService
	Authorizer  Authorizer
	Activity    ActivityService
	Events      events.Publisher
	Validator   *validator.Validate
}

type assignmentService struct {
	repo       repository.AssignmentRepository
	tx         repository.Transactor
	stats      StatsService
	authorizer Authorizer
	activity   ActivityService
	events     events.Publisher
	validator  *validator.Validate
	sanitizer  textSanitizer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(deps AssignmentDependencies, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:       deps.Assignments,
		tx:         deps.Transactor,
		stats:      deps.Stats,
		authorizer: deps.Authorizer,
		activity:   deps.Activity,
		events:     publisherOrNop(deps.Events),
		validator:  deps.Validator,
		sanitizer:  newTextSanitizer(),
		logger:     logger.With().Str("component", "assignment_service").Logger(),
		now:        time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	teacherID := actor.ID
	if payload.TeacherID != nil {
		teacherID = *payload.TeacherID
	}
	if !s.authorizer.CanCreate(actor, teacherID) {
		return dto.AssignmentResponse{}, forbidden("create assignment")
	}

	dueDate, err := dto.ParseDueDate(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, models.NewValidationError(models.FieldError{Field: "due_date", Message: "must be an RFC3339 timestamp"})
	}

	assignment, err := models.NewAssignment(models.AssignmentInput{
		Title:       s.sanitizer.plain(payload.Title),
		Description: s.sanitizer.richText(payload.Description),
		SubjectID:   payload.SubjectID,
		ClassID:     payload.ClassID,
		TeacherID:   teacherID,
		DueDate:     dueDate,
		TotalMarks:  payload.TotalMarks,
		Attachments: payload.Attachments,
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		s.logger.Error().Err(err).Msg("failed to create assignment")
		return dto.AssignmentResponse{}, err
	}

	now := s.now()
	s.record(ctx, actor, ActionAssignmentCreated, *assignment, map[string]interface{}{
		"title":    assignment.Title,
		"due_date": assignment.DueDate.Format(time.RFC3339),
	})
	s.publish(ctx, events.Event{Type: events.TypeAssignmentCreated, AssignmentID: assignment.ID, ActorID: actor.ID})

	response := dto.NewAssignmentResponse(*assignment, now)
	if warning := assignment.DueDateWarning(now); warning != "" {
		response.Warnings = append(response.Warnings, warning)
	}
	return response, nil
}

func (s *assignmentService) List(ctx context.Context, actor Actor, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	filter := repository.AssignmentFilter{
		Search:   strings.TrimSpace(query.Search),
		Sort:     query.Sort,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.ClassID > 0 {
		filter.ClassID = &query.ClassID
	}
	if query.SubjectID > 0 {
		filter.SubjectID = &query.SubjectID
	}
	if query.TeacherID > 0 {
		filter.TeacherID = &query.TeacherID
	}

	active := strings.ToLower(strings.TrimSpace(query.Active))
	if actor.IsStudent() {
		active = "true"
	}
	switch active {
	case "", "true":
		value := true
		filter.Active = &value
	case "false":
		value := false
		filter.Active = &value
	}

	assignments, total, err := s.repo.ListWithFilter(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	var stats map[uint]models.Stats
	if !actor.IsStudent() {
		stats, err = s.stats.ComputeMany(ctx, assignments)
		if err != nil {
			return dto.AssignmentListResponse{}, err
		}
	}

	now := s.now()
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		item := dto.NewAssignmentResponse(assignment, now)
		if summary, ok := stats[assignment.ID]; ok && s.authorizer.CanGrade(actor, assignment) {
			item.Stats = &summary
		}
		items = append(items, item)
	}

	return dto.AssignmentListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(query.Page, query.PageSize, total),
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}
	if actor.IsStudent() && !assignment.IsActive {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	response := dto.NewAssignmentResponse(assignment, s.now())
	if s.authorizer.CanGrade(actor, assignment) {
		stats, err := s.stats.Compute(ctx, assignment)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		response.Stats = &stats
	}
	return response, nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	changes := models.AssignmentChanges{
		Title:       s.sanitizer.plainPtr(payload.Title),
		Description: s.sanitizer.richTextPtr(payload.Description),
		SubjectID:   payload.SubjectID,
		ClassID:     payload.ClassID,
		TotalMarks:  payload.TotalMarks,
		Attachments: payload.Attachments,
	}
	if payload.DueDate != nil {
		dueDate, err := dto.ParseDueDate(*payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, models.NewValidationError(models.FieldError{Field: "due_date", Message: "must be an RFC3339 timestamp"})
		}
		changes.DueDate = &dueDate
	}

	var (
		updated models.Assignment
		changed []string
	)
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assignment, err := repo.GetWithSubmissions(ctx, id, true)
		if err != nil {
			return translateNotFound(err, ErrAssignmentNotFound)
		}
		if !s.authorizer.CanManage(actor, assignment) {
			return forbidden("update assignment")
		}

		changed, err = assignment.ApplyChanges(changes)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			updated = assignment
			return nil
		}
		if err := repo.Update(ctx, &assignment); err != nil {
			return err
		}
		updated = assignment
		return nil
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	now := s.now()
	if len(changed) > 0 {
		s.record(ctx, actor, ActionAssignmentUpdated, updated, map[string]interface{}{"fields": changed})
		s.stats.Invalidate(ctx, updated.ID)
	}

	response := dto.NewAssignmentResponse(updated, now)
	if changes.DueDate != nil {
		if warning := updated.DueDateWarning(now); warning != "" {
			response.Warnings = append(response.Warnings, warning)
		}
	}
	return response, nil
}

func (s *assignmentService) Deactivate(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	var (
		assignment models.Assignment
		changed    bool
	)
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.GetWithSubmissions(ctx, id, true)
		if err != nil {
			return translateNotFound(err, ErrAssignmentNotFound)
		}
		if !s.authorizer.CanManage(actor, current) {
			return forbidden("deactivate assignment")
		}

		assignment = current
		if !assignment.IsActive {
			return nil
		}
		assignment.Deactivate()
		changed = true
		return repo.Update(ctx, &assignment)
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if changed {
		s.record(ctx, actor, ActionAssignmentDeactivated, assignment, map[string]interface{}{
			"submissions": len(assignment.Submissions),
		})
		s.publish(ctx, events.Event{Type: events.TypeAssignmentDeactivated, AssignmentID: assignment.ID, ActorID: actor.ID})
	}

	return dto.NewAssignmentResponse(assignment, s.now()), nil
}

func (s *assignmentService) Activity(ctx context.Context, actor Actor, id uint, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ActivityListResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ActivityListResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}
	if !s.authorizer.CanManage(actor, assignment) {
		return dto.ActivityListResponse{}, forbidden("view activity")
	}

	req.AssignmentID = assignment.ID
	return s.activity.List(ctx, req)
}

func (s *assignmentService) record(ctx context.Context, actor Actor, action string, assignment models.Assignment, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	entry := ActivityEntry{
		Actor:        actor,
		Action:       action,
		EntityType:   "assignment",
		EntityID:     uintPtr(assignment.ID),
		AssignmentID: uintPtr(assignment.ID),
		Metadata:     metadata,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Uint("assignment_id", assignment.ID).Msg("failed to record assignment activity")
	}
}

func (s *assignmentService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.Type).Uint("assignment_id", event.AssignmentID).Msg("failed to publish assignment event")
	}
}
