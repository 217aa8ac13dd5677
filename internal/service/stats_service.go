package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/gema-classroom-api/internal/cache"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// StatsService computes assignment statistics. Submission tallies may come from the
// cache; class rosters and the due status are always read fresh.
type StatsService interface {
	ForAssignment(ctx context.Context, actor Actor, assignmentID uint) (models.Stats, error)
	Compute(ctx context.Context, assignment models.Assignment) (models.Stats, error)
	ComputeMany(ctx context.Context, assignments []models.Assignment) (map[uint]models.Stats, error)
	Invalidate(ctx context.Context, assignmentID uint)
}

type statsService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	cache       cache.StatsCache
	authorizer  Authorizer
	group       singleflight.Group
	logger      zerolog.Logger
	now         func() time.Time

	// stale holds assignments whose cache invalidation failed; their tallies
	// bypass the cache until an invalidation succeeds.
	staleMu sync.Mutex
	stale   map[uint]struct{}
}

// NewStatsService wires the statistics engine to storage and cache.
func NewStatsService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, enrollments repository.EnrollmentRepository, statsCache cache.StatsCache, authorizer Authorizer, logger zerolog.Logger) StatsService {
	if statsCache == nil {
		statsCache = cache.NewStatsCache(nil, "", 0)
	}
	return &statsService{
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		cache:       statsCache,
		authorizer:  authorizer,
		logger:      logger.With().Str("component", "stats_service").Logger(),
		now:         time.Now,
		stale:       make(map[uint]struct{}),
	}
}

func (s *statsService) ForAssignment(ctx context.Context, actor Actor, assignmentID uint) (models.Stats, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return models.Stats{}, translateNotFound(err, ErrAssignmentNotFound)
	}
	if !s.authorizer.CanGrade(actor, assignment) {
		return models.Stats{}, forbidden("view statistics")
	}
	return s.Compute(ctx, assignment)
}

func (s *statsService) Compute(ctx context.Context, assignment models.Assignment) (models.Stats, error) {
	tally, err := s.tally(ctx, assignment.ID)
	if err != nil {
		return models.Stats{}, err
	}

	roster, err := s.enrollments.StudentIDsByClass(ctx, assignment.ClassID)
	if err != nil {
		return models.Stats{}, err
	}

	return models.StatsFromTally(tally, models.CountDistinct(roster), assignment.DueDate, s.now()), nil
}

func (s *statsService) ComputeMany(ctx context.Context, assignments []models.Assignment) (map[uint]models.Stats, error) {
	results := make(map[uint]models.Stats, len(assignments))
	if len(assignments) == 0 {
		return results, nil
	}

	tallies := make(map[uint]models.SubmissionTally, len(assignments))
	generations := make(map[uint]int64)
	missing := make([]uint, 0)
	bypass := make(map[uint]struct{})
	classIDs := make([]uint, 0, len(assignments))
	seenClass := make(map[uint]struct{})

	for _, assignment := range assignments {
		if _, ok := seenClass[assignment.ClassID]; !ok {
			seenClass[assignment.ClassID] = struct{}{}
			classIDs = append(classIDs, assignment.ClassID)
		}

		if !s.cacheUsable(ctx, assignment.ID) {
			bypass[assignment.ID] = struct{}{}
			missing = append(missing, assignment.ID)
			continue
		}
		tally, generation, ok := s.cached(ctx, assignment.ID)
		if ok {
			tallies[assignment.ID] = tally
			continue
		}
		generations[assignment.ID] = generation
		missing = append(missing, assignment.ID)
	}

	if len(missing) > 0 {
		submissions, err := s.submissions.ListByAssignments(ctx, missing)
		if err != nil {
			return nil, err
		}
		grouped := make(map[uint][]models.Submission, len(missing))
		for _, submission := range submissions {
			grouped[submission.AssignmentID] = append(grouped[submission.AssignmentID], submission)
		}
		for _, id := range missing {
			tally := models.TallySubmissions(grouped[id])
			tallies[id] = tally
			if _, skip := bypass[id]; !skip {
				s.store(ctx, id, generations[id], tally)
			}
		}
	}

	rosters, err := s.enrollments.StudentIDsByClasses(ctx, classIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, assignment := range assignments {
		results[assignment.ID] = models.StatsFromTally(
			tallies[assignment.ID],
			models.CountDistinct(rosters[assignment.ClassID]),
			assignment.DueDate,
			now,
		)
	}
	return results, nil
}

func (s *statsService) Invalidate(ctx context.Context, assignmentID uint) {
	if err := s.cache.Invalidate(ctx, assignmentID); err != nil {
		s.setStale(assignmentID, true)
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to invalidate stats cache; bypassing it for this assignment")
		return
	}
	s.setStale(assignmentID, false)
}

func (s *statsService) setStale(assignmentID uint, stale bool) {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	if stale {
		s.stale[assignmentID] = struct{}{}
		return
	}
	delete(s.stale, assignmentID)
}

func (s *statsService) isStale(assignmentID uint) bool {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	_, ok := s.stale[assignmentID]
	return ok
}

// cacheUsable retries a failed invalidation before the cache is trusted again.
func (s *statsService) cacheUsable(ctx context.Context, assignmentID uint) bool {
	if !s.isStale(assignmentID) {
		return true
	}
	if err := s.cache.Invalidate(ctx, assignmentID); err != nil {
		observability.StatsCacheLookups().WithLabelValues("bypass").Inc()
		return false
	}
	s.setStale(assignmentID, false)
	return true
}

func (s *statsService) tally(ctx context.Context, assignmentID uint) (models.SubmissionTally, error) {
	if !s.cacheUsable(ctx, assignmentID) {
		submissions, err := s.submissions.ListByAssignments(ctx, []uint{assignmentID})
		if err != nil {
			return models.SubmissionTally{}, err
		}
		return models.TallySubmissions(submissions), nil
	}

	if tally, _, ok := s.cached(ctx, assignmentID); ok {
		return tally, nil
	}

	value, err, _ := s.group.Do(strconv.FormatUint(uint64(assignmentID), 10), func() (interface{}, error) {
		_, generation, _ := s.cached(ctx, assignmentID)
		submissions, err := s.submissions.ListByAssignments(ctx, []uint{assignmentID})
		if err != nil {
			return models.SubmissionTally{}, err
		}
		tally := models.TallySubmissions(submissions)
		s.store(ctx, assignmentID, generation, tally)
		return tally, nil
	})
	if err != nil {
		return models.SubmissionTally{}, err
	}
	return value.(models.SubmissionTally), nil
}

func (s *statsService) cached(ctx context.Context, assignmentID uint) (models.SubmissionTally, int64, bool) {
	tally, generation, ok, err := s.cache.Get(ctx, assignmentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to read stats cache")
		observability.StatsCacheLookups().WithLabelValues("error").Inc()
		return models.SubmissionTally{}, generation, false
	}
	if ok {
		observability.StatsCacheLookups().WithLabelValues("hit").Inc()
	} else {
		observability.StatsCacheLookups().WithLabelValues("miss").Inc()
	}
	return tally, generation, ok
}

func (s *statsService) store(ctx context.Context, assignmentID uint, generation int64, tally models.SubmissionTally) {
	if err := s.cache.Set(ctx, assignmentID, generation, tally); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to store stats cache")
	}
}
