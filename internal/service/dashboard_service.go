package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

type statusCounter interface {
	CountByStatus(ctx context.Context, filter models.RequestFilter) (map[models.RequestStatus]int, error)
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// DashboardService aggregates request counts for the caller's scope. The
// summary is cached in Redis per scope key because every role's landing page
// hits it; a cache failure degrades to a direct query.
type DashboardService struct {
	requests statusCounter
	students studentResolver
	cache    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
	queries  queryObserver
}

// DashboardServiceOption customises optional collaborators.
type DashboardServiceOption func(*DashboardService)

// WithQueryObserver records the duration of the aggregation query behind
// every uncached summary.
func WithQueryObserver(observer queryObserver) DashboardServiceOption {
	return func(s *DashboardService) {
		s.queries = observer
	}
}

// NewDashboardService constructs a DashboardService. The cache client may be
// nil, in which case every call computes fresh counts.
func NewDashboardService(requests statusCounter, students studentResolver, cache *redis.Client, ttl time.Duration, logger *zap.Logger, opts ...DashboardServiceOption) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	svc := &DashboardService{requests: requests, students: students, cache: cache, ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Summary returns request counts grouped by status for the actor's scope.
func (s *DashboardService) Summary(ctx context.Context, actor *models.JWTClaims) (*dto.DashboardSummary, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	filter, scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:summary:%s", scope)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	start := time.Now()
	counts, err := s.requests.CountByStatus(ctx, filter)
	if s.queries != nil {
		s.queries.ObserveDBQuery("requests.count_by_status", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}

	summary := &dto.DashboardSummary{
		Scope:  scope,
		Counts: make(map[string]int, len(counts)),
	}
	for status, count := range counts {
		summary.Counts[string(status)] = count
		summary.Total += count
		switch {
		case status == models.StatusApproved:
			summary.Approved += count
		case strings.HasPrefix(string(status), "Returned"):
			summary.Returned += count
		default:
			summary.Pending += count
		}
	}

	s.toCache(ctx, cacheKey, summary)
	return summary, nil
}

// Invalidate drops the cached summary for a scope key. Callers pass the same
// scope string Summary derives.
func (s *DashboardService) Invalidate(ctx context.Context, scope string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, fmt.Sprintf("dashboard:summary:%s", scope)).Err(); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("scope", scope), zap.Error(err))
	}
}

func (s *DashboardService) scopeFor(ctx context.Context, actor *models.JWTClaims) (models.RequestFilter, string, error) {
	var filter models.RequestFilter
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.GetDetailsByProfile(ctx, actor.ProfileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return filter, "", appErrors.ErrMissingStudent
			}
			return filter, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
		}
		filter.StudentID = student.ID
		return filter, "student:" + student.ID, nil
	case models.RoleTutor:
		filter.TutorID = actor.ProfileID
		return filter, "tutor:" + actor.ProfileID, nil
	case models.RoleHOD:
		if actor.DepartmentID != nil {
			filter.DepartmentID = *actor.DepartmentID
			return filter, "department:" + *actor.DepartmentID, nil
		}
		return filter, "hod:" + actor.ProfileID, nil
	case models.RolePrincipal, models.RoleAdmin, models.RoleOffice:
		return filter, "institution", nil
	}
	return filter, "", appErrors.ErrForbidden
}

func (s *DashboardService) fromCache(ctx context.Context, key string) *dto.DashboardSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		return nil
	}
	var summary dto.DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *DashboardService) toCache(ctx context.Context, key string, summary *dto.DashboardSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
}
