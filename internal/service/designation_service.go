package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

// CacheKeyDesignationOverview is the Redis key for the dashboard aggregate.
const CacheKeyDesignationOverview = "dashboard:designations"

type designationStatsRepo interface {
	DesignationStats(ctx context.Context) ([]models.DesignationStat, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DesignationOverview is the committee dashboard payload.
type DesignationOverview struct {
	Stats       []models.DesignationStat `json:"stats"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// DesignationService serves the cached dashboard aggregate. Workflow writes
// invalidate the cache, so a short TTL is only a backstop.
type DesignationService struct {
	courses designationStatsRepo
	cache   dashboardCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewDesignationService creates a new instance of DesignationService.
func NewDesignationService(courses designationStatsRepo, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *DesignationService {
	return &DesignationService{courses: courses, cache: cache, ttl: ttl, logger: logger}
}

// Overview returns designation counts, from cache when fresh.
func (s *DesignationService) Overview(ctx context.Context) (*DesignationOverview, error) {
	if s.cache != nil {
		var cached DesignationOverview
		err := s.cache.Get(ctx, CacheKeyDesignationOverview, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	stats, err := s.courses.DesignationStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "dashboard query failed")
	}
	overview := &DesignationOverview{Stats: stats, GeneratedAt: time.Now().UTC()}

	if s.cache != nil {
		if err := s.cache.Set(ctx, CacheKeyDesignationOverview, overview, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return overview, nil
}
