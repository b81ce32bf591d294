package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/persistence"
	"github.com/spec-kit/support-workflow/internal/repository"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

const statsCacheKey = "support:stats:overview"

// StatsService derives read-only rollups from the ticket store. It is never
// in the write path. When a cache TTL is configured the computed overview is
// kept in redis for that long; with a zero TTL every call reads the store.
type StatsService struct {
	stats  repository.StatsRepository
	cache  *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService constructs the service. cache may be nil.
func NewStatsService(stats repository.StatsRepository, cache *persistence.Redis, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{stats: stats, cache: cache, ttl: ttl, logger: logger}
}

// StatsOverview aggregates counts, SLA averages and per-admin workload.
type StatsOverview struct {
	StatusCounts          map[domain.TicketStatus]int   `json:"status_counts"`
	CategoryCounts        map[domain.TicketCategory]int `json:"category_counts"`
	PriorityCounts        map[domain.TicketPriority]int `json:"priority_counts"`
	OpenedThisWeek        int                           `json:"opened_this_week"`
	UrgentOpen            int                           `json:"urgent_open"`
	AvgFirstResponseHours *float64                      `json:"avg_first_response_hours"`
	AvgResolutionHours    *float64                      `json:"avg_resolution_hours"`
	AvgCloseHours         *float64                      `json:"avg_close_hours"`
	AdminWorkloads        []repository.AdminWorkload    `json:"admin_workloads"`
}

// Overview computes the aggregate snapshot over the current store state.
func (s *StatsService) Overview(ctx context.Context) (*StatsOverview, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	statusCounts, err := s.stats.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	categoryCounts, err := s.stats.CountByCategory(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	priorityCounts, err := s.stats.CountByPriority(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	openedThisWeek, err := s.stats.CountOpenedSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	urgentOpen, err := s.stats.CountUrgentOpen(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	averages, err := s.stats.AverageDurations(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	workloads, err := s.stats.AdminWorkloads(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	overview := &StatsOverview{
		StatusCounts:          statusCounts,
		CategoryCounts:        categoryCounts,
		PriorityCounts:        priorityCounts,
		OpenedThisWeek:        openedThisWeek,
		UrgentOpen:            urgentOpen,
		AvgFirstResponseHours: averages.FirstResponseHours,
		AvgResolutionHours:    averages.ResolutionHours,
		AvgCloseHours:         averages.CloseHours,
		AdminWorkloads:        workloads,
	}
	s.toCache(ctx, overview)
	return overview, nil
}

func (s *StatsService) fromCache(ctx context.Context) *StatsOverview {
	if s.cache == nil || s.cache.Client == nil || s.ttl <= 0 {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var overview StatsOverview
	if err := json.Unmarshal(raw, &overview); err != nil {
		s.logger.Warn("discarding unreadable stats cache entry", zap.Error(err))
		return nil
	}
	return &overview
}

func (s *StatsService) toCache(ctx context.Context, overview *StatsOverview) {
	if s.cache == nil || s.cache.Client == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(overview)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("unable to cache stats overview", zap.Error(err))
	}
}
