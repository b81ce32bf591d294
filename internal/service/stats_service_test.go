package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/repository"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

type fakeStatsRepo struct {
	statusCounts   map[domain.TicketStatus]int
	categoryCounts map[domain.TicketCategory]int
	priorityCounts map[domain.TicketPriority]int
	openedSince    int
	urgentOpen     int
	averages       *repository.SLAAverages
	workloads      []repository.AdminWorkload
	err            error
}

func (r *fakeStatsRepo) CountByStatus(context.Context) (map[domain.TicketStatus]int, error) {
	return r.statusCounts, r.err
}

func (r *fakeStatsRepo) CountByCategory(context.Context) (map[domain.TicketCategory]int, error) {
	return r.categoryCounts, r.err
}

func (r *fakeStatsRepo) CountByPriority(context.Context) (map[domain.TicketPriority]int, error) {
	return r.priorityCounts, r.err
}

func (r *fakeStatsRepo) CountOpenedSince(context.Context, time.Time) (int, error) {
	return r.openedSince, r.err
}

func (r *fakeStatsRepo) CountUrgentOpen(context.Context) (int, error) {
	return r.urgentOpen, r.err
}

func (r *fakeStatsRepo) AverageDurations(context.Context) (*repository.SLAAverages, error) {
	return r.averages, r.err
}

func (r *fakeStatsRepo) AdminWorkloads(context.Context) ([]repository.AdminWorkload, error) {
	return r.workloads, r.err
}

func TestStatsOverview(t *testing.T) {
	firstResponse := 2.5
	resolution := 20.0
	repo := &fakeStatsRepo{
		statusCounts: map[domain.TicketStatus]int{
			domain.TicketStatusOpen:     3,
			domain.TicketStatusResolved: 1,
		},
		categoryCounts: map[domain.TicketCategory]int{
			domain.CategoryLateness: 2,
			domain.CategoryDamage:   2,
		},
		priorityCounts: map[domain.TicketPriority]int{
			domain.PriorityNormal: 3,
			domain.PriorityUrgent: 1,
		},
		openedSince: 4,
		urgentOpen:  1,
		averages: &repository.SLAAverages{
			FirstResponseHours: &firstResponse,
			ResolutionHours:    &resolution,
		},
		workloads: []repository.AdminWorkload{
			{AdminID: "admin-1", Total: 3, Open: 2},
		},
	}

	svc := NewStatsService(repo, nil, 0, nil)
	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, overview.StatusCounts[domain.TicketStatusOpen])
	assert.Equal(t, 2, overview.CategoryCounts[domain.CategoryDamage])
	assert.Equal(t, 4, overview.OpenedThisWeek)
	assert.Equal(t, 1, overview.UrgentOpen)
	require.NotNil(t, overview.AvgFirstResponseHours)
	assert.InDelta(t, 2.5, *overview.AvgFirstResponseHours, 0.001)
	assert.Nil(t, overview.AvgCloseHours)
	require.Len(t, overview.AdminWorkloads, 1)
	assert.Equal(t, "admin-1", overview.AdminWorkloads[0].AdminID)
}

func TestStatsOverviewStoreError(t *testing.T) {
	svc := NewStatsService(&fakeStatsRepo{err: errors.New("store down")}, nil, 0, nil)

	_, err := svc.Overview(context.Background())
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", apperrors.CodeOf(err))
}
