package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/repository"
	"github.com/spec-kit/support-workflow/internal/service"
)

const autoCloseBatchSize = 100

// AutoCloser periodically force-closes tickets that stayed resolved longer
// than the configured age. Each close goes through the workflow validator so
// timestamps and timeline entries stay consistent with manual closes. The
// job is disabled when age is zero.
type AutoCloser struct {
	tickets  repository.TicketRepository
	workflow *service.WorkflowService
	age      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewAutoCloser constructs the job.
func NewAutoCloser(tickets repository.TicketRepository, workflow *service.WorkflowService, age, interval time.Duration, logger *zap.Logger) *AutoCloser {
	return &AutoCloser{
		tickets:  tickets,
		workflow: workflow,
		age:      age,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is done, scanning once per interval.
func (a *AutoCloser) Run(ctx context.Context) {
	if a.age <= 0 {
		return
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *AutoCloser) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-a.age)
	tickets, err := a.tickets.ListResolvedBefore(ctx, cutoff, autoCloseBatchSize)
	if err != nil {
		a.logger.Warn("auto-close scan failed", zap.Error(err))
		return
	}

	status := domain.TicketStatusClosed
	for _, ticket := range tickets {
		_, err := a.workflow.ApplyUpdate(ctx, ticket.ID, service.TicketUpdate{Status: &status}, domain.SystemActor)
		if err != nil {
			a.logger.Warn("auto-close failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err),
			)
			continue
		}
		a.logger.Info("ticket auto-closed",
			zap.String("ticket_id", ticket.ID),
			zap.Time("resolved_at", *ticket.ResolvedAt),
		)
	}
}
