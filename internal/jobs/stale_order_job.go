package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// StaleOrderJob cancels orders that sat in "processing" past the threshold,
// meaning no restaurant ever reacted to them. Each cancellation goes through
// the regular status mutation path as an admin action, so it takes the
// per-order lock, appends history, and reaches subscribers like any other
// change.
type StaleOrderJob struct {
	staleQueryHandler   queries.GetStaleProcessingOrdersQueryHandler
	updateStatusHandler commands.UpdateOrderStatusCommandHandler
	threshold           time.Duration
	cron                *cron.Cron
	logger              *slog.Logger
}

// NewStaleOrderJob creates the sweep job. Orders older than threshold and
// still in "processing" get cancelled on each run.
func NewStaleOrderJob(
	staleQueryHandler queries.GetStaleProcessingOrdersQueryHandler,
	updateStatusHandler commands.UpdateOrderStatusCommandHandler,
	threshold time.Duration,
	logger *slog.Logger,
) *StaleOrderJob {
	return &StaleOrderJob{
		staleQueryHandler:   staleQueryHandler,
		updateStatusHandler: updateStatusHandler,
		threshold:           threshold,
		cron:                cron.New(cron.WithSeconds()),
		logger:              logger.With("component", "stale_order_job"),
	}
}

// Start begins the sweep, running at the top of every minute.
func (j *StaleOrderJob) Start() error {
	_, err := j.cron.AddFunc("0 * * * * *", func() {
		j.sweep(context.Background())
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Stale order job started (running every minute)",
		"threshold", j.threshold.String())
	return nil
}

// Stop stops the sweep job.
func (j *StaleOrderJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Stale order job stopped")
}

func (j *StaleOrderJob) sweep(ctx context.Context) {
	query, err := queries.NewGetStaleProcessingOrdersQuery(j.threshold)
	if err != nil {
		j.logger.ErrorContext(ctx, "Stale order sweep misconfigured", "error", err)
		return
	}

	staleOrders, err := j.staleQueryHandler.Handle(ctx, query)
	if err != nil {
		j.logger.ErrorContext(ctx, "Stale order sweep query failed", "error", err)
		return
	}

	for _, stale := range staleOrders {
		cmd, cmdErr := commands.NewUpdateOrderStatusCommand(
			stale.ID, order.Cancelled, actor.Admin, nil)
		if cmdErr != nil {
			j.logger.ErrorContext(ctx, "Stale order cancellation rejected",
				"order_id", stale.ID.String(), "error", cmdErr)
			continue
		}

		result, handleErr := j.updateStatusHandler.Handle(ctx, cmd)
		if handleErr != nil {
			// An order that moved or got contended between the query and the
			// cancellation is not an error; the next run re-evaluates it.
			if errors.Is(handleErr, errs.ErrInvalidTransition) ||
				errors.Is(handleErr, errs.ErrResourceBusy) ||
				errors.Is(handleErr, errs.ErrObjectNotFound) {
				continue
			}
			j.logger.ErrorContext(ctx, "Stale order cancellation failed",
				"order_id", stale.ID.String(), "error", handleErr)
			continue
		}

		if result.Changed {
			j.logger.InfoContext(ctx, "Cancelled stale order",
				"order_id", stale.ID.String(),
				"placed_at", stale.PlacedAt,
				"version", result.Version)
		}
	}
}
