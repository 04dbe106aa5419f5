package daemon

import (
	"context"
	"time"

	"github.com/harun/ctx/internal/observability"
	"github.com/harun/ctx/pkg/commandqueue"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

const defaultMaintenanceInterval = 30 * time.Second

// EventLoop runs periodic maintenance while the daemon is up
type EventLoop struct {
	queue     *commandqueue.CommandQueue
	approvals *toolexecutor.ApprovalStore
	interval  time.Duration
	logger    zerolog.Logger
}

// NewEventLoop creates an event loop
func NewEventLoop(queue *commandqueue.CommandQueue, approvals *toolexecutor.ApprovalStore, interval time.Duration, logger zerolog.Logger) *EventLoop {
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	return &EventLoop{
		queue:     queue,
		approvals: approvals,
		interval:  interval,
		logger:    logger,
	}
}

// Run ticks until ctx is done
func (e *EventLoop) Run(ctx context.Context) {
	e.logger.Info().Msg("Event loop started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Event loop stopping")
			return
		case <-ticker.C:
			e.processTasks()
		}
	}
}

// processTasks refreshes gauges and logs busy lanes
func (e *EventLoop) processTasks() {
	observability.SetPendingApprovals(e.approvals.Len())

	for lane, stats := range e.queue.Stats() {
		e.logger.Debug().
			Str("lane", lane).
			Int("queued", stats.Queued).
			Bool("running", stats.Running).
			Msg("Queue stats")
	}
}

// HandleShutdown waits briefly for running messages to finish
func (e *EventLoop) HandleShutdown(timeout time.Duration) bool {
	e.logger.Info().Msg("Handling graceful shutdown")

	if !e.queue.WaitForActive(timeout) {
		e.logger.Warn().Dur("timeout", timeout).Msg("Messages still running at shutdown")
		return false
	}

	e.logger.Info().Msg("All active tasks completed")
	return true
}
