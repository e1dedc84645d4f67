package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/jobqueue"
)

const heartbeatInterval = 30 * time.Minute

// Heartbeat periodically logs the trigger state of every plugin
type Heartbeat struct {
	queue    *jobqueue.Queue
	registry *extension.Registry
	logger   zerolog.Logger
	interval time.Duration
}

// NewHeartbeat creates a heartbeat over the job queue
func NewHeartbeat(queue *jobqueue.Queue, registry *extension.Registry, logger zerolog.Logger) *Heartbeat {
	return &Heartbeat{
		queue:    queue,
		registry: registry,
		logger:   logger,
		interval: heartbeatInterval,
	}
}

// Run logs once per interval until ctx is cancelled
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Beat()
		}
	}
}

// Beat logs the pending jobs of each plugin and the next one to fire
func (h *Heartbeat) Beat() {
	for _, p := range h.registry.Plugins() {
		jobs := h.queue.ListTag(p.Name())
		if len(jobs) == 0 {
			continue
		}
		h.logger.Debug().
			Str("plugin", p.Name()).
			Bool("enabled", p.Enabled()).
			Int("jobs", len(jobs)).
			Time("next", jobs[0].NextRun).
			Msg("Plugin triggers")
	}

	h.logger.Debug().
		Int("pending", h.queue.Len()).
		Int("inboxRetries", len(h.queue.ListTag(inboxRetryTag))).
		Msg("Job queue stats")
}
