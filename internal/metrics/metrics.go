package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/jobqueue"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Plugin action metrics
	PluginActionsTotal    *prometheus.CounterVec
	PluginActionDuration  *prometheus.HistogramVec
	SchedulerJobsTotal    *prometheus.CounterVec
	SchedulerJobsPending  prometheus.Gauge
	InboxRetriesScheduled prometheus.Counter

	// Telegram metrics
	TelegramMessagesSentTotal     prometheus.Counter
	TelegramMessagesReceivedTotal prometheus.Counter
	TelegramErrorsTotal           prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		PluginActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_actions_total",
				Help: "Total number of plugin action invocations",
			},
			[]string{"plugin", "action", "outcome"},
		),
		PluginActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plugin_action_duration_seconds",
				Help:    "Duration of plugin actions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"plugin", "action"},
		),
		SchedulerJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_jobs_total",
				Help: "Total number of job lifecycle events",
			},
			[]string{"kind", "event"},
		),
		SchedulerJobsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scheduler_jobs_pending",
				Help: "Number of jobs currently armed",
			},
		),
		InboxRetriesScheduled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inbox_retries_scheduled_total",
				Help: "Total number of deferred inbox submissions",
			},
		),

		TelegramMessagesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_messages_sent_total",
				Help: "Total number of Telegram messages sent",
			},
		),
		TelegramMessagesReceivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_messages_received_total",
				Help: "Total number of Telegram messages received",
			},
		),
		TelegramErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telegram_errors_total",
				Help: "Total number of Telegram errors",
			},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.PluginActionsTotal,
		m.PluginActionDuration,
		m.SchedulerJobsTotal,
		m.SchedulerJobsPending,
		m.InboxRetriesScheduled,
		m.TelegramMessagesSentTotal,
		m.TelegramMessagesReceivedTotal,
		m.TelegramErrorsTotal,
	)
}

// ObserveAction implements extension.Observer
func (m *Metrics) ObserveAction(plugin, action string, outcome extension.Outcome, elapsed time.Duration) {
	m.PluginActionsTotal.WithLabelValues(plugin, action, string(outcome)).Inc()
	if outcome != extension.OutcomeRejected {
		m.PluginActionDuration.WithLabelValues(plugin, action).Observe(elapsed.Seconds())
	}
}

// ObserveJob is a jobqueue.Options.OnEvent hook
func (m *Metrics) ObserveJob(evt jobqueue.Event) {
	m.SchedulerJobsTotal.WithLabelValues(string(evt.Kind), string(evt.Action)).Inc()
	m.SchedulerJobsPending.Set(float64(evt.Pending))
}

// MessageSent counts an outgoing Telegram message
func (m *Metrics) MessageSent() { m.TelegramMessagesSentTotal.Inc() }

// MessageReceived counts an incoming Telegram update
func (m *Metrics) MessageReceived() { m.TelegramMessagesReceivedTotal.Inc() }

// TelegramError counts a failed Telegram call
func (m *Metrics) TelegramError() { m.TelegramErrorsTotal.Inc() }

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
