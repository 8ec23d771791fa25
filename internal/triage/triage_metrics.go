package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the dispatch pipeline.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	WorkspacesTotal    *prometheus.CounterVec
	ChannelsTotal      *prometheus.CounterVec
	IncompleteFetches  *prometheus.CounterVec
	MatchesPerChannel  *prometheus.HistogramVec
	ManualTriggerTotal prometheus.Counter
}

// NewMetrics registers and returns dispatch metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagebot_job_runs_total",
			Help: "Job ticks by job and final status.",
		}, []string{"job", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triagebot_job_run_duration_seconds",
			Help:    "Duration of job ticks in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s .. ~17m
		}, []string{"job"}),
		WorkspacesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagebot_workspaces_processed_total",
			Help: "Workspaces processed by job and outcome.",
		}, []string{"job", "outcome"}),
		ChannelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagebot_channels_processed_total",
			Help: "Channels analyzed by job.",
		}, []string{"job"}),
		IncompleteFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagebot_history_incomplete_total",
			Help: "Channel history fetches that stopped on a fault.",
		}, []string{"job"}),
		MatchesPerChannel: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triagebot_channel_matches",
			Help:    "Messages reported per channel notification.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}, []string{"job"}),
		ManualTriggerTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagebot_manual_triggers_total",
			Help: "Manual triggers of all scheduled jobs.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.WorkspacesTotal,
		m.ChannelsTotal,
		m.IncompleteFetches,
		m.MatchesPerChannel,
		m.ManualTriggerTotal,
	)

	return m
}

// Hooks returns DispatchHooks that update the corresponding metrics.
func (m *Metrics) Hooks() DispatchHooks {
	return DispatchHooks{
		OnWorkspace: func(job, outcome string) {
			m.WorkspacesTotal.WithLabelValues(job, outcome).Inc()
		},
		OnChannel: func(job string, matches int, complete bool) {
			m.ChannelsTotal.WithLabelValues(job).Inc()
			m.MatchesPerChannel.WithLabelValues(job).Observe(float64(matches))
			if !complete {
				m.IncompleteFetches.WithLabelValues(job).Inc()
			}
		},
		OnComplete: func(job, status string, duration float64) {
			m.RunsTotal.WithLabelValues(job, status).Inc()
			if status != "skipped" {
				m.RunDuration.WithLabelValues(job).Observe(duration)
			}
		},
	}
}
