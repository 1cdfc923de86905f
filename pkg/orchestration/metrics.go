package orchestration

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instrumentation. All methods are
// nil-safe so an unconfigured orchestrator skips instrumentation entirely.
type Metrics struct {
	orchestrationsTotal    *prometheus.CounterVec
	orchestrationDuration  prometheus.Histogram
	roleExecutionsTotal    *prometheus.CounterVec
	roleDuration           *prometheus.HistogramVec
	handoffsTotal          prometheus.Counter
	fallbackRetriesTotal   prometheus.Counter
	tokensTotal            *prometheus.CounterVec
	costUSDTotal           prometheus.Counter
}

// NewMetrics creates and registers the engine metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		orchestrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_orchestrations_total",
			Help: "Orchestrations by final status.",
		}, []string{"status"}),
		orchestrationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maestro_orchestration_duration_seconds",
			Help:    "End-to-end orchestration duration.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		roleExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_role_executions_total",
			Help: "Role executions by role and outcome.",
		}, []string{"role", "outcome"}),
		roleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maestro_role_duration_seconds",
			Help:    "Per-role execution duration including fallback retries.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"role"}),
		handoffsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maestro_handoffs_total",
			Help: "Role-to-role handoffs.",
		}),
		fallbackRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maestro_fallback_retries_total",
			Help: "Fallback-model retries after a primary failure.",
		}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_tokens_total",
			Help: "Tokens consumed by role and kind.",
		}, []string{"role", "kind"}),
		costUSDTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maestro_cost_usd_total",
			Help: "Accumulated model cost in USD.",
		}),
	}

	reg.MustRegister(
		m.orchestrationsTotal,
		m.orchestrationDuration,
		m.roleExecutionsTotal,
		m.roleDuration,
		m.handoffsTotal,
		m.fallbackRetriesTotal,
		m.tokensTotal,
		m.costUSDTotal,
	)
	return m
}

func (m *Metrics) observeOrchestration(status string, seconds float64) {
	if m == nil {
		return
	}
	m.orchestrationsTotal.WithLabelValues(status).Inc()
	m.orchestrationDuration.Observe(seconds)
}

func (m *Metrics) observeRole(resp *RoleResponse) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case resp.Degraded:
		outcome = "degraded"
	case resp.UsedFallback:
		outcome = "fallback"
	}
	if resp.UsedFallback || resp.Degraded {
		m.fallbackRetriesTotal.Inc()
	}

	role := string(resp.Role)
	m.roleExecutionsTotal.WithLabelValues(role, outcome).Inc()
	m.roleDuration.WithLabelValues(role).Observe(resp.Duration.Seconds())
	m.tokensTotal.WithLabelValues(role, "input").Add(float64(resp.Usage.InputTokens))
	m.tokensTotal.WithLabelValues(role, "output").Add(float64(resp.Usage.OutputTokens))
	m.tokensTotal.WithLabelValues(role, "thinking").Add(float64(resp.Usage.ThinkingTokens))
	m.costUSDTotal.Add(resp.CostUSD)
}

func (m *Metrics) observeHandoff() {
	if m == nil {
		return
	}
	m.handoffsTotal.Inc()
}
