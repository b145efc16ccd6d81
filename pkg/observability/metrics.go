package observability

import (
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentcore"

// Metrics holds the collectors for sessions, the guardrail and the tool registry.
type Metrics struct {
	SessionsStarted  prometheus.Counter
	SessionsFinished *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	Verdicts         *prometheus.CounterVec
	PlanLatency      *prometheus.HistogramVec
	PlanningFaults   *prometheus.CounterVec
	ToolCalls        *prometheus.CounterVec
	ToolDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Sessions that accepted a task.",
		}),
		SessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Sessions that reached a terminal state, by state.",
		}, []string{"state"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "State transitions, by target state.",
		}, []string{"state"}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guardrail",
			Name:      "verdicts_total",
			Help:      "Guardrail decisions, by tool and verdict.",
		}, []string{"tool", "verdict"}),
		PlanLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "brain",
			Name:      "plan_duration_seconds",
			Help:      "Planning round latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		PlanningFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "brain",
			Name:      "faults_total",
			Help:      "Planning faults, by kind.",
		}, []string{"kind"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Tool invocations, by tool and status.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "duration_seconds",
			Help:      "Tool execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsStarted, m.SessionsFinished, m.Transitions, m.Verdicts,
			m.PlanLatency, m.PlanningFaults, m.ToolCalls, m.ToolDuration,
		)
	}
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// Transition records a state change; terminal states also count as finished sessions.
func (m *Metrics) Transition(state domain.SessionState) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(state.String()).Inc()
	if state.IsTerminal() {
		m.SessionsFinished.WithLabelValues(state.String()).Inc()
	}
}

func (m *Metrics) Verdict(tool string, d domain.Decision) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(tool, string(d.Verdict)).Inc()
}

func (m *Metrics) Planned(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PlanLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) PlanningFault(kind string) {
	if m == nil {
		return
	}
	m.PlanningFaults.WithLabelValues(kind).Inc()
}

// ToolCall records one invocation. status is "ok", "error" or "timeout".
func (m *Metrics) ToolCall(tool, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
