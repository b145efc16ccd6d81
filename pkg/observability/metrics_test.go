package observability_test

import (
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.SessionStarted()
	m.Transition(domain.StateRunning)
	m.Transition(domain.StateCompleted)
	m.Verdict("delete_file", domain.Deny("protected path"))
	m.ToolCall("list_files", "ok", 10*time.Millisecond)
	m.PlanningFault("malformed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsFinished.WithLabelValues("COMPLETED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsFinished.WithLabelValues("RUNNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verdicts.WithLabelValues("delete_file", "DENY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("list_files", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlanningFaults.WithLabelValues("malformed")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics

	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.Transition(domain.StateFailed)
		m.Verdict("x", domain.Allow())
		m.Planned("ok", time.Second)
		m.PlanningFault("inference")
		m.ToolCall("x", "error", time.Second)
	})
}
