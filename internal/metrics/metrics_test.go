package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

func TestPassCompletedRecordsReport(t *testing.T) {
	m := NewPassMetrics()

	m.PassCompleted(scheduling.PassReport{
		ID:       "p1",
		Trigger:  scheduling.TriggerPatientAdded,
		Strategy: "greedy",
		Duration: 2 * time.Millisecond,
		Bindings: []scheduling.Binding{
			{Assignment: models.Assignment{PatientID: "a"}, Severity: models.SeverityRed},
			{Assignment: models.Assignment{PatientID: "b"}, Severity: models.SeverityRed},
			{Assignment: models.Assignment{PatientID: "c"}, Severity: models.SeverityGreen},
		},
		Pending:       4,
		Evaluations:   12,
		TrafficFactor: 1.5,
	})
	m.PassCompleted(scheduling.PassReport{
		Trigger:       scheduling.TriggerTrafficChanged,
		Strategy:      "greedy",
		Pending:       1,
		Evaluations:   3,
		TrafficFactor: 2,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Passes.WithLabelValues("greedy", "patient_added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Passes.WithLabelValues("greedy", "traffic_changed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Assignments.WithLabelValues("RED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assignments.WithLabelValues("GREEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Pending))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.Evaluations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrafficFactor))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestRegistryGathersDispatchFamilies(t *testing.T) {
	m := NewPassMetrics()
	m.PassCompleted(scheduling.PassReport{Trigger: scheduling.TriggerManual, Strategy: "greedy"})

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["dispatch_passes_total"])
	assert.True(t, names["dispatch_pass_duration_seconds"])
	assert.True(t, names["go_goroutines"])
}
