package scenario

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

func newScheduler(t *testing.T, r *Replayer) *scheduling.Scheduler {
	t.Helper()
	s, err := scheduling.New(scheduling.NewGreedyStrategy(), scheduling.WithClock(r.Clock().Now))
	require.NoError(t, err)
	return s
}

func TestReplayTwoHospitals(t *testing.T) {
	sc, err := LoadFile("testdata/two_hospitals.yaml")
	require.NoError(t, err)
	assert.Equal(t, "two hospitals, two ambulances", sc.Name)

	r := NewReplayer(sc, nil, nil)
	s := newScheduler(t, r)

	out, err := r.Run(s)
	require.NoError(t, err)

	require.Len(t, out.Steps, 3)
	assert.Equal(t, EventPatient, out.Steps[0].Kind)
	assert.Equal(t, "P001", out.Steps[0].Subject)
	require.Len(t, out.Steps[0].Created, 1)
	assert.Equal(t, "V001", out.Steps[0].Created[0].VehicleID)
	assert.Equal(t, "H001", out.Steps[0].Created[0].HospitalID)

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, out.Steps[1].At.Equal(start.Add(5*time.Minute)))
	require.Len(t, out.Steps[1].Created, 1)
	assert.Equal(t, "V002", out.Steps[1].Created[0].VehicleID)
	assert.Equal(t, "H002", out.Steps[1].Created[0].HospitalID)
	assert.True(t, out.Steps[1].Created[0].AssignedAt.Equal(start.Add(5*time.Minute)))

	// Traffic changes never revisit committed bindings
	assert.Equal(t, EventTraffic, out.Steps[2].Kind)
	assert.Empty(t, out.Steps[2].Created)

	require.Len(t, out.Assignments, 2)
	assert.Equal(t, "P001", out.Assignments[0].PatientID)
	assert.Equal(t, models.SeverityRed, out.Assignments[0].PatientSeverity)
	assert.InDelta(t, 5.0/50*1.5, out.Assignments[0].EstimatedTransportTime, 1e-9)
	assert.Empty(t, out.Pending)
}

func TestReplayResolvesAddresses(t *testing.T) {
	input := `
start: 2024-03-01T08:00:00Z
hospitals:
  - id: H1
    location: {address: "1 Harbor Rd"}
    capacity: 1
vehicles:
  - id: V1
    location: {x: 0, y: 0}
    capacity: {RED: 1, GREEN: 1}
events:
  - at: 0s
    schedule: true
  - at: 1h
    patient: {id: FRESH, location: {x: 1, y: 0}, severity: RED}
  - at: 1h
    patient: {id: LATE, location: {x: 1, y: 0}, severity: GREEN}
`
	sc, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	addresses := map[string]models.Location{"1 Harbor Rd": {X: 3, Y: 0}}
	r := NewReplayer(sc, addresses, nil)
	s := newScheduler(t, r)

	out, err := r.Run(s)
	require.NoError(t, err)
	require.Len(t, out.Steps, 3)
	assert.Equal(t, EventSchedule, out.Steps[0].Kind)

	// FRESH takes the only bed as soon as it arrives
	require.Len(t, out.Steps[1].Created, 1)
	assert.Equal(t, "FRESH", out.Steps[1].Created[0].PatientID)
	assert.Equal(t, []string{"LATE"}, out.Pending)
}

func TestPatientWaitingBackdatesDiscovery(t *testing.T) {
	zero := 0.0
	spec := PatientSpec{
		ID:       "P1",
		Location: Point{X: &zero, Y: &zero},
		Severity: "green",
		Waiting:  100 * time.Hour,
	}
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	p, err := spec.build(at, nil)
	require.NoError(t, err)
	assert.True(t, p.DiscoveredAt.Equal(at.Add(-100*time.Hour)))
	assert.Equal(t, models.SeverityGreen, p.Severity)
	assert.Equal(t, models.InjuryOther, p.InjuryType)
}

func TestReplayInitialTraffic(t *testing.T) {
	input := `
traffic_factor: 2
hospitals:
  - {id: H1, location: {x: 0, y: 0}, capacity: 1}
`
	sc, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	r := NewReplayer(sc, nil, nil)
	s := newScheduler(t, r)

	out, err := r.Run(s)
	require.NoError(t, err)
	require.Len(t, out.Steps, 1)
	assert.Equal(t, EventTraffic, out.Steps[0].Kind)
	assert.Equal(t, 2.0, s.TrafficFactor())
}

func TestReplayErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown address", `
hospitals:
  - {id: H1, location: {address: nowhere}, capacity: 1}`},
		{"missing coordinate", `
vehicles:
  - {id: V1, location: {x: 1}}`},
		{"duplicate hospital", `
hospitals:
  - {id: H1, location: {x: 0, y: 0}, capacity: 1}
  - {id: H1, location: {x: 1, y: 1}, capacity: 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Load(strings.NewReader(tt.input))
			require.NoError(t, err)

			r := NewReplayer(sc, nil, nil)
			_, err = r.Run(newScheduler(t, r))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedScenarios(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown field", "hospitalz: []"},
		{"unknown severity", `
events:
  - at: 0s
    patient: {id: P1, location: {x: 0, y: 0}, severity: BLUE}`},
		{"event with two actions", `
events:
  - at: 0s
    traffic: 2
    schedule: true`},
		{"event with no action", `
events:
  - at: 0s`},
		{"negative traffic", `
events:
  - at: 0s
    traffic: -1`},
		{"bad vehicle capacity key", `
vehicles:
  - {id: V1, location: {x: 0, y: 0}, capacity: {PURPLE: 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
