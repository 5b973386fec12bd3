package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

type message struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	messages []message
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.messages = append(f.messages, message{channel: channel, payload: payload})
	return f.err
}

func sampleReport() scheduling.PassReport {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return scheduling.PassReport{
		ID:        "pass-1",
		Trigger:   scheduling.TriggerTrafficChanged,
		Strategy:  "greedy",
		StartedAt: at,
		Bindings: []scheduling.Binding{{
			Assignment: models.Assignment{PatientID: "P1", VehicleID: "V1", HospitalID: "H1", AssignedAt: at},
			Severity:   models.SeverityYellow,
			Cost:       0.4,
		}},
		Pending:       2,
		TrafficFactor: 2,
	}
}

func TestPassCompletedPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := NewPassNotifier(pub, "", nil)

	n.PassCompleted(sampleReport())

	require.Len(t, pub.messages, 1)
	assert.Equal(t, DefaultChannel, pub.messages[0].channel)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(pub.messages[0].payload, &raw))
	assert.Equal(t, "pass-1", raw["pass_id"])
	assert.Equal(t, "traffic_changed", raw["trigger"])
	assert.Equal(t, 2.0, raw["pending"])

	assignments := raw["assignments"].([]any)
	require.Len(t, assignments, 1)
	first := assignments[0].(map[string]any)
	assert.Equal(t, "P1", first["patient_id"])
	assert.Equal(t, "YELLOW", first["severity"])
	assert.Equal(t, "H1", first["hospital_id"])
}

func TestPassCompletedWithoutBindingsSendsEmptyList(t *testing.T) {
	pub := &fakePublisher{}
	n := NewPassNotifier(pub, "custom", nil)

	n.PassCompleted(scheduling.PassReport{ID: "empty", Trigger: scheduling.TriggerManual})

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "custom", pub.messages[0].channel)
	assert.Contains(t, string(pub.messages[0].payload), `"assignments":[]`)
}

func TestPublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := NewPassNotifier(pub, "", zap.New(core))

	n.PassCompleted(sampleReport())

	entries := logs.FilterMessage("failed to publish pass event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pass-1", entries[0].ContextMap()["pass_id"])
}

func TestNewRedisNotifier(t *testing.T) {
	_, err := NewRedisNotifier("not a url", "", nil)
	assert.Error(t, err)

	n, err := NewRedisNotifier("redis://localhost:6379/0", "dispatch:test", nil)
	require.NoError(t, err)
	assert.Equal(t, "dispatch:test", n.Channel())
	assert.NoError(t, n.Close())
}
