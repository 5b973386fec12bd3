package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casualty-dispatch/internal/database"
	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
	"casualty-dispatch/internal/sqlite"
	"casualty-dispatch/internal/testutil"
)

// journaledRun replays a small incident through a recording scheduler
func journaledRun(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := testutil.NewClock(testutil.Epoch)
	s, err := scheduling.New(scheduling.NewGreedyStrategy(),
		scheduling.WithClock(clock.Now),
		scheduling.WithObserver(database.NewRecorder(store, nil)),
	)
	require.NoError(t, err)

	require.NoError(t, s.RegisterHospital(testutil.NewHospital("H1", 0, 0, 5)))
	require.NoError(t, s.RegisterVehicle(testutil.NewVehicle("V1", 1, 1)))

	_, err = s.AddPatient(testutil.NewPatient("P1", 2, 2, models.SeverityRed))
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = s.AddPatient(testutil.NewPatient("P2", 3, 3, models.SeverityGreen))
	require.NoError(t, err)
	return store
}

func TestHistoryQueryRequested(t *testing.T) {
	assert.False(t, historyQuery{}.requested())
	assert.True(t, historyQuery{Passes: 1}.requested())
	assert.True(t, historyQuery{PatientID: "P1"}.requested())
	assert.True(t, historyQuery{HospitalID: "H1"}.requested())
}

func TestPrintHistoryListsPassesNewestFirst(t *testing.T) {
	store := journaledRun(t)
	var buf bytes.Buffer

	require.NoError(t, printHistory(context.Background(), &buf, store, historyQuery{Passes: 5}))

	out := buf.String()
	assert.Contains(t, out, "Journal: 2 most recent of 2 passes")
	assert.Contains(t, out, "assigned=0 pending=1")
	assert.Contains(t, out, "assigned=1 pending=0")
	// V1 was busy with P1, so P2 waits in the newer pass
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("assigned=0")), bytes.Index(buf.Bytes(), []byte("assigned=1")))
	assert.Contains(t, out, "P1")
	assert.NotContains(t, out, "P2")
}

func TestPrintHistoryLimitsPasses(t *testing.T) {
	store := journaledRun(t)
	var buf bytes.Buffer

	require.NoError(t, printHistory(context.Background(), &buf, store, historyQuery{Passes: 1}))

	assert.Contains(t, buf.String(), "Journal: 1 most recent of 2 passes")
	assert.NotContains(t, buf.String(), "PATIENT")
}

func TestPrintHistoryLookups(t *testing.T) {
	store := journaledRun(t)
	var buf bytes.Buffer

	q := historyQuery{PatientID: "P1", VehicleID: "V1", HospitalID: "H1"}
	require.NoError(t, printHistory(context.Background(), &buf, store, q))

	out := buf.String()
	assert.Contains(t, out, "Patient P1:")
	assert.Contains(t, out, "Vehicle V1: 1 journaled bindings")
	assert.Contains(t, out, "Hospital H1: 1 journaled admissions")
	assert.Contains(t, out, "RED")
}

func TestPrintHistoryUnknownPatient(t *testing.T) {
	store := journaledRun(t)
	var buf bytes.Buffer

	require.NoError(t, printHistory(context.Background(), &buf, store, historyQuery{PatientID: "P2", VehicleID: "V9"}))

	assert.Contains(t, buf.String(), "Patient P2: no journaled binding")
	assert.Contains(t, buf.String(), "Vehicle V9: 0 journaled bindings")
}
