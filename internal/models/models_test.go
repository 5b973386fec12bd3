package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationDistanceTo(t *testing.T) {
	a := Location{X: 0, Y: 0}
	b := Location{X: 3, Y: 4}

	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.Equal(t, 5.0, b.DistanceTo(a))
	assert.Equal(t, 0.0, a.DistanceTo(a))
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityRed > SeverityYellow)
	assert.True(t, SeverityYellow > SeverityGreen)
	assert.Equal(t, []Severity{SeverityRed, SeverityYellow, SeverityGreen}, Severities)
	assert.False(t, Severity(0).Valid())
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" red ")
	require.NoError(t, err)
	assert.Equal(t, SeverityRed, s)

	_, err = ParseSeverity("BLUE")
	assert.Error(t, err)
}

func TestSeverityJSONMapKeys(t *testing.T) {
	v := Vehicle{ID: "V1", Capacity: map[Severity]int{SeverityRed: 1, SeverityGreen: 3}}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"RED":1`)

	var decoded Vehicle
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Capacity[SeverityRed])
	assert.Equal(t, 3, decoded.Capacity[SeverityGreen])
}

func TestHospitalCanAccept(t *testing.T) {
	h := &Hospital{
		ID:            "H1",
		Resources:     map[string]int{"ventilator": 2, "icu": 0},
		Capacity:      10,
		AvailableBeds: 1,
	}

	assert.True(t, h.CanAccept(&Patient{ID: "P1"}))
	assert.True(t, h.CanAccept(&Patient{ID: "P2", RequiredEquipment: []string{"ventilator"}}))
	assert.False(t, h.CanAccept(&Patient{ID: "P3", RequiredEquipment: []string{"icu"}}), "zero units is not enough")
	assert.False(t, h.CanAccept(&Patient{ID: "P4", RequiredEquipment: []string{"ventilator", "burn_unit"}}))

	h.AvailableBeds = 0
	assert.False(t, h.CanAccept(&Patient{ID: "P1"}))
}

func TestVehicleCanAccommodate(t *testing.T) {
	v := &Vehicle{
		ID:        "V1",
		Capacity:  map[Severity]int{SeverityRed: 1, SeverityYellow: 2},
		Equipment: []string{"stretcher", "ventilator"},
		Status:    VehicleIdle,
	}

	red := &Patient{ID: "P1", Severity: SeverityRed}
	green := &Patient{ID: "P2", Severity: SeverityGreen}
	needsDefib := &Patient{ID: "P3", Severity: SeverityYellow, RequiredEquipment: []string{"defibrillator"}}
	needsVent := &Patient{ID: "P4", Severity: SeverityYellow, RequiredEquipment: []string{"ventilator"}}

	assert.True(t, v.CanAccommodate(red))
	assert.False(t, v.CanAccommodate(green), "no capacity configured for GREEN")
	assert.False(t, v.CanAccommodate(needsDefib))
	assert.True(t, v.CanAccommodate(needsVent))

	v.CurrentPatients = append(v.CurrentPatients, Occupant{PatientID: "P0", Severity: SeverityRed})
	assert.False(t, v.CanAccommodate(red), "RED slot is full")
	assert.True(t, v.Carries("P0"))
	assert.Equal(t, 1, v.OccupantCount(SeverityRed))

	v.CurrentPatients = nil
	v.Status = VehicleBusy
	assert.False(t, v.CanAccommodate(red))
}
