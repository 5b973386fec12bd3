package testutil

import (
	"time"

	"casualty-dispatch/internal/models"
)

// Epoch is the reference instant used by fixtures
var Epoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// NewPatient creates a patient discovered at Epoch
func NewPatient(id string, x, y float64, severity models.Severity, equipment ...string) *models.Patient {
	return &models.Patient{
		ID:                id,
		Location:          models.Location{X: x, Y: y},
		Severity:          severity,
		InjuryType:        models.InjuryTrauma,
		DiscoveredAt:      Epoch,
		RequiredEquipment: equipment,
	}
}

// NewHospital creates a hospital with the given free beds and one unit of each resource tag
func NewHospital(id string, x, y float64, beds int, resources ...string) *models.Hospital {
	res := make(map[string]int, len(resources))
	for _, r := range resources {
		res[r] = 1
	}
	return &models.Hospital{
		ID:            id,
		Location:      models.Location{X: x, Y: y},
		Resources:     res,
		Capacity:      beds,
		AvailableBeds: beds,
	}
}

// NewVehicle creates an idle vehicle with room for one patient of every severity
func NewVehicle(id string, x, y float64, equipment ...string) *models.Vehicle {
	return &models.Vehicle{
		ID:       id,
		Location: models.Location{X: x, Y: y},
		Capacity: map[models.Severity]int{
			models.SeverityRed:    1,
			models.SeverityYellow: 1,
			models.SeverityGreen:  1,
		},
		Equipment: equipment,
		Status:    models.VehicleIdle,
	}
}
