package database

import (
	"context"

	"casualty-dispatch/internal/models"
)

// Journal is the persistence interface for scheduling history
type Journal interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Passes() PassRepository
	Bindings() BindingRepository
}

// PassRepository handles pass persistence. A pass is stored together with
// the bindings it created.
type PassRepository interface {
	List(ctx context.Context, limit, offset int) ([]models.PassRecord, int, error)
	GetByID(ctx context.Context, id string) (*models.PassRecord, []models.BindingRecord, error)
	Create(ctx context.Context, pass *models.PassRecord, bindings []models.BindingRecord) error
	Delete(ctx context.Context, id string) error
}

// BindingRepository answers lookups over journaled bindings
type BindingRepository interface {
	GetByPatient(ctx context.Context, patientID string) (*models.BindingRecord, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]models.BindingRecord, error)
	ListByHospital(ctx context.Context, hospitalID string) ([]models.BindingRecord, error)
}
