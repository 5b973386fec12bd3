package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"casualty-dispatch/internal/database"
	"casualty-dispatch/internal/models"
)

const bindingSelect = `SELECT pass_id, patient_id, severity, vehicle_id, hospital_id, cost, assigned_at FROM bindings`

type bindingRepository struct {
	store *Store
}

// GetByPatient returns the most recent binding journaled for the patient id
func (r *bindingRepository) GetByPatient(ctx context.Context, patientID string) (*models.BindingRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := bindingSelect + ` WHERE patient_id = ? ORDER BY assigned_at DESC, rowid DESC LIMIT 1`
	b, err := scanBinding(r.store.db.QueryRowContext(ctx, query, patientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	return b, err
}

func (r *bindingRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]models.BindingRecord, error) {
	return r.listWhere(ctx, "vehicle_id", vehicleID)
}

func (r *bindingRepository) ListByHospital(ctx context.Context, hospitalID string) ([]models.BindingRecord, error) {
	return r.listWhere(ctx, "hospital_id", hospitalID)
}

// listWhere returns bindings in assignment order. column is never user input.
func (r *bindingRepository) listWhere(ctx context.Context, column, value string) ([]models.BindingRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := bindingSelect + ` WHERE ` + column + ` = ? ORDER BY assigned_at, rowid`
	rows, err := r.store.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	defer rows.Close()

	return collectBindings(rows)
}

func collectBindings(rows *sql.Rows) ([]models.BindingRecord, error) {
	bindings := []models.BindingRecord{}
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bindings: %w", err)
	}
	return bindings, nil
}

func scanBinding(row scanner) (*models.BindingRecord, error) {
	var b models.BindingRecord
	var severity string
	err := row.Scan(&b.PassID, &b.PatientID, &severity, &b.VehicleID, &b.HospitalID, &b.Cost, &b.AssignedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan binding: %w", err)
	}
	sev, err := models.ParseSeverity(severity)
	if err != nil {
		return nil, fmt.Errorf("binding for patient %s: %w", b.PatientID, err)
	}
	b.Severity = sev
	return &b, nil
}
