package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"casualty-dispatch/internal/database"
	"casualty-dispatch/internal/models"
)

type passRepository struct {
	store *Store
}

func (r *passRepository) List(ctx context.Context, limit, offset int) ([]models.PassRecord, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count passes: %w", err)
	}

	query := `SELECT id, cause, strategy, started_at, duration_ns, pending, evaluations, traffic_factor, assigned
	          FROM passes
	          ORDER BY started_at DESC, rowid DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.store.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []models.PassRecord
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, 0, err
		}
		passes = append(passes, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating passes: %w", err)
	}

	return passes, total, nil
}

func (r *passRepository) GetByID(ctx context.Context, id string) (*models.PassRecord, []models.BindingRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT id, cause, strategy, started_at, duration_ns, pending, evaluations, traffic_factor, assigned
	          FROM passes WHERE id = ?`
	pass, err := scanPass(r.store.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, database.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.store.db.QueryContext(ctx, bindingSelect+` WHERE pass_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query pass bindings: %w", err)
	}
	defer rows.Close()

	bindings, err := collectBindings(rows)
	if err != nil {
		return nil, nil, err
	}
	return pass, bindings, nil
}

func (r *passRepository) Create(ctx context.Context, pass *models.PassRecord, bindings []models.BindingRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	passQuery := `INSERT INTO passes
	              (id, cause, strategy, started_at, duration_ns, pending, evaluations, traffic_factor, assigned)
	              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, passQuery,
		pass.ID, pass.Trigger, pass.Strategy, pass.StartedAt.UTC(), int64(pass.Duration),
		pass.Pending, pass.Evaluations, pass.TrafficFactor, pass.Assigned,
	)
	if err != nil {
		return fmt.Errorf("failed to create pass: %w", err)
	}

	bindingQuery := `INSERT INTO bindings
	                 (patient_id, pass_id, severity, vehicle_id, hospital_id, cost, assigned_at, seq)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i, b := range bindings {
		_, err := tx.ExecContext(ctx, bindingQuery,
			b.PatientID, pass.ID, b.Severity.String(), b.VehicleID, b.HospitalID, b.Cost, b.AssignedAt.UTC(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to create binding for patient %s: %w", b.PatientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *passRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// Foreign key cascade removes the bindings
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM passes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(row scanner) (*models.PassRecord, error) {
	var p models.PassRecord
	var durationNs int64
	err := row.Scan(&p.ID, &p.Trigger, &p.Strategy, &p.StartedAt, &durationNs,
		&p.Pending, &p.Evaluations, &p.TrafficFactor, &p.Assigned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pass: %w", err)
	}
	p.Duration = time.Duration(durationNs)
	return &p, nil
}
