package database

import (
	"context"
	"time"

	"go.uber.org/zap"

	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

// DefaultWriteTimeout bounds each journal write made by a Recorder
const DefaultWriteTimeout = 2 * time.Second

// Recorder writes every scheduling pass to a Journal. Write failures are
// logged and never reach the scheduler.
type Recorder struct {
	journal Journal
	logger  *zap.Logger
	timeout time.Duration
}

// NewRecorder creates a Recorder. A nil logger disables logging.
func NewRecorder(journal Journal, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{journal: journal, logger: logger, timeout: DefaultWriteTimeout}
}

func (r *Recorder) PassCompleted(report scheduling.PassReport) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	pass, bindings := PassRecordFromReport(report)
	if err := r.journal.Passes().Create(ctx, pass, bindings); err != nil {
		r.logger.Error("failed to journal pass",
			zap.String("pass_id", report.ID),
			zap.Int("bindings", len(bindings)),
			zap.Error(err),
		)
	}
}

// PassRecordFromReport converts a pass report into journal records
func PassRecordFromReport(report scheduling.PassReport) (*models.PassRecord, []models.BindingRecord) {
	pass := &models.PassRecord{
		ID:            report.ID,
		Trigger:       string(report.Trigger),
		Strategy:      report.Strategy,
		StartedAt:     report.StartedAt,
		Duration:      report.Duration,
		Pending:       report.Pending,
		Evaluations:   report.Evaluations,
		TrafficFactor: report.TrafficFactor,
		Assigned:      len(report.Bindings),
	}

	bindings := make([]models.BindingRecord, 0, len(report.Bindings))
	for _, b := range report.Bindings {
		bindings = append(bindings, models.BindingRecord{
			PassID:     report.ID,
			PatientID:  b.PatientID,
			Severity:   b.Severity,
			VehicleID:  b.VehicleID,
			HospitalID: b.HospitalID,
			Cost:       b.Cost,
			AssignedAt: b.AssignedAt,
		})
	}
	return pass, bindings
}
