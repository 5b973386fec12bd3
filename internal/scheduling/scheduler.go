package scheduling

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casualty-dispatch/internal/distance"
	"casualty-dispatch/internal/models"
)

// Trigger names what caused a scheduling pass
type Trigger string

const (
	TriggerPatientAdded   Trigger = "patient_added"
	TriggerTrafficChanged Trigger = "traffic_changed"
	TriggerManual         Trigger = "manual"
)

// PassReport summarizes one scheduling pass
type PassReport struct {
	ID            string
	Trigger       Trigger
	Strategy      string
	StartedAt     time.Time
	Duration      time.Duration
	Bindings      []Binding
	Pending       int
	Evaluations   int
	TrafficFactor float64
}

// Observer receives a report after every pass. Reports are delivered in pass
// order after the scheduler lock is released, before the method that ran the
// pass returns. An observer may read from the Scheduler but must not start a pass.
type Observer interface {
	PassCompleted(report PassReport)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithEstimator replaces the default straight-line estimator
func WithEstimator(e distance.TravelTimeEstimator) Option {
	return func(s *Scheduler) { s.board.estimator = e }
}

// WithPolicy replaces the default weight tables
func WithPolicy(p Policy) Option {
	return func(s *Scheduler) { s.board.policy = p }
}

// WithClock sets the time source used for waiting time and commit timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.board.now = now }
}

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.board.logger = l }
}

// WithObserver adds a pass observer
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// Scheduler is the public surface of the assignment engine. Every method is
// synchronous and serialized, so at most one pass runs at a time.
type Scheduler struct {
	mu        sync.Mutex
	board     *Board
	strategy  Strategy
	observers []Observer
	outbox    []PassReport // guarded by mu

	// notifyMu serializes delivery so observers see reports in pass order.
	// It is never acquired while mu is held.
	notifyMu sync.Mutex
}

// New creates a Scheduler running the given strategy
func New(strategy Strategy, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		board:    newBoard(distance.NewEstimator(), DefaultPolicy(), time.Now, zap.NewNop()),
		strategy: strategy,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.strategy == nil {
		return nil, fmt.Errorf("scheduler requires a strategy")
	}
	if err := s.board.policy.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// RegisterHospital adds a hospital to the registry. It does not trigger a pass.
func (s *Scheduler) RegisterHospital(h *models.Hospital) error {
	if err := validateHospital(h); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.board.hospitalIdx[h.ID]; exists {
		return fmt.Errorf("%w: hospital %s", ErrDuplicateID, h.ID)
	}
	s.board.addHospital(h)
	s.board.logger.Debug("hospital registered", zap.String("hospital_id", h.ID), zap.Int("available_beds", h.AvailableBeds))
	return nil
}

// RegisterVehicle adds a vehicle to the registry. A vehicle without a status
// is registered as IDLE. It does not trigger a pass.
func (s *Scheduler) RegisterVehicle(v *models.Vehicle) error {
	if err := validateVehicle(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.board.vehicleIdx[v.ID]; exists {
		return fmt.Errorf("%w: vehicle %s", ErrDuplicateID, v.ID)
	}
	if v.Status == "" {
		v.Status = models.VehicleIdle
	}
	s.board.addVehicle(v)
	s.board.logger.Debug("vehicle registered", zap.String("vehicle_id", v.ID), zap.String("status", string(v.Status)))
	return nil
}

// AddPatient registers a patient and then runs a scheduling pass over every
// unassigned patient, not only the new one. It returns the bindings created by
// that pass. A patient without a discovery time is stamped with the scheduler clock.
func (s *Scheduler) AddPatient(p *models.Patient) ([]models.Assignment, error) {
	if err := validatePatient(p); err != nil {
		return nil, err
	}

	defer s.publish()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.board.patientIdx[p.ID]; exists {
		return nil, fmt.Errorf("%w: patient %s", ErrDuplicateID, p.ID)
	}
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = s.board.now()
	}
	s.board.addPatient(p)

	return s.runPass(TriggerPatientAdded), nil
}

// UpdateTrafficCondition replaces the traffic factor and then runs a
// scheduling pass. Committed assignments are not revisited.
func (s *Scheduler) UpdateTrafficCondition(factor float64) ([]models.Assignment, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrafficFactor, factor)
	}

	defer s.publish()
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.board.estimator.TrafficFactor()
	s.board.estimator.UpdateTrafficFactor(factor)
	s.board.logger.Info("traffic factor updated", zap.Float64("previous", previous), zap.Float64("current", factor))

	return s.runPass(TriggerTrafficChanged), nil
}

// Schedule runs one scheduling pass and returns the bindings it created
func (s *Scheduler) Schedule() []models.Assignment {
	defer s.publish()
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runPass(TriggerManual)
}

// AssignmentDetails returns pickup and transport estimates for an assigned
// patient, recomputed with current traffic. ok is false for unknown ids.
func (s *Scheduler) AssignmentDetails(patientID string) (models.AssignmentDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.board.Details(patientID)
}

// Assignment returns the raw binding for a patient
func (s *Scheduler) Assignment(patientID string) (models.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.board.Assignment(patientID)
}

// Assignments returns a copy of the assignment table in commit order
func (s *Scheduler) Assignments() []models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Assignment, 0, len(s.board.commitOrder))
	for _, id := range s.board.commitOrder {
		out = append(out, s.board.assignments[id])
	}
	return out
}

// PendingPatients returns the ids of unassigned patients in registration order
func (s *Scheduler) PendingPatients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.board.Pending()
	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}
	return ids
}

// TrafficFactor returns the current traffic multiplier
func (s *Scheduler) TrafficFactor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.board.estimator.TrafficFactor()
}

// runPass must be called with s.mu held. The report is queued for publish.
func (s *Scheduler) runPass(trigger Trigger) []models.Assignment {
	wallStart := time.Now()
	startedAt := s.board.now()
	passID := uuid.New().String()
	logger := s.board.logger.With(zap.String("pass_id", passID), zap.String("trigger", string(trigger)))

	s.board.beginPass()
	logger.Debug("scheduling pass started", zap.Int("pending", len(s.board.Pending())))

	created := s.strategy.Schedule(s.board)

	report := PassReport{
		ID:            passID,
		Trigger:       trigger,
		Strategy:      s.strategy.Name(),
		StartedAt:     startedAt,
		Duration:      time.Since(wallStart),
		Bindings:      s.board.passLog,
		Pending:       len(s.board.Pending()),
		Evaluations:   s.board.evaluations,
		TrafficFactor: s.board.estimator.TrafficFactor(),
	}
	logger.Debug("scheduling pass finished",
		zap.Int("created", len(created)),
		zap.Int("pending", report.Pending),
		zap.Int("evaluations", report.Evaluations),
		zap.Duration("duration", report.Duration),
	)

	if len(s.observers) > 0 {
		s.outbox = append(s.outbox, report)
	}
	return created
}

// publish delivers queued reports to the observers. It must be called
// without s.mu held.
func (s *Scheduler) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	for {
		s.mu.Lock()
		if len(s.outbox) == 0 {
			s.mu.Unlock()
			return
		}
		report := s.outbox[0]
		s.outbox = s.outbox[1:]
		s.mu.Unlock()

		for _, o := range s.observers {
			o.PassCompleted(report)
		}
	}
}

func validateHospital(h *models.Hospital) error {
	if h == nil || h.ID == "" {
		return fmt.Errorf("%w: hospital id is required", ErrInvalidEntity)
	}
	if h.Capacity < 0 || h.AvailableBeds < 0 || h.AvailableBeds > h.Capacity {
		return fmt.Errorf("%w: hospital %s beds %d/%d", ErrInvalidEntity, h.ID, h.AvailableBeds, h.Capacity)
	}
	for tag, n := range h.Resources {
		if n < 0 {
			return fmt.Errorf("%w: hospital %s resource %s is negative", ErrInvalidEntity, h.ID, tag)
		}
	}
	return nil
}

func validateVehicle(v *models.Vehicle) error {
	if v == nil || v.ID == "" {
		return fmt.Errorf("%w: vehicle id is required", ErrInvalidEntity)
	}
	for sev, n := range v.Capacity {
		if !sev.Valid() || n < 0 {
			return fmt.Errorf("%w: vehicle %s capacity for %s", ErrInvalidEntity, v.ID, sev)
		}
	}
	switch v.Status {
	case "", models.VehicleIdle, models.VehicleBusy, models.VehicleReturning:
	default:
		return fmt.Errorf("%w: vehicle %s status %q", ErrInvalidEntity, v.ID, v.Status)
	}
	return nil
}

func validatePatient(p *models.Patient) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: patient id is required", ErrInvalidEntity)
	}
	if !p.Severity.Valid() {
		return fmt.Errorf("%w: patient %s severity %d", ErrInvalidEntity, p.ID, int(p.Severity))
	}
	return nil
}
