package scheduling

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"casualty-dispatch/internal/distance"
	"casualty-dispatch/internal/models"
)

// Binding is an assignment made during a pass together with the values that selected it
type Binding struct {
	models.Assignment
	Severity models.Severity
	Cost     float64
}

// Board is the bookkeeping shared by every strategy: the registries, the
// assignment table and the scoring functions. Registries keep insertion order.
// The assignment table and vehicle occupant lists refer to entities by id.
type Board struct {
	hospitals []*models.Hospital
	vehicles  []*models.Vehicle
	patients  []*models.Patient

	hospitalIdx map[string]int
	vehicleIdx  map[string]int
	patientIdx  map[string]int

	assignments map[string]models.Assignment
	commitOrder []string

	estimator distance.TravelTimeEstimator
	policy    Policy
	now       func() time.Time
	logger    *zap.Logger

	// per-pass counters, reset by beginPass
	evaluations int
	passLog     []Binding
}

func newBoard(estimator distance.TravelTimeEstimator, policy Policy, now func() time.Time, logger *zap.Logger) *Board {
	return &Board{
		hospitalIdx: make(map[string]int),
		vehicleIdx:  make(map[string]int),
		patientIdx:  make(map[string]int),
		assignments: make(map[string]models.Assignment),
		estimator:   estimator,
		policy:      policy,
		now:         now,
		logger:      logger,
	}
}

// Now returns the scheduler clock reading
func (b *Board) Now() time.Time {
	return b.now()
}

// Estimator returns the travel-time estimator used for cost evaluation
func (b *Board) Estimator() distance.TravelTimeEstimator {
	return b.estimator
}

// Logger returns the scheduler logger
func (b *Board) Logger() *zap.Logger {
	return b.logger
}

// Hospitals returns the hospital registry in registration order
func (b *Board) Hospitals() []*models.Hospital {
	return b.hospitals
}

// Vehicles returns the vehicle registry in registration order
func (b *Board) Vehicles() []*models.Vehicle {
	return b.vehicles
}

// Patients returns the patient registry in registration order
func (b *Board) Patients() []*models.Patient {
	return b.patients
}

func (b *Board) Hospital(id string) (*models.Hospital, bool) {
	i, ok := b.hospitalIdx[id]
	if !ok {
		return nil, false
	}
	return b.hospitals[i], true
}

func (b *Board) Vehicle(id string) (*models.Vehicle, bool) {
	i, ok := b.vehicleIdx[id]
	if !ok {
		return nil, false
	}
	return b.vehicles[i], true
}

func (b *Board) Patient(id string) (*models.Patient, bool) {
	i, ok := b.patientIdx[id]
	if !ok {
		return nil, false
	}
	return b.patients[i], true
}

// IsAssigned reports whether the patient is already resolved
func (b *Board) IsAssigned(patientID string) bool {
	_, ok := b.assignments[patientID]
	return ok
}

// Assignment returns the committed binding for a patient
func (b *Board) Assignment(patientID string) (models.Assignment, bool) {
	a, ok := b.assignments[patientID]
	return a, ok
}

// Pending returns every patient without an assignment, in registration order
func (b *Board) Pending() []*models.Patient {
	pending := make([]*models.Patient, 0, len(b.patients))
	for _, p := range b.patients {
		if !b.IsAssigned(p.ID) {
			pending = append(pending, p)
		}
	}
	return pending
}

// IdleVehicles returns the vehicles whose status is IDLE
func (b *Board) IdleVehicles() []*models.Vehicle {
	idle := make([]*models.Vehicle, 0, len(b.vehicles))
	for _, v := range b.vehicles {
		if v.Status == models.VehicleIdle {
			idle = append(idle, v)
		}
	}
	return idle
}

// EligibleVehicles returns idle vehicles able to accommodate the patient
func (b *Board) EligibleVehicles(p *models.Patient) []*models.Vehicle {
	idle := b.IdleVehicles()
	eligible := make([]*models.Vehicle, 0, len(idle))
	for _, v := range idle {
		if v.CanAccommodate(p) {
			eligible = append(eligible, v)
		}
	}
	return eligible
}

// SuitableHospitals returns hospitals able to accept the patient
func (b *Board) SuitableHospitals(p *models.Patient) []*models.Hospital {
	suitable := make([]*models.Hospital, 0, len(b.hospitals))
	for _, h := range b.hospitals {
		if h.CanAccept(p) {
			suitable = append(suitable, h)
		}
	}
	return suitable
}

// PriorityScore grows with severity and with time spent waiting. Higher is more urgent.
func (b *Board) PriorityScore(p *models.Patient) float64 {
	return b.PriorityScoreAt(p, b.now())
}

// PriorityScoreAt computes the priority score against a fixed clock reading
func (b *Board) PriorityScoreAt(p *models.Patient, now time.Time) float64 {
	waitHours := now.Sub(p.DiscoveredAt).Hours()
	return b.policy.SeverityWeights[p.Severity] * (1 + b.policy.AgingRate*waitHours)
}

// AssignmentCost is the severity-weighted pickup plus transport time. Lower is better.
func (b *Board) AssignmentCost(p *models.Patient, v *models.Vehicle, h *models.Hospital) float64 {
	b.evaluations++
	return b.cost(p, v, h)
}

func (b *Board) cost(p *models.Patient, v *models.Vehicle, h *models.Hospital) float64 {
	pickup := b.estimator.TravelTime(v.Location, p.Location)
	transport := b.estimator.TravelTime(p.Location, h.Location)
	return (pickup + transport) * b.policy.TimeWeights[p.Severity]
}

// Commit records the binding and updates resource state: the vehicle becomes
// BUSY and carries the patient, the hospital loses one available bed.
// Bindings are never revised, so an assigned patient is rejected with
// ErrAlreadyAssigned. Unregistered entities and pairs that fail CanAccommodate
// or CanAccept are rejected with ErrIneligible. A rejected call changes nothing.
func (b *Board) Commit(p *models.Patient, v *models.Vehicle, h *models.Hospital) (models.Assignment, error) {
	if err := b.checkCommit(p, v, h); err != nil {
		return models.Assignment{}, err
	}

	a := models.Assignment{
		PatientID:  p.ID,
		VehicleID:  v.ID,
		HospitalID: h.ID,
		AssignedAt: b.now(),
	}

	v.Status = models.VehicleBusy
	v.CurrentPatients = append(v.CurrentPatients, models.Occupant{PatientID: p.ID, Severity: p.Severity})
	h.AvailableBeds--

	b.assignments[p.ID] = a
	b.commitOrder = append(b.commitOrder, p.ID)
	b.passLog = append(b.passLog, Binding{Assignment: a, Severity: p.Severity, Cost: b.cost(p, v, h)})

	b.logger.Info("patient assigned",
		zap.String("patient_id", p.ID),
		zap.Stringer("severity", p.Severity),
		zap.String("vehicle_id", v.ID),
		zap.String("hospital_id", h.ID),
		zap.Int("hospital_beds_left", h.AvailableBeds),
	)
	return a, nil
}

func (b *Board) checkCommit(p *models.Patient, v *models.Vehicle, h *models.Hospital) error {
	if p == nil || v == nil || h == nil {
		return fmt.Errorf("%w: nil entity", ErrIneligible)
	}
	if registered, ok := b.Patient(p.ID); !ok || registered != p {
		return fmt.Errorf("%w: patient %s is not registered", ErrIneligible, p.ID)
	}
	if registered, ok := b.Vehicle(v.ID); !ok || registered != v {
		return fmt.Errorf("%w: vehicle %s is not registered", ErrIneligible, v.ID)
	}
	if registered, ok := b.Hospital(h.ID); !ok || registered != h {
		return fmt.Errorf("%w: hospital %s is not registered", ErrIneligible, h.ID)
	}
	if existing, ok := b.assignments[p.ID]; ok {
		return fmt.Errorf("%w: patient %s is bound to vehicle %s", ErrAlreadyAssigned, p.ID, existing.VehicleID)
	}
	if !v.CanAccommodate(p) {
		return fmt.Errorf("%w: vehicle %s cannot take patient %s", ErrIneligible, v.ID, p.ID)
	}
	if !h.CanAccept(p) {
		return fmt.Errorf("%w: hospital %s cannot accept patient %s", ErrIneligible, h.ID, p.ID)
	}
	return nil
}

// Details recomputes time estimates for a committed assignment using current
// locations and traffic conditions
func (b *Board) Details(patientID string) (models.AssignmentDetails, bool) {
	a, ok := b.assignments[patientID]
	if !ok {
		return models.AssignmentDetails{}, false
	}
	p, okP := b.Patient(a.PatientID)
	v, okV := b.Vehicle(a.VehicleID)
	h, okH := b.Hospital(a.HospitalID)
	if !okP || !okV || !okH {
		return models.AssignmentDetails{}, false
	}

	pickup := b.estimator.TravelTime(v.Location, p.Location)
	transport := b.estimator.TravelTime(p.Location, h.Location)

	return models.AssignmentDetails{
		PatientID:              p.ID,
		PatientSeverity:        p.Severity,
		VehicleID:              v.ID,
		HospitalID:             h.ID,
		EstimatedPickupTime:    pickup,
		EstimatedTransportTime: transport,
		TotalEstimatedTime:     pickup + transport,
	}, true
}

func (b *Board) beginPass() {
	b.evaluations = 0
	b.passLog = nil
}

func (b *Board) addHospital(h *models.Hospital) {
	b.hospitalIdx[h.ID] = len(b.hospitals)
	b.hospitals = append(b.hospitals, h)
}

func (b *Board) addVehicle(v *models.Vehicle) {
	b.vehicleIdx[v.ID] = len(b.vehicles)
	b.vehicles = append(b.vehicles, v)
}

func (b *Board) addPatient(p *models.Patient) {
	b.patientIdx[p.ID] = len(b.patients)
	b.patients = append(b.patients, p)
}
