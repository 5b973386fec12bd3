package scenario

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

// EventKind names a timeline entry
type EventKind string

const (
	EventPatient  EventKind = "patient"
	EventTraffic  EventKind = "traffic"
	EventSchedule EventKind = "schedule"
)

// Step is the outcome of one replayed event
type Step struct {
	At      time.Time
	Kind    EventKind
	Subject string
	Created []models.Assignment
}

// Outcome is the final state after a replay
type Outcome struct {
	Steps       []Step
	Assignments []models.AssignmentDetails
	Pending     []string
}

// SimClock is the simulated time source a Replayer advances between events
type SimClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SimClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Replayer drives a Scheduler through a scenario timeline
type Replayer struct {
	sc        *Scenario
	addresses map[string]models.Location
	clock     *SimClock
	logger    *zap.Logger
}

// NewReplayer prepares a replay. addresses resolves address-based locations
// and may be nil when the scenario only uses coordinates. A zero start time
// in the scenario means the current time.
func NewReplayer(sc *Scenario, addresses map[string]models.Location, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := sc.Start
	if start.IsZero() {
		start = time.Now().UTC().Truncate(time.Second)
	}
	return &Replayer{
		sc:        sc,
		addresses: addresses,
		clock:     &SimClock{now: start},
		logger:    logger,
	}
}

// Clock returns the simulated clock. Pass Clock().Now to scheduling.WithClock
// so waiting times follow the timeline.
func (r *Replayer) Clock() *SimClock {
	return r.clock
}

// Run registers the scenario's resources and applies its events in time
// order. Events sharing an offset keep file order.
func (r *Replayer) Run(s *scheduling.Scheduler) (*Outcome, error) {
	start := r.clock.Now()

	for _, hs := range r.sc.Hospitals {
		h, err := hs.build(r.addresses)
		if err != nil {
			return nil, err
		}
		if err := s.RegisterHospital(h); err != nil {
			return nil, err
		}
	}
	for _, vs := range r.sc.Vehicles {
		v, err := vs.build(r.addresses)
		if err != nil {
			return nil, err
		}
		if err := s.RegisterVehicle(v); err != nil {
			return nil, err
		}
	}

	out := &Outcome{}

	if r.sc.Traffic > 0 && r.sc.Traffic != s.TrafficFactor() {
		created, err := s.UpdateTrafficCondition(r.sc.Traffic)
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, Step{At: start, Kind: EventTraffic, Subject: formatFactor(r.sc.Traffic), Created: created})
	}

	events := make([]EventSpec, len(r.sc.Events))
	copy(events, r.sc.Events)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })

	for i, e := range events {
		at := start.Add(e.At)
		r.clock.set(at)

		step, err := r.apply(s, e, at)
		if err != nil {
			return nil, fmt.Errorf("event %d at +%s: %w", i, e.At, err)
		}
		r.logger.Info("event applied",
			zap.String("kind", string(step.Kind)),
			zap.String("subject", step.Subject),
			zap.Duration("offset", e.At),
			zap.Int("created", len(step.Created)),
		)
		out.Steps = append(out.Steps, step)
	}

	for _, a := range s.Assignments() {
		if d, ok := s.AssignmentDetails(a.PatientID); ok {
			out.Assignments = append(out.Assignments, d)
		}
	}
	out.Pending = s.PendingPatients()
	return out, nil
}

func (r *Replayer) apply(s *scheduling.Scheduler, e EventSpec, at time.Time) (Step, error) {
	switch {
	case e.Patient != nil:
		p, err := e.Patient.build(at, r.addresses)
		if err != nil {
			return Step{}, err
		}
		created, err := s.AddPatient(p)
		return Step{At: at, Kind: EventPatient, Subject: p.ID, Created: created}, err
	case e.Traffic > 0:
		created, err := s.UpdateTrafficCondition(e.Traffic)
		return Step{At: at, Kind: EventTraffic, Subject: formatFactor(e.Traffic), Created: created}, err
	default:
		return Step{At: at, Kind: EventSchedule, Created: s.Schedule()}, nil
	}
}

func formatFactor(f float64) string {
	return fmt.Sprintf("x%.2f", f)
}
