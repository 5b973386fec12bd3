package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"casualty-dispatch/internal/models"
)

// Scenario is a scripted incident: the resources on hand and a timeline of
// patient discoveries and traffic changes
type Scenario struct {
	Name      string         `yaml:"name"`
	Start     time.Time      `yaml:"start"`
	Traffic   float64        `yaml:"traffic_factor"`
	Hospitals []HospitalSpec `yaml:"hospitals"`
	Vehicles  []VehicleSpec  `yaml:"vehicles"`
	Events    []EventSpec    `yaml:"events"`
}

// Point is either explicit coordinates or an address looked up in an address table
type Point struct {
	X       *float64 `yaml:"x"`
	Y       *float64 `yaml:"y"`
	Address string   `yaml:"address"`
}

type HospitalSpec struct {
	ID            string         `yaml:"id"`
	Location      Point          `yaml:"location"`
	Resources     map[string]int `yaml:"resources"`
	Specialties   []string       `yaml:"specialties"`
	Capacity      int            `yaml:"capacity"`
	AvailableBeds *int           `yaml:"available_beds"`
}

type VehicleSpec struct {
	ID        string         `yaml:"id"`
	Location  Point          `yaml:"location"`
	Capacity  map[string]int `yaml:"capacity"`
	Equipment []string       `yaml:"equipment"`
	Status    string         `yaml:"status"`
}

type PatientSpec struct {
	ID                 string        `yaml:"id"`
	Location           Point         `yaml:"location"`
	Severity           string        `yaml:"severity"`
	InjuryType         string        `yaml:"injury_type"`
	RequiredEquipment  []string      `yaml:"required_equipment"`
	EstimatedTreatment time.Duration `yaml:"estimated_treatment"`
	// Waiting backdates the discovery time relative to the event time
	Waiting time.Duration `yaml:"waiting"`
}

// EventSpec is one timeline entry. Exactly one of Patient, Traffic or
// Schedule must be set.
type EventSpec struct {
	At       time.Duration `yaml:"at"`
	Patient  *PatientSpec  `yaml:"patient"`
	Traffic  float64       `yaml:"traffic"`
	Schedule bool          `yaml:"schedule"`
}

// Load decodes a scenario and checks its structure
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("scenario is empty")
		}
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads a scenario from disk
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the timeline and severity names. Entity-level checks are
// left to the scheduler.
func (sc *Scenario) Validate() error {
	if sc.Traffic < 0 {
		return fmt.Errorf("traffic_factor must not be negative")
	}
	for i, v := range sc.Vehicles {
		for name := range v.Capacity {
			if _, err := models.ParseSeverity(name); err != nil {
				return fmt.Errorf("vehicle %d (%s): %w", i, v.ID, err)
			}
		}
	}
	for i, e := range sc.Events {
		set := 0
		if e.Patient != nil {
			set++
			if _, err := models.ParseSeverity(e.Patient.Severity); err != nil {
				return fmt.Errorf("event %d: patient %s: %w", i, e.Patient.ID, err)
			}
		}
		if e.Traffic != 0 {
			set++
			if e.Traffic < 0 {
				return fmt.Errorf("event %d: traffic must be positive", i)
			}
		}
		if e.Schedule {
			set++
		}
		if set != 1 {
			return fmt.Errorf("event %d: exactly one of patient, traffic or schedule is required", i)
		}
		if e.At < 0 {
			return fmt.Errorf("event %d: negative offset %s", i, e.At)
		}
	}
	return nil
}

func (p Point) resolve(addresses map[string]models.Location) (models.Location, error) {
	if p.Address != "" {
		loc, ok := addresses[p.Address]
		if !ok {
			return models.Location{}, fmt.Errorf("address %q is not in the address table", p.Address)
		}
		return loc, nil
	}
	if p.X == nil || p.Y == nil {
		return models.Location{}, fmt.Errorf("location needs x and y or an address")
	}
	return models.Location{X: *p.X, Y: *p.Y}, nil
}

func (h HospitalSpec) build(addresses map[string]models.Location) (*models.Hospital, error) {
	loc, err := h.Location.resolve(addresses)
	if err != nil {
		return nil, fmt.Errorf("hospital %s: %w", h.ID, err)
	}
	beds := h.Capacity
	if h.AvailableBeds != nil {
		beds = *h.AvailableBeds
	}
	return &models.Hospital{
		ID:            h.ID,
		Location:      loc,
		Resources:     h.Resources,
		Specialties:   h.Specialties,
		Capacity:      h.Capacity,
		AvailableBeds: beds,
	}, nil
}

func (v VehicleSpec) build(addresses map[string]models.Location) (*models.Vehicle, error) {
	loc, err := v.Location.resolve(addresses)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", v.ID, err)
	}
	capacity := make(map[models.Severity]int, len(v.Capacity))
	for name, n := range v.Capacity {
		sev, err := models.ParseSeverity(name)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		capacity[sev] = n
	}
	return &models.Vehicle{
		ID:        v.ID,
		Location:  loc,
		Capacity:  capacity,
		Equipment: v.Equipment,
		Status:    models.VehicleStatus(v.Status),
	}, nil
}

func (p PatientSpec) build(at time.Time, addresses map[string]models.Location) (*models.Patient, error) {
	loc, err := p.Location.resolve(addresses)
	if err != nil {
		return nil, fmt.Errorf("patient %s: %w", p.ID, err)
	}
	sev, err := models.ParseSeverity(p.Severity)
	if err != nil {
		return nil, fmt.Errorf("patient %s: %w", p.ID, err)
	}
	injury := models.InjuryType(p.InjuryType)
	if injury == "" {
		injury = models.InjuryOther
	}
	return &models.Patient{
		ID:                 p.ID,
		Location:           loc,
		Severity:           sev,
		InjuryType:         injury,
		DiscoveredAt:       at.Add(-p.Waiting),
		RequiredEquipment:  p.RequiredEquipment,
		EstimatedTreatment: p.EstimatedTreatment,
	}, nil
}
