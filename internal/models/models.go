package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Location is a planar coordinate pair. Units are treated as kilometers.
type Location struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the straight-line distance to another location
func (l Location) DistanceTo(other Location) float64 {
	dx := l.X - other.X
	dy := l.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Severity is the triage level of a patient. Higher values are more critical.
type Severity int

const (
	SeverityGreen Severity = iota + 1
	SeverityYellow
	SeverityRed
)

// Severities lists every level from most to least critical
var Severities = []Severity{SeverityRed, SeverityYellow, SeverityGreen}

func (s Severity) String() string {
	switch s {
	case SeverityRed:
		return "RED"
	case SeverityYellow:
		return "YELLOW"
	case SeverityGreen:
		return "GREEN"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the known triage levels
func (s Severity) Valid() bool {
	return s >= SeverityGreen && s <= SeverityRed
}

// ParseSeverity converts "RED", "YELLOW" or "GREEN" (any case) into a Severity
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "RED":
		return SeverityRed, nil
	case "YELLOW":
		return SeverityYellow, nil
	case "GREEN":
		return SeverityGreen, nil
	}
	return 0, fmt.Errorf("unknown severity %q", v)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// InjuryType is informational and does not take part in matching
type InjuryType string

const (
	InjuryTrauma   InjuryType = "TRAUMA"
	InjuryBurn     InjuryType = "BURN"
	InjuryInternal InjuryType = "INTERNAL"
	InjuryOther    InjuryType = "OTHER"
)

// VehicleStatus is the dispatch state of a vehicle
type VehicleStatus string

const (
	VehicleIdle      VehicleStatus = "IDLE"
	VehicleBusy      VehicleStatus = "BUSY"
	VehicleReturning VehicleStatus = "RETURNING"
)

// Patient represents a casualty waiting for transport
type Patient struct {
	ID                 string        `json:"id" yaml:"id"`
	Location           Location      `json:"location" yaml:"location"`
	Severity           Severity      `json:"severity" yaml:"severity"`
	InjuryType         InjuryType    `json:"injury_type" yaml:"injury_type"`
	DiscoveredAt       time.Time     `json:"discovered_at" yaml:"discovered_at"`
	RequiredEquipment  []string      `json:"required_equipment,omitempty" yaml:"required_equipment,omitempty"`
	EstimatedTreatment time.Duration `json:"estimated_treatment" yaml:"estimated_treatment"`
}

// NeedsEquipment reports whether the patient requires any special equipment
func (p *Patient) NeedsEquipment() bool {
	return len(p.RequiredEquipment) > 0
}

// Hospital is a receiving facility with finite beds and equipment
type Hospital struct {
	ID            string         `json:"id" yaml:"id"`
	Location      Location       `json:"location" yaml:"location"`
	Resources     map[string]int `json:"resources" yaml:"resources"`
	Specialties   []string       `json:"specialties" yaml:"specialties"`
	Capacity      int            `json:"capacity" yaml:"capacity"`
	AvailableBeds int            `json:"available_beds" yaml:"available_beds"`
}

// HasEquipment reports whether at least one unit of every tag is available
func (h *Hospital) HasEquipment(tags []string) bool {
	for _, tag := range tags {
		if h.Resources[tag] <= 0 {
			return false
		}
	}
	return true
}

// CanAccept reports whether the hospital has a free bed and the equipment the patient needs.
// Specialties are not enforced.
func (h *Hospital) CanAccept(p *Patient) bool {
	if h.AvailableBeds <= 0 {
		return false
	}
	if p.NeedsEquipment() {
		return h.HasEquipment(p.RequiredEquipment)
	}
	return true
}

// Occupant is a patient aboard a vehicle, referenced by id
type Occupant struct {
	PatientID string   `json:"patient_id"`
	Severity  Severity `json:"severity"`
}

// Vehicle is a transport unit with per-severity capacity
type Vehicle struct {
	ID              string           `json:"id" yaml:"id"`
	Location        Location         `json:"location" yaml:"location"`
	Capacity        map[Severity]int `json:"capacity" yaml:"capacity"`
	Equipment       []string         `json:"equipment" yaml:"equipment"`
	Status          VehicleStatus    `json:"status" yaml:"status"`
	CurrentPatients []Occupant       `json:"current_patients" yaml:"-"`
}

// OccupantCount returns how many patients of the given severity are aboard
func (v *Vehicle) OccupantCount(s Severity) int {
	count := 0
	for _, o := range v.CurrentPatients {
		if o.Severity == s {
			count++
		}
	}
	return count
}

// Carries reports whether the patient is in the vehicle's current-patient list
func (v *Vehicle) Carries(patientID string) bool {
	for _, o := range v.CurrentPatients {
		if o.PatientID == patientID {
			return true
		}
	}
	return false
}

// HasEquipment reports whether every tag is present in the onboard equipment
func (v *Vehicle) HasEquipment(tags []string) bool {
	for _, tag := range tags {
		found := false
		for _, e := range v.Equipment {
			if e == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CanAccommodate reports whether the vehicle is idle, has room for the patient's
// severity and carries the equipment the patient needs
func (v *Vehicle) CanAccommodate(p *Patient) bool {
	if v.Status != VehicleIdle {
		return false
	}
	if v.OccupantCount(p.Severity) >= v.Capacity[p.Severity] {
		return false
	}
	if p.NeedsEquipment() {
		return v.HasEquipment(p.RequiredEquipment)
	}
	return true
}

// Assignment binds a patient to a vehicle and a hospital
type Assignment struct {
	PatientID  string    `json:"patient_id"`
	VehicleID  string    `json:"vehicle_id"`
	HospitalID string    `json:"hospital_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// AssignmentDetails contains time estimates for a committed assignment.
// Times are in hours.
type AssignmentDetails struct {
	PatientID              string   `json:"patient_id"`
	PatientSeverity        Severity `json:"patient_severity"`
	VehicleID              string   `json:"vehicle_id"`
	HospitalID             string   `json:"hospital_id"`
	EstimatedPickupTime    float64  `json:"estimated_pickup_time"`
	EstimatedTransportTime float64  `json:"estimated_transport_time"`
	TotalEstimatedTime     float64  `json:"total_estimated_time"`
}
