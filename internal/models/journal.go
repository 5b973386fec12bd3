package models

import "time"

// PassRecord is a journaled scheduling pass
type PassRecord struct {
	ID            string        `json:"id"`
	Trigger       string        `json:"trigger"`
	Strategy      string        `json:"strategy"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Pending       int           `json:"pending"`
	Evaluations   int           `json:"evaluations"`
	TrafficFactor float64       `json:"traffic_factor"`
	Assigned      int           `json:"assigned"`
}

// BindingRecord is a journaled assignment together with the pass that made it
type BindingRecord struct {
	PassID     string    `json:"pass_id"`
	PatientID  string    `json:"patient_id"`
	Severity   Severity  `json:"severity"`
	VehicleID  string    `json:"vehicle_id"`
	HospitalID string    `json:"hospital_id"`
	Cost       float64   `json:"cost"`
	AssignedAt time.Time `json:"assigned_at"`
}
