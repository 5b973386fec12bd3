package scheduling

import "errors"

var (
	// ErrDuplicateID is returned when an entity id is already registered
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidEntity is returned for structurally invalid patients, vehicles or hospitals
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrInvalidTrafficFactor is returned for non-positive or non-finite traffic factors
	ErrInvalidTrafficFactor = errors.New("invalid traffic factor")
	// ErrInvalidPolicy is returned when a weight table is incomplete
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrAlreadyAssigned is returned by Board.Commit for a patient that already has a binding
	ErrAlreadyAssigned = errors.New("patient already assigned")
	// ErrIneligible is returned by Board.Commit for unregistered entities or pairs that fail eligibility
	ErrIneligible = errors.New("ineligible assignment")
)
