package scheduling

import (
	"fmt"

	"casualty-dispatch/internal/models"
)

// DefaultAgingRate is the per-hour growth of a waiting patient's priority
const DefaultAgingRate = 0.1

// Policy holds the weight tables used for priority scoring and cost evaluation.
// It is kept apart from the Severity type so alternate policies can swap tables.
type Policy struct {
	// SeverityWeights is the base priority of each severity
	SeverityWeights map[models.Severity]float64
	// TimeWeights multiplies the travel time of a candidate pairing
	TimeWeights map[models.Severity]float64
	// AgingRate scales how fast waiting raises priority
	AgingRate float64
}

// DefaultPolicy returns RED=100/YELLOW=50/GREEN=10 priority weights,
// RED=3/YELLOW=2/GREEN=1 time weights and 0.1 aging
func DefaultPolicy() Policy {
	return Policy{
		SeverityWeights: map[models.Severity]float64{
			models.SeverityRed:    100,
			models.SeverityYellow: 50,
			models.SeverityGreen:  10,
		},
		TimeWeights: map[models.Severity]float64{
			models.SeverityRed:    3.0,
			models.SeverityYellow: 2.0,
			models.SeverityGreen:  1.0,
		},
		AgingRate: DefaultAgingRate,
	}
}

// Validate checks that every severity has a non-negative weight in both tables
func (p Policy) Validate() error {
	for _, s := range models.Severities {
		w, ok := p.SeverityWeights[s]
		if !ok || w < 0 {
			return fmt.Errorf("%w: severity weight for %s", ErrInvalidPolicy, s)
		}
		tw, ok := p.TimeWeights[s]
		if !ok || tw < 0 {
			return fmt.Errorf("%w: time weight for %s", ErrInvalidPolicy, s)
		}
	}
	if p.AgingRate < 0 {
		return fmt.Errorf("%w: aging rate must not be negative", ErrInvalidPolicy)
	}
	return nil
}
