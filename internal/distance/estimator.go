package distance

import (
	"fmt"
	"time"

	"casualty-dispatch/internal/models"
)

const (
	// DefaultAverageSpeedKph is the speed assumed for every leg
	DefaultAverageSpeedKph = 50.0
	// DefaultTrafficFactor leaves travel times unscaled
	DefaultTrafficFactor = 1.0
)

// LoadingTimes maps a severity to its loading/unloading overhead
type LoadingTimes map[models.Severity]time.Duration

// DefaultLoadingTimes returns RED=10min, YELLOW=7min, GREEN=5min
func DefaultLoadingTimes() LoadingTimes {
	return LoadingTimes{
		models.SeverityRed:    10 * time.Minute,
		models.SeverityYellow: 7 * time.Minute,
		models.SeverityGreen:  5 * time.Minute,
	}
}

// TravelTimeEstimator estimates travel durations between locations.
// All times are expressed in hours.
type TravelTimeEstimator interface {
	Distance(a, b models.Location) float64
	TravelTime(a, b models.Location) float64
	TotalTransportTime(pickup, hospital models.Location, severity models.Severity) float64
	EstimatedArrival(start time.Time, a, b models.Location) time.Time
	UpdateTrafficFactor(f float64)
	TrafficFactor() float64
}

// ErrInvalidEstimatorConfig is returned when the estimator cannot be built
type ErrInvalidEstimatorConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidEstimatorConfig) Error() string {
	return fmt.Sprintf("invalid estimator config: %s %s", e.Field, e.Reason)
}

// Config holds estimator settings
type Config struct {
	AverageSpeedKph float64
	TrafficFactor   float64
	LoadingTimes    LoadingTimes
}

type euclideanEstimator struct {
	averageSpeed  float64
	trafficFactor float64
	loadingTimes  LoadingTimes
}

// NewEstimator creates a straight-line estimator with default speed and traffic
func NewEstimator() TravelTimeEstimator {
	return &euclideanEstimator{
		averageSpeed:  DefaultAverageSpeedKph,
		trafficFactor: DefaultTrafficFactor,
		loadingTimes:  DefaultLoadingTimes(),
	}
}

// NewEstimatorWithConfig creates a straight-line estimator. Zero values fall back to defaults.
func NewEstimatorWithConfig(cfg Config) (TravelTimeEstimator, error) {
	e := NewEstimator().(*euclideanEstimator)

	if cfg.AverageSpeedKph < 0 {
		return nil, &ErrInvalidEstimatorConfig{Field: "average_speed_kph", Reason: "must be positive"}
	}
	if cfg.AverageSpeedKph > 0 {
		e.averageSpeed = cfg.AverageSpeedKph
	}

	if cfg.TrafficFactor < 0 {
		return nil, &ErrInvalidEstimatorConfig{Field: "traffic_factor", Reason: "must be positive"}
	}
	if cfg.TrafficFactor > 0 {
		e.trafficFactor = cfg.TrafficFactor
	}

	for sev, d := range cfg.LoadingTimes {
		if !sev.Valid() || d < 0 {
			return nil, &ErrInvalidEstimatorConfig{Field: "loading_times", Reason: fmt.Sprintf("bad entry for %s", sev)}
		}
		e.loadingTimes[sev] = d
	}

	return e, nil
}

func (e *euclideanEstimator) Distance(a, b models.Location) float64 {
	return a.DistanceTo(b)
}

func (e *euclideanEstimator) TravelTime(a, b models.Location) float64 {
	return (e.Distance(a, b) / e.averageSpeed) * e.trafficFactor
}

func (e *euclideanEstimator) TotalTransportTime(pickup, hospital models.Location, severity models.Severity) float64 {
	return e.TravelTime(pickup, hospital) + e.loadingTimes[severity].Hours()
}

func (e *euclideanEstimator) EstimatedArrival(start time.Time, a, b models.Location) time.Time {
	return start.Add(Hours(e.TravelTime(a, b)))
}

// UpdateTrafficFactor affects only calls made afterwards
func (e *euclideanEstimator) UpdateTrafficFactor(f float64) {
	e.trafficFactor = f
}

func (e *euclideanEstimator) TrafficFactor() float64 {
	return e.trafficFactor
}

// Hours converts a fractional hour count into a Duration
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
