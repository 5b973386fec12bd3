package distance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casualty-dispatch/internal/models"
)

func TestTravelTimeDefaults(t *testing.T) {
	e := NewEstimator()
	origin := models.Location{X: 0, Y: 0}
	dest := models.Location{X: 3, Y: 4}

	assert.Equal(t, 5.0, e.Distance(origin, dest))
	assert.InDelta(t, 0.1, e.TravelTime(origin, dest), 1e-12)
	assert.Equal(t, DefaultTrafficFactor, e.TrafficFactor())
}

func TestUpdateTrafficFactor(t *testing.T) {
	e := NewEstimator()
	origin := models.Location{X: 0, Y: 0}
	dest := models.Location{X: 3, Y: 4}

	before := e.TravelTime(origin, dest)
	e.UpdateTrafficFactor(2.0)

	assert.InDelta(t, 0.1, before, 1e-12, "earlier results are not touched")
	assert.InDelta(t, 0.2, e.TravelTime(origin, dest), 1e-12)
	assert.Equal(t, 2.0, e.TrafficFactor())
}

func TestTotalTransportTimeAddsLoading(t *testing.T) {
	e := NewEstimator()
	pickup := models.Location{X: 0, Y: 0}
	hospital := models.Location{X: 0, Y: 50}

	assert.InDelta(t, 1.0+10.0/60.0, e.TotalTransportTime(pickup, hospital, models.SeverityRed), 1e-9)
	assert.InDelta(t, 1.0+7.0/60.0, e.TotalTransportTime(pickup, hospital, models.SeverityYellow), 1e-9)
	assert.InDelta(t, 1.0+5.0/60.0, e.TotalTransportTime(pickup, hospital, models.SeverityGreen), 1e-9)
}

func TestEstimatedArrival(t *testing.T) {
	e := NewEstimator()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	eta := e.EstimatedArrival(start, models.Location{}, models.Location{X: 25})

	assert.Equal(t, start.Add(30*time.Minute), eta)
}

func TestNewEstimatorWithConfig(t *testing.T) {
	e, err := NewEstimatorWithConfig(Config{
		AverageSpeedKph: 100,
		TrafficFactor:   1.5,
		LoadingTimes:    LoadingTimes{models.SeverityRed: 12 * time.Minute},
	})
	require.NoError(t, err)

	a := models.Location{}
	b := models.Location{X: 100}
	assert.InDelta(t, 1.5, e.TravelTime(a, b), 1e-12)
	assert.InDelta(t, 1.5+0.2, e.TotalTransportTime(a, b, models.SeverityRed), 1e-9)
	assert.InDelta(t, 1.5+5.0/60.0, e.TotalTransportTime(a, b, models.SeverityGreen), 1e-9, "unset entries keep defaults")
}

func TestNewEstimatorWithConfigRejectsNegative(t *testing.T) {
	_, err := NewEstimatorWithConfig(Config{AverageSpeedKph: -1})
	require.Error(t, err)

	var cfgErr *ErrInvalidEstimatorConfig
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "average_speed_kph", cfgErr.Field)

	_, err = NewEstimatorWithConfig(Config{LoadingTimes: LoadingTimes{models.SeverityGreen: -time.Minute}})
	assert.Error(t, err)
}
