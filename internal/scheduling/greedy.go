package scheduling

import (
	"sort"

	"go.uber.org/zap"

	"casualty-dispatch/internal/models"
)

type greedyStrategy struct{}

// NewGreedyStrategy creates a strategy that serves patients in priority order,
// giving each the cheapest vehicle and hospital pair still available. It is not
// globally optimal: an earlier patient may take the vehicle a later one needed.
func NewGreedyStrategy() Strategy {
	return greedyStrategy{}
}

func (greedyStrategy) Name() string {
	return "greedy"
}

func (s greedyStrategy) Schedule(b *Board) []models.Assignment {
	pending := b.Pending()
	if len(pending) == 0 {
		return []models.Assignment{}
	}

	// One clock reading per pass so the ordering is consistent
	now := b.Now()
	scores := make(map[string]float64, len(pending))
	for _, p := range pending {
		scores[p.ID] = b.PriorityScoreAt(p, now)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return scores[pending[i].ID] > scores[pending[j].ID]
	})

	created := []models.Assignment{}
	for _, p := range pending {
		vehicle, hospital, ok := s.bestPair(b, p)
		if !ok {
			b.Logger().Debug("no candidates for patient",
				zap.String("patient_id", p.ID),
				zap.Stringer("severity", p.Severity),
				zap.Float64("priority", scores[p.ID]),
			)
			continue
		}
		a, err := b.Commit(p, vehicle, hospital)
		if err != nil {
			b.Logger().Error("commit rejected", zap.String("patient_id", p.ID), zap.Error(err))
			continue
		}
		created = append(created, a)
	}

	return created
}

// bestPair evaluates every eligible vehicle and hospital combination and keeps
// the first one with the lowest cost
func (greedyStrategy) bestPair(b *Board, p *models.Patient) (*models.Vehicle, *models.Hospital, bool) {
	vehicles := b.EligibleVehicles(p)
	hospitals := b.SuitableHospitals(p)
	if len(vehicles) == 0 || len(hospitals) == 0 {
		return nil, nil, false
	}

	var bestVehicle *models.Vehicle
	var bestHospital *models.Hospital
	bestCost := -1.0

	for _, v := range vehicles {
		for _, h := range hospitals {
			cost := b.AssignmentCost(p, v, h)
			if bestVehicle == nil || cost < bestCost {
				bestCost = cost
				bestVehicle = v
				bestHospital = h
			}
		}
	}

	return bestVehicle, bestHospital, true
}
