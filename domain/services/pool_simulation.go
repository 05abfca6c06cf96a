package services

import (
	"fmt"
	"math"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
)

// PrizeFrequency compares a prize's configured share with how often it won
// in a simulation
type PrizeFrequency struct {
	PrizeID   int64   `json:"prizeId"`
	PrizeName string  `json:"prizeName"`
	IsFiller  bool    `json:"isFiller"`
	Expected  float64 `json:"expected"` // configured probability
	Observed  float64 `json:"observed"`
	Wins      int     `json:"wins"`
	Deviation float64 `json:"deviation"` // observed - expected
}

// PoolSimulation is the result of repeatedly drawing from one pool snapshot.
// Stock is not consumed between trials.
type PoolSimulation struct {
	Trials     int               `json:"trials"`
	Prizes     []*PrizeFrequency `json:"prizes"`
	ChiSquared float64           `json:"chiSquared"`
}

// SimulatePool draws trials times from the active prizes with the same pool
// construction and cumulative walk a real draw uses
func SimulatePool(active []*entities.Prize, trials int, random RandomSource) (*PoolSimulation, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", trials)
	}

	pool, forced, err := BuildDrawPool(active)
	if err != nil {
		return nil, err
	}
	if forced != nil {
		pool = []*entities.Prize{forced}
	}

	total := TotalWeight(pool)
	if total <= 0 && forced == nil {
		return nil, domain.ErrNoPrizesAvailable
	}

	wins := make(map[int64]int, len(pool))
	for i := 0; i < trials; i++ {
		u, err := random.Float64()
		if err != nil {
			return nil, err
		}
		wins[SelectPrize(pool, u*total).ID]++
	}

	result := &PoolSimulation{Trials: trials}
	for _, p := range pool {
		expected := p.Weight / total
		if forced != nil {
			expected = 1
		}
		observed := float64(wins[p.ID]) / float64(trials)
		result.Prizes = append(result.Prizes, &PrizeFrequency{
			PrizeID:   p.ID,
			PrizeName: p.Name,
			IsFiller:  p.IsFiller,
			Expected:  expected,
			Observed:  observed,
			Wins:      wins[p.ID],
			Deviation: observed - expected,
		})

		expectedWins := expected * float64(trials)
		if expectedWins > 0 {
			result.ChiSquared += math.Pow(float64(wins[p.ID])-expectedWins, 2) / expectedWins
		}
	}

	return result, nil
}
