package services

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
)

// RandomSource yields uniformly distributed values in [0, 1)
type RandomSource interface {
	Float64() (float64, error)
}

// float64Mantissa is the number of distinct values a float64 in [0, 1) can hold
// with uniform spacing
const float64Mantissa = 1 << 53

type cryptoRandomSource struct{}

// NewCryptoRandomSource returns a RandomSource backed by crypto/rand
func NewCryptoRandomSource() RandomSource {
	return cryptoRandomSource{}
}

func (cryptoRandomSource) Float64() (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(float64Mantissa))
	if err != nil {
		return 0, fmt.Errorf("random generation failed: %w", err)
	}
	return float64(n.Int64()) / float64Mantissa, nil
}

// NormalWeightSum sums the weights of active non-filler prizes, skipping
// excludeID when it is non-nil
func NormalWeightSum(prizes []*entities.Prize, excludeID *int64) float64 {
	sum := 0.0
	for _, p := range prizes {
		if !p.CountsTowardWeightCap() {
			continue
		}
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		sum += p.Weight
	}
	return sum
}

// DeriveFillerWeight returns the filler weight that completes the pool to 100
func DeriveFillerWeight(normalSum float64) float64 {
	w := entities.FullWeight - normalSum
	if w < entities.WeightEpsilon {
		return 0
	}
	return w
}

// CheckWeightCap returns a WeightOverflowError when sum exceeds 100
func CheckWeightCap(sum float64) error {
	if sum > entities.FullWeight+entities.WeightEpsilon {
		return &domain.WeightOverflowError{Sum: sum}
	}
	return nil
}

// SummarizePool describes how the probability mass of prizes is split
func SummarizePool(prizes []*entities.Prize) *entities.PrizePoolSummary {
	summary := &entities.PrizePoolSummary{}
	for _, p := range prizes {
		if p.IsActive {
			summary.ActivePrizeCount++
		}
		if p.IsFiller {
			summary.HasFiller = true
			summary.FillerWeight = p.Weight
			summary.FillerActive = p.IsActive
		}
	}
	summary.NormalWeightSum = NormalWeightSum(prizes, nil)
	summary.Headroom = math.Max(0, entities.FullWeight-summary.NormalWeightSum)
	summary.Valid = CheckWeightCap(summary.NormalWeightSum) == nil
	return summary
}

// BuildDrawPool turns the active prizes into the ordered list a draw walks.
// Normal prizes with stock keep their creation order and the filler, when
// present, goes last. forced is set when no normal prize has stock and the
// outcome can only be the filler.
func BuildDrawPool(active []*entities.Prize) (pool []*entities.Prize, forced *entities.Prize, err error) {
	if len(active) == 0 {
		return nil, nil, domain.ErrNoPrizesAvailable
	}

	var filler *entities.Prize
	normalSum := 0.0
	for _, p := range active {
		if !p.IsActive {
			continue
		}
		if p.IsFiller {
			if filler == nil {
				filler = p
			}
			continue
		}
		normalSum += p.Weight
		// Zero weight prizes can never be selected, keep them out of the fall-through slot
		if p.Stock > 0 && p.Weight > 0 {
			pool = append(pool, p)
		}
	}

	// Blocks drawing even when the overweight prizes are out of stock
	if err := CheckWeightCap(normalSum); err != nil {
		return nil, nil, err
	}

	if len(pool) == 0 {
		if filler == nil {
			return nil, nil, domain.ErrNoPrizesAvailable
		}
		return nil, filler, nil
	}

	if filler != nil {
		pool = append(pool, filler)
	}

	if err := CheckWeightCap(TotalWeight(pool)); err != nil {
		return nil, nil, err
	}

	return pool, nil, nil
}

// TotalWeight sums the weights of pool
func TotalWeight(pool []*entities.Prize) float64 {
	total := 0.0
	for _, p := range pool {
		total += p.Weight
	}
	return total
}

// SelectPrize walks pool accumulating weight and returns the first prize
// whose cumulative weight is strictly greater than r. If rounding keeps the
// running total at or below r, the last prize wins.
func SelectPrize(pool []*entities.Prize, r float64) *entities.Prize {
	if len(pool) == 0 {
		return nil
	}
	cumulative := 0.0
	for _, p := range pool {
		cumulative += p.Weight
		if cumulative > r {
			return p
		}
	}
	return pool[len(pool)-1]
}
