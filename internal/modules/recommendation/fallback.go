package recommendation

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/fundsentinel/internal/domain"
)

// ExpensePolicy selects how the fallback treats the user's expense ceiling
type ExpensePolicy string

const (
	// PolicyReward scores every fund and adds a bonus within the ceiling
	PolicyReward ExpensePolicy = "reward"
	// PolicyFilter drops funds above the ceiling and gives no bonus
	PolicyFilter ExpensePolicy = "filter"
)

// Fallback scoring weights
const (
	riskMatchWeight    = 20.0
	return1YWeight     = 2.0
	return6MWeight     = 1.5
	expenseWeight      = 5.0
	withinCeilingBonus = 10.0
	volatilityWeight   = 2.0
	cautiousRiskLevel  = 2.0
	riskScaleTop       = 5.0
)

// Scored is one ranked fund
type Scored struct {
	Reason string
	FundID int64
	Score  float64
	Rank   int
}

// Fallback ranks funds locally. The result is fully determined by its
// inputs: ties on score are broken by ascending fund id.
func Fallback(funds []Features, profile domain.UserProfile, policy ExpensePolicy, topK int) []Scored {
	userRisk := profile.RiskProfile.Level()
	ceiling := profile.ExpenseRatioLimit
	reason := fmt.Sprintf("Matches your %s risk profile", profile.RiskProfile)

	scored := make([]Scored, 0, len(funds))
	for _, f := range funds {
		within := f.ExpenseRatio <= ceiling
		if policy == PolicyFilter && !within {
			continue
		}

		score := (riskScaleTop - math.Abs(f.RiskRating-userRisk)) * riskMatchWeight
		score += f.Return1Y * return1YWeight
		score += f.Return6M * return6MWeight
		score -= f.ExpenseRatio * expenseWeight
		if within && policy != PolicyFilter {
			score += withinCeilingBonus
		}
		if userRisk <= cautiousRiskLevel {
			score -= f.Volatility * volatilityWeight
		}

		scored = append(scored, Scored{FundID: f.FundID, Score: math.Max(0, score), Reason: reason})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].FundID < scored[j].FundID
	})

	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}
