package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundsentinel/internal/domain"
)

func conservative(ceiling float64) domain.UserProfile {
	return domain.UserProfile{RiskProfile: domain.RiskConservative, ExpenseRatioLimit: ceiling}
}

// Fund A: NAVs 100, 120, 90, 110 at 365, 200, 100 and 0 days ago.
// Fund B: NAVs 50, 49, 47, 45 on the same dates.
func referenceFunds() []Features {
	return []Features{
		{FundID: 1, Return1Y: 0.1, Return6M: -1.0 / 12, Volatility: 0.21755909907705734, ExpenseRatio: 1.0, RiskRating: 3},
		{FundID: 2, Return1Y: -0.1, Return6M: -4.0 / 49, Volatility: 0.010246856409378655, ExpenseRatio: 1.0, RiskRating: 3},
	}
}

func TestFallback_ReferenceScores(t *testing.T) {
	scored := Fallback(referenceFunds(), conservative(2.0), PolicyReward, 10)
	require.Len(t, scored, 2)

	assert.Equal(t, int64(2), scored[0].FundID)
	assert.Equal(t, 1, scored[0].Rank)
	assert.InDelta(t, 64.6570573075894, scored[0].Score, 1e-9)

	assert.Equal(t, int64(1), scored[1].FundID)
	assert.Equal(t, 2, scored[1].Rank)
	assert.InDelta(t, 64.63988180184589, scored[1].Score, 1e-9)

	assert.Equal(t, "Matches your Conservative risk profile", scored[0].Reason)
}

func TestFallback_VolatilityPenaltyOnlyForCautiousProfiles(t *testing.T) {
	balanced := domain.UserProfile{RiskProfile: domain.RiskBalanced, ExpenseRatioLimit: 2.0}
	scored := Fallback(referenceFunds(), balanced, PolicyReward, 10)
	require.Len(t, scored, 2)

	// 100 + 0.2 - 0.125 - 5 + 10
	assert.Equal(t, int64(1), scored[0].FundID)
	assert.InDelta(t, 105.075, scored[0].Score, 1e-9)
}

func TestFallback_TiesBreakOnFundID(t *testing.T) {
	funds := []Features{
		{FundID: 30, ExpenseRatio: 1, RiskRating: 3},
		{FundID: 10, ExpenseRatio: 1, RiskRating: 3},
		{FundID: 20, ExpenseRatio: 1, RiskRating: 3},
	}

	first := Fallback(funds, conservative(2), PolicyReward, 10)
	second := Fallback([]Features{funds[2], funds[0], funds[1]}, conservative(2), PolicyReward, 10)

	assert.Equal(t, first, second)
	assert.Equal(t, []int64{10, 20, 30}, []int64{first[0].FundID, first[1].FundID, first[2].FundID})
}

func TestFallback_TopKAndDenseRanks(t *testing.T) {
	var funds []Features
	for i := int64(1); i <= 15; i++ {
		funds = append(funds, Features{FundID: i, Return1Y: float64(i) / 100, ExpenseRatio: 1, RiskRating: 1})
	}

	scored := Fallback(funds, conservative(2), PolicyReward, 10)
	require.Len(t, scored, 10)
	for i, s := range scored {
		assert.Equal(t, i+1, s.Rank)
	}
	assert.Equal(t, int64(15), scored[0].FundID)
}

func TestFallback_ScoreClampedAtZero(t *testing.T) {
	funds := []Features{{FundID: 1, ExpenseRatio: 50, RiskRating: 5, Volatility: 10}}
	scored := Fallback(funds, conservative(1), PolicyReward, 10)
	require.Len(t, scored, 1)
	assert.Equal(t, 0.0, scored[0].Score)
}

func TestFallback_CeilingPolicies(t *testing.T) {
	funds := []Features{
		{FundID: 1, ExpenseRatio: 0.5, RiskRating: 1},
		{FundID: 2, ExpenseRatio: 2.5, RiskRating: 1},
	}

	reward := Fallback(funds, conservative(1.0), PolicyReward, 10)
	require.Len(t, reward, 2)
	// 100 - 2.5 + 10 vs 100 - 12.5
	assert.InDelta(t, 107.5, reward[0].Score, 1e-9)
	assert.InDelta(t, 87.5, reward[1].Score, 1e-9)

	filter := Fallback(funds, conservative(1.0), PolicyFilter, 10)
	require.Len(t, filter, 1)
	assert.Equal(t, int64(1), filter[0].FundID)
	assert.InDelta(t, 97.5, filter[0].Score, 1e-9)
}

func TestBuildFeatures_DefaultsOnlyForMissingValues(t *testing.T) {
	zero := 0.0
	er := 0.4
	funds := []domain.FundWithMetrics{
		{Fund: domain.Fund{ID: 1, RiskRating: "High"}},
		{
			Fund:    domain.Fund{ID: 2, RiskRating: "Low", ExpenseRatio: &er, AUM: &zero},
			Metrics: &domain.FundMetrics{Return1Y: &zero, Volatility: &zero},
		},
	}

	features := BuildFeatures(funds)
	require.Len(t, features, 2)

	assert.Equal(t, Features{
		FundID: 1, Volatility: DefaultVolatility, ExpenseRatio: DefaultExpenseRatio,
		AUM: DefaultAUM, RiskRating: 5,
	}, features[0])

	assert.Equal(t, Features{FundID: 2, ExpenseRatio: 0.4, RiskRating: 1}, features[1])
}
