package recommendation

import (
	"strconv"

	"github.com/aristath/fundsentinel/internal/clients/oracle"
	"github.com/aristath/fundsentinel/internal/domain"
)

// Feature defaults for funds without metrics or out-of-band attributes
const (
	DefaultReturn       = 0.0
	DefaultVolatility   = 10.0
	DefaultExpenseRatio = 1.5
	DefaultAUM          = 100.0
)

// Features is the scoring input of one fund, defaults already applied
type Features struct {
	FundID       int64
	Return1M     float64
	Return3M     float64
	Return6M     float64
	Return1Y     float64
	Volatility   float64
	ExpenseRatio float64
	AUM          float64
	RiskRating   float64
}

// BuildFeatures converts catalog rows to feature vectors. A default is
// used only when the value is absent; a stored zero stays zero.
func BuildFeatures(funds []domain.FundWithMetrics) []Features {
	out := make([]Features, 0, len(funds))
	for _, f := range funds {
		v := Features{
			FundID:       f.ID,
			Return1M:     DefaultReturn,
			Return3M:     DefaultReturn,
			Return6M:     DefaultReturn,
			Return1Y:     DefaultReturn,
			Volatility:   DefaultVolatility,
			ExpenseRatio: valueOr(f.ExpenseRatio, DefaultExpenseRatio),
			AUM:          valueOr(f.AUM, DefaultAUM),
			RiskRating:   f.RiskLevel(),
		}
		if m := f.Metrics; m != nil {
			v.Return1M = valueOr(m.Return1M, DefaultReturn)
			v.Return3M = valueOr(m.Return3M, DefaultReturn)
			v.Return6M = valueOr(m.Return6M, DefaultReturn)
			v.Return1Y = valueOr(m.Return1Y, DefaultReturn)
			v.Volatility = valueOr(m.Volatility, DefaultVolatility)
		}
		out = append(out, v)
	}
	return out
}

func (f Features) wire() oracle.FeatureVector {
	return oracle.FeatureVector{
		FundID:       strconv.FormatInt(f.FundID, 10),
		Return1M:     f.Return1M,
		Return3M:     f.Return3M,
		Return6M:     f.Return6M,
		Return1Y:     f.Return1Y,
		Volatility:   f.Volatility,
		ExpenseRatio: f.ExpenseRatio,
		AUM:          f.AUM,
		RiskRating:   f.RiskRating,
	}
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
