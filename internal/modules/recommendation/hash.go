package recommendation

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/aristath/fundsentinel/internal/domain"
)

// hashedProfile is the canonical form of the fields that drive a ranking.
// Field order is fixed by the struct, so the encoding is stable.
type hashedProfile struct {
	RiskProfile        string  `json:"risk_profile"`
	InvestmentHorizon  int     `json:"investment_horizon"`
	ExpenseRatioLimit  float64 `json:"expense_ratio_limit"`
	DividendPreference bool    `json:"dividend_preference"`
	BudgetType         string  `json:"budget_type"`
	InvestmentGoal     string  `json:"investment_goal"`
}

// ProfileHash digests the ranking-relevant profile fields. Identity,
// timestamps and budget amount do not participate.
func ProfileHash(p domain.UserProfile) string {
	data, _ := json.Marshal(hashedProfile{
		RiskProfile:        string(p.RiskProfile),
		InvestmentHorizon:  p.InvestmentHorizon,
		ExpenseRatioLimit:  p.ExpenseRatioLimit,
		DividendPreference: p.DividendPreference,
		BudgetType:         string(p.BudgetType),
		InvestmentGoal:     p.InvestmentGoal,
	})
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
