package profile

import "github.com/aristath/fundsentinel/internal/domain"

// Input is a full create-or-replace payload
type Input struct {
	RiskProfile        string  `json:"risk_profile" validate:"required,oneof=Conservative Balanced Aggressive"`
	BudgetType         string  `json:"budget_type" validate:"required,oneof=SIP Lumpsum"`
	InvestmentGoal     string  `json:"investment_goal" validate:"required,max=200"`
	InvestmentHorizon  int     `json:"investment_horizon" validate:"required,gte=1,lte=50"`
	BudgetAmount       float64 `json:"budget_amount" validate:"gt=0"`
	ExpenseRatioLimit  float64 `json:"expense_ratio_limit" validate:"gt=0,lte=10"`
	DividendPreference bool    `json:"dividend_preference"`
}

// Patch is a partial update; nil fields are kept
type Patch struct {
	RiskProfile        *string  `json:"risk_profile" validate:"omitempty,oneof=Conservative Balanced Aggressive"`
	BudgetType         *string  `json:"budget_type" validate:"omitempty,oneof=SIP Lumpsum"`
	InvestmentGoal     *string  `json:"investment_goal" validate:"omitempty,min=1,max=200"`
	InvestmentHorizon  *int     `json:"investment_horizon" validate:"omitempty,gte=1,lte=50"`
	BudgetAmount       *float64 `json:"budget_amount" validate:"omitempty,gt=0"`
	ExpenseRatioLimit  *float64 `json:"expense_ratio_limit" validate:"omitempty,gt=0,lte=10"`
	DividendPreference *bool    `json:"dividend_preference"`
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return p.RiskProfile == nil && p.BudgetType == nil && p.InvestmentGoal == nil &&
		p.InvestmentHorizon == nil && p.BudgetAmount == nil && p.ExpenseRatioLimit == nil &&
		p.DividendPreference == nil
}

func (in Input) apply(p *domain.UserProfile) {
	p.RiskProfile = domain.RiskProfile(in.RiskProfile)
	p.BudgetType = domain.BudgetType(in.BudgetType)
	p.InvestmentGoal = in.InvestmentGoal
	p.InvestmentHorizon = in.InvestmentHorizon
	p.BudgetAmount = in.BudgetAmount
	p.ExpenseRatioLimit = in.ExpenseRatioLimit
	p.DividendPreference = in.DividendPreference
}

func (p Patch) apply(profile *domain.UserProfile) {
	if p.RiskProfile != nil {
		profile.RiskProfile = domain.RiskProfile(*p.RiskProfile)
	}
	if p.BudgetType != nil {
		profile.BudgetType = domain.BudgetType(*p.BudgetType)
	}
	if p.InvestmentGoal != nil {
		profile.InvestmentGoal = *p.InvestmentGoal
	}
	if p.InvestmentHorizon != nil {
		profile.InvestmentHorizon = *p.InvestmentHorizon
	}
	if p.BudgetAmount != nil {
		profile.BudgetAmount = *p.BudgetAmount
	}
	if p.ExpenseRatioLimit != nil {
		profile.ExpenseRatioLimit = *p.ExpenseRatioLimit
	}
	if p.DividendPreference != nil {
		profile.DividendPreference = *p.DividendPreference
	}
}
