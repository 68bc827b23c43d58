// Package domain provides core domain models and types.
package domain

import "time"

// DateLayout is the storage and wire format of observation dates
const DateLayout = "2006-01-02"

// RiskProfile is the user's qualitative risk tolerance
type RiskProfile string

const (
	RiskConservative RiskProfile = "Conservative"
	RiskBalanced     RiskProfile = "Balanced"
	RiskAggressive   RiskProfile = "Aggressive"
)

// Level maps the profile to the 1..5 scale used by fund risk ratings.
// Unrecognized values map to the middle of the scale.
func (r RiskProfile) Level() float64 {
	switch r {
	case RiskConservative:
		return 1
	case RiskAggressive:
		return 5
	default:
		return 3
	}
}

// BudgetType is how the user contributes
type BudgetType string

const (
	BudgetSIP     BudgetType = "SIP"
	BudgetLumpsum BudgetType = "Lumpsum"
)

// Fund is a catalog entry, keyed externally by its scheme code.
// ExpenseRatio, AUM, RiskRating and FundHouse are maintained out-of-band;
// the feed never touches them.
type Fund struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ExpenseRatio *float64  `json:"expense_ratio,omitempty"`
	AUM          *float64  `json:"aum,omitempty"`
	SchemeCode   string    `json:"scheme_code"`
	SchemeName   string    `json:"scheme_name"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category,omitempty"`
	FundHouse    string    `json:"fund_house,omitempty"`
	RiskRating   string    `json:"risk_rating,omitempty"`
	ID           int64     `json:"fund_id"`
	IsDividend   bool      `json:"is_dividend"`
	IsActive     bool      `json:"is_active"`
}

// RiskLevel encodes the qualitative rating on the 1..5 scale
func (f Fund) RiskLevel() float64 {
	switch f.RiskRating {
	case "High":
		return 5
	case "Low":
		return 1
	default:
		return 3
	}
}

// PriceObservation is one fund's NAV on one date
type PriceObservation struct {
	Date   time.Time `json:"nav_date"`
	FundID int64     `json:"fund_id"`
	Value  float64   `json:"nav_value"`
}

// FundMetrics is a computed snapshot. Nil fields were omitted because the
// history did not reach far enough back.
type FundMetrics struct {
	ComputedAt time.Time `json:"computed_at"`
	Return1M   *float64  `json:"return_1m,omitempty"`
	Return3M   *float64  `json:"return_3m,omitempty"`
	Return6M   *float64  `json:"return_6m,omitempty"`
	Return1Y   *float64  `json:"return_1y,omitempty"`
	Volatility *float64  `json:"volatility,omitempty"`
	FundID     int64     `json:"fund_id"`
}

// FundWithMetrics joins a catalog entry with its latest snapshot (may be nil)
type FundWithMetrics struct {
	Fund
	Metrics *FundMetrics `json:"metrics,omitempty"`
}

// UserProfile captures the inputs that drive recommendations
type UserProfile struct {
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	UserID             string      `json:"user_id"`
	RiskProfile        RiskProfile `json:"risk_profile"`
	BudgetType         BudgetType  `json:"budget_type"`
	InvestmentGoal     string      `json:"investment_goal"`
	InvestmentHorizon  int         `json:"investment_horizon"`
	BudgetAmount       float64     `json:"budget_amount"`
	ExpenseRatioLimit  float64     `json:"expense_ratio_limit"`
	DividendPreference bool        `json:"dividend_preference"`
}

// RecommendationSource records which path produced a set
type RecommendationSource string

const (
	SourceOracle   RecommendationSource = "oracle"
	SourceFallback RecommendationSource = "fallback"
	SourceCache    RecommendationSource = "cache"
)

// Recommendation is one ranked member of a user's set
type Recommendation struct {
	CreatedAt   time.Time            `json:"created_at"`
	UserID      string               `json:"user_id"`
	SetID       string               `json:"set_id"`
	Reason      string               `json:"reason"`
	ProfileHash string               `json:"profile_hash"`
	Source      RecommendationSource `json:"source"`
	FundID      int64                `json:"fund_id"`
	Score       float64              `json:"score"`
	Rank        int                  `json:"rank"`
}
