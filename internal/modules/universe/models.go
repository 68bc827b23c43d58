package universe

import "github.com/aristath/fundsentinel/internal/domain"

// UpsertResult reports what one reconciliation pass changed
type UpsertResult struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// FundQuery filters and pages the active catalog
type FundQuery struct {
	Category string
	Search   string // case-insensitive substring of scheme_name
	SortBy   string
	Order    string // asc or desc
	Page     int
	Limit    int
}

// FundPage is one page of List results
type FundPage struct {
	Funds []domain.FundWithMetrics `json:"funds"`
	Total int                      `json:"total"`
}

// CategoryCount is the number of active funds in one category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FundAttributes are the out-of-band fields the feed never carries.
// Nil fields are left as they are.
type FundAttributes struct {
	ExpenseRatio *float64 `json:"expense_ratio" validate:"omitempty,gte=0,lte=10"`
	AUM          *float64 `json:"aum" validate:"omitempty,gte=0"`
	RiskRating   *string  `json:"risk_rating" validate:"omitempty,oneof=Low Moderate 'Moderately High' High"`
	FundHouse    *string  `json:"fund_house" validate:"omitempty,max=200"`
	SubCategory  *string  `json:"sub_category" validate:"omitempty,max=200"`
	IsDividend   *bool    `json:"is_dividend"`
}

// Empty reports whether no attribute is set
func (a FundAttributes) Empty() bool {
	return a.ExpenseRatio == nil && a.AUM == nil && a.RiskRating == nil &&
		a.FundHouse == nil && a.SubCategory == nil && a.IsDividend == nil
}

// sortColumns whitelists List ordering
var sortColumns = map[string]string{
	"scheme_name":   "f.scheme_name",
	"scheme_code":   "f.scheme_code",
	"category":      "f.category",
	"expense_ratio": "f.expense_ratio",
	"aum":           "f.aum",
	"created_at":    "f.created_at",
	"return_1m":     "m.return_1m",
	"return_3m":     "m.return_3m",
	"return_6m":     "m.return_6m",
	"return_1y":     "m.return_1y",
	"volatility":    "m.volatility",
}

// Pagination bounds of List
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps paging and resolves defaults
func (q FundQuery) Normalize() FundQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		q.SortBy = "scheme_name"
	}
	if q.Order != "desc" {
		q.Order = "asc"
	}
	return q
}
