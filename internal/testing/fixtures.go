package testing

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/fundsentinel/internal/domain"
)

// FundFixture describes a catalog row inserted directly by tests
type FundFixture struct {
	ExpenseRatio *float64
	AUM          *float64
	SchemeCode   string
	SchemeName   string
	Category     string
	RiskRating   string
	IsDividend   bool
	Inactive     bool
}

// InsertFund writes a fund row and returns its id
func InsertFund(t *testing.T, db *sql.DB, f FundFixture) int64 {
	t.Helper()

	now := time.Now().Unix()
	res, err := db.Exec(`
		INSERT INTO funds (scheme_code, scheme_name, category, expense_ratio, aum, risk_rating,
			is_dividend, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.SchemeCode, f.SchemeName, f.Category, nullFloat(f.ExpenseRatio), nullFloat(f.AUM),
		f.RiskRating, boolToInt(f.IsDividend), boolToInt(!f.Inactive), now, now)
	if err != nil {
		t.Fatalf("Failed to insert fund %s: %v", f.SchemeCode, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read fund id: %v", err)
	}
	return id
}

// InsertPrices writes one observation per (date, value) pair for fundID
func InsertPrices(t *testing.T, db *sql.DB, fundID int64, dates []time.Time, values []float64) {
	t.Helper()

	if len(dates) != len(values) {
		t.Fatalf("InsertPrices: %d dates for %d values", len(dates), len(values))
	}
	now := time.Now().Unix()
	for i := range dates {
		_, err := db.Exec(`INSERT INTO price_history (fund_id, nav_date, nav_value, created_at) VALUES (?, ?, ?, ?)`,
			fundID, dates[i].UTC().Format(domain.DateLayout), values[i], now)
		if err != nil {
			t.Fatalf("Failed to insert price for fund %d: %v", fundID, err)
		}
	}
}

// Day returns UTC midnight of the given calendar date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FloatPtr returns a pointer to f
func FloatPtr(f float64) *float64 {
	return &f
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
