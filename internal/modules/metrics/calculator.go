// Package metrics derives trailing returns and volatility from NAV history.
package metrics

import (
	"sort"
	"time"

	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/pkg/formulas"
)

const day = 24 * time.Hour

// Trailing windows in days
const (
	Window1M = 30
	Window3M = 90
	Window6M = 180
	Window1Y = 365
)

// VolatilityWindowDays bounds the series used for volatility
const VolatilityWindowDays = 365

// MinObservations is the smallest history a fund needs to be computed
const MinObservations = 2

// minDailyReturns is the smallest return series volatility is reported for
const minDailyReturns = 2

// Calculate computes one snapshot as of now. obs may be in any order.
// Returns ok=false when the fund has fewer than MinObservations points.
func Calculate(obs []domain.PriceObservation, now time.Time) (domain.FundMetrics, bool) {
	if len(obs) < MinObservations {
		return domain.FundMetrics{}, false
	}

	desc := make([]domain.PriceObservation, len(obs))
	copy(desc, obs)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Date.After(desc[j].Date) })

	m := domain.FundMetrics{
		FundID:     desc[0].FundID,
		ComputedAt: now,
		Return1M:   trailingReturn(desc, now, Window1M),
		Return3M:   trailingReturn(desc, now, Window3M),
		Return6M:   trailingReturn(desc, now, Window6M),
		Return1Y:   trailingReturn(desc, now, Window1Y),
		Volatility: volatility(desc, now),
	}
	return m, true
}

// trailingReturn compares the latest price with the most recent observation
// dated at or before now minus the window. desc must be newest first.
func trailingReturn(desc []domain.PriceObservation, now time.Time, days int) *float64 {
	target := now.Add(-time.Duration(days) * day)
	latest := desc[0].Value

	for _, o := range desc {
		if o.Date.After(target) {
			continue
		}
		r, ok := formulas.SimpleReturn(latest, o.Value)
		if !ok {
			return nil
		}
		return &r
	}
	return nil
}

// volatility is the population standard deviation of consecutive returns
// over the trailing year
func volatility(desc []domain.PriceObservation, now time.Time) *float64 {
	cutoff := now.Add(-VolatilityWindowDays * day)

	prices := make([]float64, 0, len(desc))
	for i := len(desc) - 1; i >= 0; i-- {
		if desc[i].Date.Before(cutoff) {
			continue
		}
		prices = append(prices, desc[i].Value)
	}

	returns := formulas.DailyReturns(prices)
	if len(returns) < minDailyReturns {
		return nil
	}
	std, ok := formulas.PopStdDev(returns)
	if !ok {
		return nil
	}
	return &std
}
