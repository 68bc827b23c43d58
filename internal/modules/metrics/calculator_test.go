package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundsentinel/internal/domain"
)

var asOf = time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)

func series(fundID int64, daysAgo []int, prices []float64) []domain.PriceObservation {
	out := make([]domain.PriceObservation, len(daysAgo))
	for i := range daysAgo {
		out[i] = domain.PriceObservation{
			FundID: fundID,
			Date:   asOf.AddDate(0, 0, -daysAgo[i]),
			Value:  prices[i],
		}
	}
	return out
}

func TestCalculate_SingleObservationIsSkipped(t *testing.T) {
	_, ok := Calculate(series(1, []int{0}, []float64{10}), asOf)
	assert.False(t, ok)

	_, ok = Calculate(nil, asOf)
	assert.False(t, ok)
}

func TestCalculate_WindowsOmittedWithoutOldEnoughData(t *testing.T) {
	m, ok := Calculate(series(1, []int{45, 0}, []float64{100, 105}), asOf)
	require.True(t, ok)

	require.NotNil(t, m.Return1M)
	assert.InDelta(t, 0.05, *m.Return1M, 1e-12)
	assert.Nil(t, m.Return3M)
	assert.Nil(t, m.Return6M)
	assert.Nil(t, m.Return1Y)
	assert.Nil(t, m.Volatility, "one daily return is not enough")
	assert.Equal(t, asOf, m.ComputedAt)
}

func TestCalculate_400DaySeries(t *testing.T) {
	var days []int
	var prices []float64
	// Newest first, as the repository returns them
	for ago := 0; ago < 400; ago++ {
		days = append(days, ago)
		prices = append(prices, 100+float64(399-ago))
	}

	m, ok := Calculate(series(7, days, prices), asOf)
	require.True(t, ok)
	assert.Equal(t, int64(7), m.FundID)

	latest := 499.0
	expect := func(window int) float64 {
		past := 100 + float64(399-window)
		return (latest - past) / past
	}
	require.NotNil(t, m.Return1M)
	require.NotNil(t, m.Return3M)
	require.NotNil(t, m.Return6M)
	require.NotNil(t, m.Return1Y)
	assert.InDelta(t, expect(30), *m.Return1M, 1e-12)
	assert.InDelta(t, expect(90), *m.Return3M, 1e-12)
	assert.InDelta(t, expect(180), *m.Return6M, 1e-12)
	assert.InDelta(t, expect(365), *m.Return1Y, 1e-12)

	require.NotNil(t, m.Volatility)
	assert.Greater(t, *m.Volatility, 0.0)
}

func TestCalculate_PicksMostRecentObservationAtOrBeforeTarget(t *testing.T) {
	// Irregular calendar: nothing exactly 30 days back
	m, ok := Calculate(series(1, []int{0, 29, 31, 40}, []float64{120, 999, 100, 50}), asOf)
	require.True(t, ok)

	require.NotNil(t, m.Return1M)
	assert.InDelta(t, 0.2, *m.Return1M, 1e-12)
}

func TestCalculate_InputOrderDoesNotMatter(t *testing.T) {
	desc, ok := Calculate(series(1, []int{0, 100, 200, 365}, []float64{110, 90, 120, 100}), asOf)
	require.True(t, ok)
	asc, ok := Calculate(series(1, []int{365, 200, 100, 0}, []float64{100, 120, 90, 110}), asOf)
	require.True(t, ok)

	assert.Equal(t, desc, asc)
}

func TestCalculate_ConstantSeriesHasZeroVolatility(t *testing.T) {
	var days []int
	var prices []float64
	for ago := 0; ago <= 365; ago += 5 {
		days = append(days, ago)
		prices = append(prices, 42)
	}

	m, ok := Calculate(series(1, days, prices), asOf)
	require.True(t, ok)
	require.NotNil(t, m.Volatility)
	assert.Equal(t, 0.0, *m.Volatility)
	require.NotNil(t, m.Return1Y)
	assert.Equal(t, 0.0, *m.Return1Y)
}

func TestCalculate_AlternatingSeriesVolatility(t *testing.T) {
	m, ok := Calculate(series(1, []int{2, 1, 0}, []float64{100, 110, 100}), asOf)
	require.True(t, ok)

	// returns 0.1 and -1/11; population std is half their distance
	want := (0.1 + 1.0/11.0) / 2
	require.NotNil(t, m.Volatility)
	assert.InDelta(t, want, *m.Volatility, 1e-12)
}

func TestCalculate_VolatilityIgnoresObservationsOlderThanAYear(t *testing.T) {
	withOld, ok := Calculate(series(1, []int{500, 2, 1, 0}, []float64{1, 100, 110, 100}), asOf)
	require.True(t, ok)
	without, ok := Calculate(series(1, []int{2, 1, 0}, []float64{100, 110, 100}), asOf)
	require.True(t, ok)

	require.NotNil(t, withOld.Volatility)
	assert.InDelta(t, *without.Volatility, *withOld.Volatility, 1e-15)
}

func TestCalculate_ZeroPastPriceOmitsReturn(t *testing.T) {
	m, ok := Calculate(series(1, []int{0, 400}, []float64{10, 0}), asOf)
	require.True(t, ok)
	assert.Nil(t, m.Return1Y)
}

func TestCalculate_ReferenceFunds(t *testing.T) {
	days := []int{365, 200, 100, 0}

	a, ok := Calculate(series(1, days, []float64{100, 120, 90, 110}), asOf)
	require.True(t, ok)
	assert.InDelta(t, 0.1, *a.Return1Y, 1e-12)
	assert.InDelta(t, -1.0/12.0, *a.Return6M, 1e-12)
	assert.InDelta(t, 2.0/9.0, *a.Return3M, 1e-12)
	assert.InDelta(t, 2.0/9.0, *a.Return1M, 1e-12)
	assert.InDelta(t, 0.21755909907705734, *a.Volatility, 1e-12)

	b, ok := Calculate(series(2, days, []float64{50, 49, 47, 45}), asOf)
	require.True(t, ok)
	assert.InDelta(t, -0.1, *b.Return1Y, 1e-12)
	assert.InDelta(t, -4.0/49.0, *b.Return6M, 1e-12)
	assert.InDelta(t, -2.0/47.0, *b.Return1M, 1e-12)
	assert.InDelta(t, 0.010246856409378655, *b.Volatility, 1e-12)

	assert.False(t, math.IsNaN(*b.Volatility))
}
