// Package formulas holds the pure return and risk calculations used by the metrics engine.
package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (mean of squared
// deviations from the mean, square-rooted). Returns ok=false for empty input.
func PopStdDev(data []float64) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std, true
}

// SimpleReturn returns (current - past) / past.
// ok is false when past is zero and the ratio is undefined.
func SimpleReturn(current, past float64) (float64, bool) {
	if past == 0 {
		return 0, false
	}
	return (current - past) / past, true
}

// DailyReturns converts an ascending price series to consecutive-pair returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; pairs whose base price is
// zero are skipped.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if r, ok := SimpleReturn(prices[i], prices[i-1]); ok {
			returns = append(returns, r)
		}
	}

	return returns
}
