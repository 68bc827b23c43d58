package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopStdDev(t *testing.T) {
	t.Run("constant series has zero deviation", func(t *testing.T) {
		std, ok := PopStdDev([]float64{0, 0, 0, 0})
		require.True(t, ok)
		assert.Equal(t, 0.0, std)
	})

	t.Run("uses population denominator", func(t *testing.T) {
		// mean 5, squared deviations sum 32, /8 = 4, sqrt = 2
		std, ok := PopStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		require.True(t, ok)
		assert.InDelta(t, 2.0, std, 1e-12)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := PopStdDev(nil)
		assert.False(t, ok)
	})
}

func TestDailyReturns(t *testing.T) {
	returns := DailyReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -0.1, returns[1], 1e-12)

	assert.Empty(t, DailyReturns([]float64{100}))
	assert.Len(t, DailyReturns([]float64{0, 10, 20}), 1, "zero base price pair is skipped")
}

func TestSimpleReturn(t *testing.T) {
	r, ok := SimpleReturn(110, 100)
	require.True(t, ok)
	assert.InDelta(t, 0.1, r, 1e-12)

	_, ok = SimpleReturn(10, 0)
	assert.False(t, ok)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.False(t, math.IsNaN(Mean([]float64{1})))
}
