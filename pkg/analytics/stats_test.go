package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5, s.Mean, 1e-9)
	assert.InDelta(t, 2.138, s.Std, 1e-3)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 2.0, s.Min)

	assert.Zero(t, summarize(nil).Mean)
	assert.Zero(t, summarize([]float64{3}).Std)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	assert.Zero(t, median(nil))
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1, pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1, pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-9)
	assert.Zero(t, pearson([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.Zero(t, pearson([]float64{1}, []float64{1}))
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2, slope([]float64{1, 3, 5, 7}), 1e-9)
	assert.Zero(t, slope([]float64{4}))
	assert.Zero(t, slope(nil))
}

func TestSpeedAndDirection(t *testing.T) {
	assert.Equal(t, "rápida", speed(-2.5))
	assert.Equal(t, "moderada", speed(1))
	assert.Equal(t, "lenta", speed(0.5))
	assert.Equal(t, "negativa", direction(-0.1))
	assert.Equal(t, "estable", direction(0))
}
