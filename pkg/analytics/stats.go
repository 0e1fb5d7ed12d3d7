package analytics

import (
	"math"
	"sort"
)

// summary holds the usual aggregates of a column. Empty input yields zeros.
type summary struct {
	Count int
	Sum   float64
	Mean  float64
	Max   float64
	Min   float64
	Std   float64
}

func summarize(xs []float64) summary {
	s := summary{Count: len(xs)}
	if len(xs) == 0 {
		return s
	}
	s.Max, s.Min = xs[0], xs[0]
	for _, x := range xs {
		s.Sum += x
		s.Max = math.Max(s.Max, x)
		s.Min = math.Min(s.Min, x)
	}
	s.Mean = s.Sum / float64(len(xs))
	s.Std = stdDev(xs, s.Mean)
	return s
}

// stdDev is the sample standard deviation; fewer than two points give 0.
func stdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var acc float64
	for _, x := range xs {
		d := x - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(xs)-1))
}

func mean(xs []float64) float64 {
	return summarize(xs).Mean
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// pearson returns 0 when either series has no variance.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// slope fits y = a + b*x by least squares over x = 0..len(ys)-1.
func slope(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0
	}
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
