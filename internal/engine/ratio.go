package engine

import "math"

// SafeDiv returns a/b, or 0 when b is not positive.
func SafeDiv(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

// Percent returns num/den*100 with the same zero guard as SafeDiv.
func Percent(num, den float64) float64 {
	return SafeDiv(num, den) * 100
}

// Growth is the relative change from prev to cur in percent; 0 when prev <= 0.
func Growth(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// PointDelta is the absolute difference of two percentages (percentage points).
// It shares the prev <= 0 guard used by Growth.
func PointDelta(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return cur - prev
}

// Samples collects per-record values for averages that ignore absent data.
// Only values greater than zero are kept.
type Samples []float64

func (s *Samples) Add(v float64) {
	if v > 0 {
		*s = append(*s, v)
	}
}

// Mean of the collected values, 0 when nothing was collected.
func (s Samples) Mean() float64 {
	return Mean(s)
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance is the population variance; 0 for fewer than two values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var acc float64
	for _, v := range values {
		acc += (v - mean) * (v - mean)
	}
	return acc / float64(len(values))
}

// Consistency scores how steady a series is: 100 for no variance, falling
// towards 0 as the standard deviation grows.
func Consistency(values []float64) float64 {
	v := Variance(values)
	if v <= 0 {
		return 100
	}
	return 1 / (1 + math.Sqrt(v)) * 100
}
