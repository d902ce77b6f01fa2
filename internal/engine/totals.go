package engine

// Sum adds field over all groups.
func Sum[G any](groups []G, field func(G) float64) float64 {
	var total float64
	for _, g := range groups {
		total += field(g)
	}
	return total
}

// WeightedAverage rebuilds a footer average from per-group averages:
// Σ(avg·weight) / Σweight. It never averages the averages directly.
func WeightedAverage[G any](groups []G, avg, weight func(G) float64) float64 {
	var num, den float64
	for _, g := range groups {
		w := weight(g)
		num += avg(g) * w
		den += w
	}
	return SafeDiv(num, den)
}

// Comparison says how a metric changes between two periods.
type Comparison struct {
	Metric MetricKey
	// Points compares percentages as an absolute difference instead of
	// relative growth.
	Points bool
}

// Change computes the period-over-period change for each comparison.
func Change[G Measured](cur, prev G, comps []Comparison) map[MetricKey]float64 {
	out := make(map[MetricKey]float64, len(comps))
	for _, c := range comps {
		if c.Points {
			out[c.Metric] = PointDelta(cur.Metric(c.Metric), prev.Metric(c.Metric))
		} else {
			out[c.Metric] = Growth(cur.Metric(c.Metric), prev.Metric(c.Metric))
		}
	}
	return out
}

// Point is a single chart datum.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Named is a group with a display name.
type Named interface {
	Measured
	Label() string
}

// Chart projects groups onto one metric for a chart renderer.
func Chart[G Named](groups []G, metric MetricKey) []Point {
	out := make([]Point, len(groups))
	for i, g := range groups {
		out[i] = Point{Name: g.Label(), Value: g.Metric(metric)}
	}
	return out
}
