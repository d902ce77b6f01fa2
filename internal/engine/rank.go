package engine

import "slices"

// MetricKey names a numeric metric of a finalized group.
type MetricKey string

// Measured is a finalized group that exposes its metrics by key.
type Measured interface {
	Metric(MetricKey) float64
}

type Direction string

const (
	Top    Direction = "top"
	Bottom Direction = "bottom"
)

// NegativeOrder decides what "top" means for lower-is-better metrics.
type NegativeOrder int

const (
	// WorstFirst lists the most occurrences first for "top" (top offenders).
	WorstFirst NegativeOrder = iota
	// BestFirst treats "top" as best performers, so the fewest occurrences
	// come first. This is the ordering the original dashboard shipped with.
	BestFirst
)

type rankConfig struct {
	negative NegativeOrder
}

type RankOption func(*rankConfig)

// WithNegativeOrder selects the reading of "top" for negative metrics.
func WithNegativeOrder(o NegativeOrder) RankOption {
	return func(c *rankConfig) { c.negative = o }
}

// Rank orders groups by metric and keeps the first limit (all when limit <= 0).
// Higher values lead for "top" and trail for "bottom". Metrics listed in
// negative follow the configured NegativeOrder. Ties keep input order. The
// input slice is not modified.
func Rank[G Measured](groups []G, metric MetricKey, dir Direction, negative map[MetricKey]bool, limit int, opts ...RankOption) []G {
	cfg := rankConfig{negative: WorstFirst}
	for _, o := range opts {
		o(&cfg)
	}

	descending := dir != Bottom
	if negative[metric] && cfg.negative == BestFirst {
		descending = !descending
	}

	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b G) int {
		av, bv := a.Metric(metric), b.Metric(metric)
		if av == bv {
			return 0
		}
		less := av < bv
		if descending {
			less = !less
		}
		if less {
			return -1
		}
		return 1
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
