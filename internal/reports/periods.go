package reports

import (
	"slices"

	"github.com/AngelCh415/studio-insights/internal/engine"
)

// PeriodRow is one month of a month-on-month table with its change against
// the previous month that has data.
type PeriodRow[G any] struct {
	Period string                       `json:"period"` // YYYY-MM
	Label  string                       `json:"label"`
	Group  G                            `json:"group"`
	Change map[engine.MetricKey]float64 `json:"change"`
}

// YearRow compares one calendar month of the reference year with the year
// before it.
type YearRow[G any] struct {
	Month    string                       `json:"month"`
	Current  G                            `json:"current"`
	Previous G                            `json:"previous"`
	Change   map[engine.MetricKey]float64 `json:"change"`
}

// monthOnMonth buckets records by month, summarizes each bucket with build and
// returns the rows newest first. The oldest month has no change entries.
func monthOnMonth[R any, G engine.Measured](records []R, dateOf func(R) string, build func(key string, rs []R) G, comps []engine.Comparison) []PeriodRow[G] {
	buckets := engine.BucketByMonth(records, dateOf)
	rows := make([]PeriodRow[G], len(buckets))
	for i, b := range buckets {
		rows[i] = PeriodRow[G]{Period: b.Key, Label: b.Label, Group: build(b.Label, b.Records)}
		if i > 0 {
			rows[i].Change = engine.Change(rows[i].Group, rows[i-1].Group, comps)
		} else {
			rows[i].Change = map[engine.MetricKey]float64{}
		}
	}
	slices.Reverse(rows)
	return rows
}

func yearOnYear[R, A any, G engine.Measured](records []R, dateOf func(R) string, year int, acc func(*A, R), fin func(string, *A) G, comps []engine.Comparison) []YearRow[G] {
	pairs := engine.YearOnYear(records, dateOf, year, acc, fin)
	rows := make([]YearRow[G], len(pairs))
	for i, p := range pairs {
		rows[i] = YearRow[G]{
			Month:    p.Label,
			Current:  p.Current,
			Previous: p.Previous,
			Change:   engine.Change(p.Current, p.Previous, comps),
		}
	}
	return rows
}

// reduce folds all records into a single finalized group under key.
func reduce[R, A, G any](records []R, key string, acc func(*A, R), fin func(string, *A) G) G {
	var a A
	for _, r := range records {
		acc(&a, r)
	}
	return fin(key, &a)
}

// MatrixView is a row dimension crossed with months plus a totals row that
// aggregates every record of each month.
type MatrixView[G any] struct {
	Periods []MatrixPeriod        `json:"periods"`
	Rows    []engine.MatrixRow[G] `json:"rows"`
	Totals  engine.MatrixRow[G]   `json:"totals"`
}

type MatrixPeriod struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func matrixOf[R, A, G any](records []R, dateOf, rowKey func(R) string, acc func(*A, R), fin func(string, *A) G) MatrixView[G] {
	m := engine.AggregateByMonth(records, dateOf, rowKey, acc, fin)
	all := engine.AggregateByMonth(records, dateOf, func(R) string { return "Total" }, acc, fin)

	out := MatrixView[G]{Rows: m.Rows}
	for _, p := range m.Periods {
		out.Periods = append(out.Periods, MatrixPeriod{Key: p.Key(), Label: p.Label()})
	}
	if len(all.Rows) == 1 {
		out.Totals = all.Rows[0]
	} else {
		var a A
		out.Totals = engine.MatrixRow[G]{Key: "Total", Cells: map[string]G{}, Total: fin("Total", &a)}
	}
	return out
}
