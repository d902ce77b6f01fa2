package engine

import (
	"sort"
	"strings"
	"time"
)

// Aggregate groups records in a single pass. keyFn picks the group; a group
// starts as the zero G on the first record with its key and accumulate folds
// each record into it. Once the pass is over, finalize runs exactly once per
// group. Results come back in first-seen key order.
func Aggregate[R, G, F any](records []R, keyFn func(R) string, accumulate func(*G, R), finalize func(key string, g *G) F) []F {
	index := map[string]int{}
	var keys []string
	var groups []*G
	for _, r := range records {
		k := keyFn(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			keys = append(keys, k)
			groups = append(groups, new(G))
		}
		accumulate(groups[i], r)
	}
	out := make([]F, len(groups))
	for i, g := range groups {
		out[i] = finalize(keys[i], g)
	}
	return out
}

// Key joins dimension values into a composite group key.
func Key(parts ...string) string {
	return strings.Join(parts, " - ")
}

// Cell is one finalized group of a month matrix.
type Cell[F any] struct {
	Period Period `json:"period"`
	Value  F      `json:"value"`
}

// Matrix is a row dimension crossed with calendar months.
type Matrix[F any] struct {
	Periods []Period       `json:"periods"` // newest first
	Rows    []MatrixRow[F] `json:"rows"`
}

type MatrixRow[F any] struct {
	Key   string       `json:"key"`
	Cells map[string]F `json:"cells"` // by Period.Key()
	Total F            `json:"total"`
}

// AggregateByMonth builds a row x month matrix. Records with an unparseable
// date are skipped. Every row holds a cell for every period, accumulated from
// nothing when the row has no records in that month, so totals per column can
// be computed from the cells.
func AggregateByMonth[R, G, F any](records []R, dateOf func(R) string, rowKey func(R) string, accumulate func(*G, R), finalize func(key string, g *G) F) Matrix[F] {
	dated := WithDates(records, dateOf)
	periods := Periods(records, dateOf)

	type rowAcc struct {
		key    string
		months map[string]*G
		total  G
	}
	index := map[string]int{}
	var rows []*rowAcc
	for _, d := range dated {
		k := rowKey(d.Record)
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, &rowAcc{key: k, months: map[string]*G{}})
		}
		pk := PeriodOf(d.Date).Key()
		g, ok := rows[i].months[pk]
		if !ok {
			g = new(G)
			rows[i].months[pk] = g
		}
		accumulate(g, d.Record)
		accumulate(&rows[i].total, d.Record)
	}

	m := Matrix[F]{Periods: periods, Rows: make([]MatrixRow[F], 0, len(rows))}
	for _, r := range rows {
		row := MatrixRow[F]{Key: r.key, Cells: make(map[string]F, len(periods))}
		for _, p := range periods {
			g, ok := r.months[p.Key()]
			if !ok {
				g = new(G)
			}
			row.Cells[p.Key()] = finalize(r.key, g)
		}
		row.Total = finalize(r.key, &r.total)
		m.Rows = append(m.Rows, row)
	}
	return m
}

// YearPair holds one calendar month's group for the reference year and the
// year before it.
type YearPair[F any] struct {
	Month    time.Month `json:"-"`
	Label    string     `json:"month"`
	Current  F          `json:"current"`
	Previous F          `json:"previous"`
}

// YearOnYear accumulates records of year and year-1 by calendar month. Only
// months with data in either year are returned, January first. Records from
// other years or with unparseable dates are ignored.
func YearOnYear[R, G, F any](records []R, dateOf func(R) string, year int, accumulate func(*G, R), finalize func(key string, g *G) F) []YearPair[F] {
	type pair struct{ cur, prev G }
	months := map[time.Month]*pair{}
	for _, d := range WithDates(records, dateOf) {
		y := d.Date.Year()
		if y != year && y != year-1 {
			continue
		}
		p, ok := months[d.Date.Month()]
		if !ok {
			p = &pair{}
			months[d.Date.Month()] = p
		}
		if y == year {
			accumulate(&p.cur, d.Record)
		} else {
			accumulate(&p.prev, d.Record)
		}
	}
	out := make([]YearPair[F], 0, len(months))
	for m, p := range months {
		label := m.String()[:3]
		out = append(out, YearPair[F]{
			Month:    m,
			Label:    label,
			Current:  finalize(label, &p.cur),
			Previous: finalize(label, &p.prev),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
