package reports

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/studio-insights/internal/engine"
)

// Kind selects how a column is rounded and rendered.
type Kind int

const (
	Text Kind = iota
	Integer
	Currency
	Percent
	Decimal
)

// Places is the display precision of the kind.
func (k Kind) Places() int32 {
	switch k {
	case Integer:
		return 0
	case Percent:
		return 1
	case Currency, Decimal:
		return 2
	}
	return 0
}

// Column renders one field of a finalized group.
type Column[T any] struct {
	Header string
	Kind   Kind
	Metric engine.MetricKey // metric the column shows, if any
	Value  func(T) any
}

// kindOf is the display kind of the column showing metric, Decimal if none.
func kindOf[T any](cols []Column[T], metric engine.MetricKey) Kind {
	for _, c := range cols {
		if c.Metric == metric {
			return c.Kind
		}
	}
	return Decimal
}

// Table is a report flattened for spreadsheets. Numeric cells are rounded to
// their column's display precision; the JSON report keeps full precision.
type Table struct {
	Title   string
	Headers []string
	Kinds   []Kind
	Rows    [][]any
	Footer  []any // nil when the report has no totals row
}

func tableOf[T any](title string, cols []Column[T], rows []T, totals *T) Table {
	t := Table{Title: title, Headers: make([]string, len(cols)), Kinds: make([]Kind, len(cols))}
	for i, c := range cols {
		t.Headers[i] = c.Header
		t.Kinds[i] = c.Kind
	}
	render := func(r T) []any {
		cells := make([]any, len(cols))
		for i, c := range cols {
			cells[i] = cell(c.Kind, c.Value(r))
		}
		return cells
	}
	t.Rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, render(r))
	}
	if totals != nil {
		t.Footer = render(*totals)
	}
	return t
}

func cell(k Kind, v any) any {
	switch x := v.(type) {
	case float64:
		return Round(x, k.Places())
	case int:
		return x
	}
	return v
}

// Round rounds half away from zero to places decimals. NaN and infinities
// become 0.
func Round(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}
