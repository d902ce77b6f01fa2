// Package reports turns the raw datasets into the dashboard's report views:
// client conversion, lead funnel, recurring classes, discounts and the
// cycle-versus-barre format comparison. Every view filters with
// engine.Criteria, aggregates with the engine and returns full-precision rows
// plus a rounded Table for spreadsheet export.
package reports

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/metrics"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// ErrUnknownReport is returned for a report or view name that does not exist.
var ErrUnknownReport = errors.New("unknown report")

// Source supplies the current datasets. Implementations return snapshots the
// caller may not modify.
type Source interface {
	Clients() []models.Client
	Leads() []models.Lead
	Sessions() []models.Session
	Sales() []models.Sale
}

type Service struct {
	src           Source
	referenceYear int
	now           func() time.Time
}

// NewService builds reports over src. referenceYear anchors year-on-year
// views; 0 means the current calendar year.
func NewService(src Source, referenceYear int) *Service {
	return &Service{src: src, referenceYear: referenceYear, now: time.Now}
}

// Result is one computed report view.
type Result struct {
	Report string         `json:"report"`
	View   string         `json:"view"`
	Title  string         `json:"title"`
	Rows   any            `json:"rows"`
	Totals any            `json:"totals,omitempty"`
	Chart  []engine.Point `json:"chart,omitempty"`
	Meta   Meta           `json:"meta"`
	Table  Table          `json:"-"`
}

type Meta struct {
	Total         int    `json:"total"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	Metric        string `json:"metric,omitempty"`
	Direction     string `json:"direction,omitempty"`
	Year          int    `json:"year,omitempty"`
	ActiveFilters int    `json:"activeFilters"`
}

var catalog = map[string][]string{
	"conversion": {"trainer", "membership", "entity", "location", "monthly", "yearly"},
	"funnel":     {"source", "stage", "associate", "channel", "center", "monthly", "matrix", "yearly"},
	"classes":    {"trainers", "classes", "formats", "problematic", "monthly", "yearly", "summary"},
	"discounts":  {"category", "product", "soldBy", "paymentMethod"},
	"formats":    {"comparison"},
}

// Catalog lists every report with its views, sorted by report name.
func Catalog() []CatalogEntry {
	out := lo.MapToSlice(catalog, func(report string, views []string) CatalogEntry {
		return CatalogEntry{Report: report, Views: views}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Report < out[j].Report })
	return out
}

type CatalogEntry struct {
	Report string   `json:"report"`
	Views  []string `json:"views"`
}

// Build computes report/view for q. An empty view selects the report's first
// view.
func (s *Service) Build(report, view string, q Query) (*Result, error) {
	views, ok := catalog[report]
	if !ok {
		return nil, unknown(report, view)
	}
	if view == "" {
		view = views[0]
	}

	start := time.Now()
	var (
		res *Result
		err error
	)
	switch report {
	case "conversion":
		res, err = s.conversion(view, q)
	case "funnel":
		res, err = s.funnel(view, q)
	case "classes":
		res, err = s.classes(view, q)
	case "discounts":
		res, err = s.discounts(view, q)
	case "formats":
		res, err = s.formats(view, q)
	}
	if err != nil {
		return nil, err
	}
	res.Report, res.View = report, view
	metrics.RecordReport(report, view, time.Since(start), res.Meta.Total)
	return res, nil
}

func (s *Service) year(q Query) int {
	if q.Year > 0 {
		return q.Year
	}
	if s.referenceYear > 0 {
		return s.referenceYear
	}
	return s.now().Year()
}

func unknown(report, view string) error {
	return fmt.Errorf("%w: %s/%s", ErrUnknownReport, report, view)
}

// metricFor resolves the requested metric against a group's metric table.
func metricFor[G any](q Query, def engine.MetricKey, table map[engine.MetricKey]func(G) float64) (engine.MetricKey, error) {
	if q.Metric == "" {
		return def, nil
	}
	m := engine.MetricKey(q.Metric)
	if _, ok := table[m]; !ok {
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidQuery, q.Metric)
	}
	return m, nil
}

// groupResult pages a ranked group list. defLimit applies when the request
// sets no limit; 0 returns every group.
func groupResult[G engine.Named](title string, groups []G, totals *G, q Query, metric engine.MetricKey, cols []Column[G], defLimit int) *Result {
	limit := q.Limit
	if limit == 0 {
		limit = defLimit
	}
	limit, offset := clampLimitOffset(limit, q.Offset, len(groups))
	page := paginate(groups, limit, offset)
	res := &Result{
		Title: title,
		Rows:  page,
		Chart: engine.Chart(page, metric),
		Meta: Meta{
			Total:         len(groups),
			Limit:         limit,
			Offset:        offset,
			Metric:        string(metric),
			Direction:     string(q.direction()),
			ActiveFilters: q.Criteria.ActiveCount(),
		},
		Table: tableOf(title, cols, page, totals),
	}
	if totals != nil {
		res.Totals = *totals
	}
	return res
}

func periodResult[G engine.Named](title string, rows []PeriodRow[G], totals *G, q Query, cols []Column[G], metric engine.MetricKey) *Result {
	limit, offset := clampLimitOffset(q.Limit, q.Offset, len(rows))
	page := paginate(rows, limit, offset)
	groups := lo.Map(page, func(r PeriodRow[G], _ int) G { return r.Group })
	res := &Result{
		Title: title,
		Rows:  page,
		Chart: engine.Chart(groups, metric),
		Meta: Meta{
			Total:         len(rows),
			Limit:         limit,
			Offset:        offset,
			Metric:        string(metric),
			ActiveFilters: q.Criteria.ActiveCount(),
		},
		Table: tableOf(title, cols, groups, totals),
	}
	if totals != nil {
		res.Totals = *totals
	}
	return res
}

func yearResult[G engine.Named](title string, year int, rows []YearRow[G], totals func([]G) G, q Query, cols []Column[G], metric engine.MetricKey, comps []engine.Comparison) *Result {
	cur := lo.Map(rows, func(r YearRow[G], _ int) G { return r.Current })
	prev := lo.Map(rows, func(r YearRow[G], _ int) G { return r.Previous })
	footer := YearRow[G]{Month: "Total", Current: totals(cur), Previous: totals(prev)}
	footer.Change = engine.Change(footer.Current, footer.Previous, comps)

	chart := make([]engine.Point, len(rows))
	for i, r := range rows {
		chart[i] = engine.Point{Name: r.Month, Value: r.Current.Metric(metric)}
	}
	return &Result{
		Title:  title,
		Rows:   rows,
		Totals: footer,
		Chart:  chart,
		Meta: Meta{
			Total:         len(rows),
			Limit:         len(rows),
			Metric:        string(metric),
			Year:          year,
			ActiveFilters: q.Criteria.ActiveCount(),
		},
		Table: yearTable(title, year, cols, rows, &footer),
	}
}

func yearTable[G any](title string, year int, cols []Column[G], rows []YearRow[G], footer *YearRow[G]) Table {
	yc := []Column[YearRow[G]]{{Header: "Month", Kind: Text, Value: func(r YearRow[G]) any { return r.Month }}}
	for _, c := range cols[1:] {
		yc = append(yc,
			Column[YearRow[G]]{Header: fmt.Sprintf("%s %d", c.Header, year), Kind: c.Kind, Value: func(r YearRow[G]) any { return c.Value(r.Current) }},
			Column[YearRow[G]]{Header: fmt.Sprintf("%s %d", c.Header, year-1), Kind: c.Kind, Value: func(r YearRow[G]) any { return c.Value(r.Previous) }},
		)
	}
	return tableOf(title, yc, rows, footer)
}

func matrixResult[G engine.Measured](title, rowHeader string, m MatrixView[G], q Query, metric engine.MetricKey, kind Kind) *Result {
	title += ": " + string(metric)
	t := Table{Title: title, Headers: []string{rowHeader}, Kinds: []Kind{Text}}
	for _, p := range m.Periods {
		t.Headers = append(t.Headers, p.Label)
		t.Kinds = append(t.Kinds, kind)
	}
	t.Headers = append(t.Headers, "Total")
	t.Kinds = append(t.Kinds, kind)
	row := func(r engine.MatrixRow[G]) []any {
		cells := []any{r.Key}
		for _, p := range m.Periods {
			cells = append(cells, cell(kind, r.Cells[p.Key].Metric(metric)))
		}
		return append(cells, cell(kind, r.Total.Metric(metric)))
	}
	for _, r := range m.Rows {
		t.Rows = append(t.Rows, row(r))
	}
	t.Footer = row(m.Totals)

	chart := make([]engine.Point, len(m.Periods))
	for i, p := range m.Periods {
		chart[i] = engine.Point{Name: p.Label, Value: m.Totals.Cells[p.Key].Metric(metric)}
	}
	return &Result{
		Title:  title,
		Rows:   m,
		Totals: m.Totals,
		Chart:  chart,
		Meta: Meta{
			Total:         len(m.Rows),
			Limit:         len(m.Rows),
			Metric:        string(metric),
			ActiveFilters: q.Criteria.ActiveCount(),
		},
		Table: t,
	}
}
