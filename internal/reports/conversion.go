package reports

import (
	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// ClientGroup is a finalized client-conversion group.
type ClientGroup struct {
	Key               string  `json:"key"`
	TotalClients      int     `json:"totalClients"`
	Converted         int     `json:"converted"`
	Retained          int     `json:"retained"`
	ConversionRate    float64 `json:"conversionRate"`
	RetentionRate     float64 `json:"retentionRate"`
	TotalLTV          float64 `json:"totalLTV"`
	AvgLTV            float64 `json:"avgLTV"`
	AvgConversionSpan float64 `json:"avgConversionSpan"` // days
	AvgVisits         float64 `json:"avgVisits"`
	AvgClassNo        float64 `json:"avgClassNo"`
}

var clientMetrics = map[engine.MetricKey]func(ClientGroup) float64{
	"totalClients":      func(g ClientGroup) float64 { return float64(g.TotalClients) },
	"converted":         func(g ClientGroup) float64 { return float64(g.Converted) },
	"retained":          func(g ClientGroup) float64 { return float64(g.Retained) },
	"conversionRate":    func(g ClientGroup) float64 { return g.ConversionRate },
	"retentionRate":     func(g ClientGroup) float64 { return g.RetentionRate },
	"totalLTV":          func(g ClientGroup) float64 { return g.TotalLTV },
	"avgLTV":            func(g ClientGroup) float64 { return g.AvgLTV },
	"avgConversionSpan": func(g ClientGroup) float64 { return g.AvgConversionSpan },
	"avgVisits":         func(g ClientGroup) float64 { return g.AvgVisits },
	"avgClassNo":        func(g ClientGroup) float64 { return g.AvgClassNo },
}

func (g ClientGroup) Metric(k engine.MetricKey) float64 {
	if fn, ok := clientMetrics[k]; ok {
		return fn(g)
	}
	return 0
}

func (g ClientGroup) Label() string { return g.Key }

type clientAcc struct {
	total, converted, retained int
	ltv                        float64
	span, visits, classes      engine.Samples
}

func accumulateClient(a *clientAcc, c models.Client) {
	a.total++
	if c.ConversionStatus == models.StatusConverted {
		a.converted++
	}
	if c.RetentionStatus == models.StatusRetained {
		a.retained++
	}
	a.ltv += c.LTV.Float()
	a.span.Add(c.ConversionSpan.Float())
	a.visits.Add(c.VisitsPostTrial.Float())
	a.classes.Add(c.ClassNo.Float())
}

func finalizeClient(key string, a *clientAcc) ClientGroup {
	n := float64(a.total)
	return ClientGroup{
		Key:               key,
		TotalClients:      a.total,
		Converted:         a.converted,
		Retained:          a.retained,
		ConversionRate:    engine.Percent(float64(a.converted), n),
		RetentionRate:     engine.Percent(float64(a.retained), n),
		TotalLTV:          a.ltv,
		AvgLTV:            engine.SafeDiv(a.ltv, n),
		AvgConversionSpan: a.span.Mean(),
		AvgVisits:         a.visits.Mean(),
		AvgClassNo:        a.classes.Mean(),
	}
}

// ClientTotals is the footer of a client table. Counts and sums are added
// up, rates are recomputed from those sums and every average is weighted by
// the group's client count.
func ClientTotals(groups []ClientGroup) ClientGroup {
	sum := func(f func(ClientGroup) float64) float64 { return engine.Sum(groups, f) }
	total := sum(func(g ClientGroup) float64 { return float64(g.TotalClients) })
	converted := sum(func(g ClientGroup) float64 { return float64(g.Converted) })
	retained := sum(func(g ClientGroup) float64 { return float64(g.Retained) })
	ltv := sum(func(g ClientGroup) float64 { return g.TotalLTV })
	weighted := func(avg func(ClientGroup) float64) float64 {
		return engine.WeightedAverage(groups, avg, func(g ClientGroup) float64 { return float64(g.TotalClients) })
	}

	return ClientGroup{
		Key:               "Total",
		TotalClients:      int(total),
		Converted:         int(converted),
		Retained:          int(retained),
		ConversionRate:    engine.Percent(converted, total),
		RetentionRate:     engine.Percent(retained, total),
		TotalLTV:          ltv,
		AvgLTV:            weighted(func(g ClientGroup) float64 { return g.AvgLTV }),
		AvgConversionSpan: weighted(func(g ClientGroup) float64 { return g.AvgConversionSpan }),
		AvgVisits:         weighted(func(g ClientGroup) float64 { return g.AvgVisits }),
		AvgClassNo:        weighted(func(g ClientGroup) float64 { return g.AvgClassNo }),
	}
}

// Conversion views and the dimension each one groups by.
var clientDimensions = map[string]func(models.Client) string{
	"trainer":    func(c models.Client) string { return c.Text(models.FieldTrainer) },
	"membership": func(c models.Client) string { return c.Text(models.FieldMembership) },
	"entity":     func(c models.Client) string { return c.Text(models.FieldEntity) },
	"location":   func(c models.Client) string { return c.Text(models.FieldLocation) },
}

// GroupClients aggregates clients by one of the conversion dimensions.
func GroupClients(clients []models.Client, key func(models.Client) string) []ClientGroup {
	return engine.Aggregate(clients, key, accumulateClient, finalizeClient)
}

var clientComparisons = []engine.Comparison{
	{Metric: "totalClients"},
	{Metric: "converted"},
	{Metric: "avgLTV"},
	{Metric: "conversionRate", Points: true},
	{Metric: "retentionRate", Points: true},
}

func clientColumns() []Column[ClientGroup] {
	return []Column[ClientGroup]{
		{Header: "Group", Kind: Text, Value: func(g ClientGroup) any { return g.Key }},
		{Header: "Clients", Kind: Integer, Metric: "totalClients", Value: func(g ClientGroup) any { return g.TotalClients }},
		{Header: "Converted", Kind: Integer, Metric: "converted", Value: func(g ClientGroup) any { return g.Converted }},
		{Header: "Retained", Kind: Integer, Metric: "retained", Value: func(g ClientGroup) any { return g.Retained }},
		{Header: "Conversion %", Kind: Percent, Metric: "conversionRate", Value: func(g ClientGroup) any { return g.ConversionRate }},
		{Header: "Retention %", Kind: Percent, Metric: "retentionRate", Value: func(g ClientGroup) any { return g.RetentionRate }},
		{Header: "Total LTV", Kind: Currency, Metric: "totalLTV", Value: func(g ClientGroup) any { return g.TotalLTV }},
		{Header: "Avg LTV", Kind: Currency, Metric: "avgLTV", Value: func(g ClientGroup) any { return g.AvgLTV }},
		{Header: "Avg Conversion Days", Kind: Decimal, Metric: "avgConversionSpan", Value: func(g ClientGroup) any { return g.AvgConversionSpan }},
		{Header: "Avg Visits", Kind: Decimal, Metric: "avgVisits", Value: func(g ClientGroup) any { return g.AvgVisits }},
		{Header: "Avg Classes", Kind: Decimal, Metric: "avgClassNo", Value: func(g ClientGroup) any { return g.AvgClassNo }},
	}
}

func (s *Service) conversion(view string, q Query) (*Result, error) {
	clients := engine.Filter(s.src.Clients(), q.Criteria)

	switch view {
	case "monthly":
		rows := monthOnMonth(clients, models.Client.RecordDate, func(k string, rs []models.Client) ClientGroup {
			return reduce(rs, k, accumulateClient, finalizeClient)
		}, clientComparisons)
		groups := make([]ClientGroup, len(rows))
		for i, r := range rows {
			groups[i] = r.Group
		}
		totals := ClientTotals(groups)
		return periodResult("Client conversion by month", rows, &totals, q, clientColumns(), "conversionRate"), nil

	case "yearly":
		year := s.year(q)
		rows := yearOnYear(clients, models.Client.RecordDate, year, accumulateClient, finalizeClient, clientComparisons)
		return yearResult("Client conversion year on year", year, rows, ClientTotals, q, clientColumns(), "conversionRate", clientComparisons), nil
	}

	key, ok := clientDimensions[view]
	if !ok {
		return nil, unknown("conversion", view)
	}
	metric, err := metricFor(q, "totalClients", clientMetrics)
	if err != nil {
		return nil, err
	}
	groups := engine.Rank(GroupClients(clients, key), metric, q.direction(), nil, 0)
	totals := ClientTotals(groups)
	return groupResult("Client conversion by "+view, groups, &totals, q, metric, clientColumns(), 0), nil
}
