package reports

import (
	"strings"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// LeadGroup is a finalized lead-funnel group. Averages are per lead, so leads
// without LTV or visits count as zero.
type LeadGroup struct {
	Key             string  `json:"key"`
	TotalLeads      int     `json:"totalLeads"`
	TrialsScheduled int     `json:"trialsScheduled"`
	TrialsCompleted int     `json:"trialsCompleted"`
	ProximityIssues int     `json:"proximityIssues"`
	Converted       int     `json:"convertedLeads"`
	TotalLTV        float64 `json:"totalLTV"`
	TotalVisits     float64 `json:"totalVisits"`
	AvgLTV          float64 `json:"ltv"`
	AvgVisits       float64 `json:"avgVisits"`
	LeadToTrial     float64 `json:"leadToTrialRate"`
	TrialToMember   float64 `json:"trialToMemberRate"`
	LeadToMember    float64 `json:"leadToMemberRate"`
	PipelineHealth  float64 `json:"pipelineHealth"`
}

var leadMetrics = map[engine.MetricKey]func(LeadGroup) float64{
	"totalLeads":        func(g LeadGroup) float64 { return float64(g.TotalLeads) },
	"trialsScheduled":   func(g LeadGroup) float64 { return float64(g.TrialsScheduled) },
	"trialsCompleted":   func(g LeadGroup) float64 { return float64(g.TrialsCompleted) },
	"proximityIssues":   func(g LeadGroup) float64 { return float64(g.ProximityIssues) },
	"convertedLeads":    func(g LeadGroup) float64 { return float64(g.Converted) },
	"ltv":               func(g LeadGroup) float64 { return g.AvgLTV },
	"totalLTV":          func(g LeadGroup) float64 { return g.TotalLTV },
	"avgVisits":         func(g LeadGroup) float64 { return g.AvgVisits },
	"leadToTrialRate":   func(g LeadGroup) float64 { return g.LeadToTrial },
	"trialToMemberRate": func(g LeadGroup) float64 { return g.TrialToMember },
	"leadToMemberRate":  func(g LeadGroup) float64 { return g.LeadToMember },
	"pipelineHealth":    func(g LeadGroup) float64 { return g.PipelineHealth },
}

func (g LeadGroup) Metric(k engine.MetricKey) float64 {
	if fn, ok := leadMetrics[k]; ok {
		return fn(g)
	}
	return 0
}

func (g LeadGroup) Label() string { return g.Key }

type leadAcc struct {
	leads, scheduled, completed, proximity, converted int
	ltv, visits                                       float64
}

func accumulateLead(a *leadAcc, l models.Lead) {
	a.leads++
	if strings.Contains(l.Stage, "Trial") {
		a.scheduled++
	}
	if l.Stage == models.StageTrialCompleted {
		a.completed++
	}
	if l.Stage == models.StageProximity {
		a.proximity++
	}
	if l.ConversionStatus == models.StatusConverted {
		a.converted++
	}
	a.ltv += l.LTV.Float()
	a.visits += l.Visits.Float()
}

func finalizeLead(key string, a *leadAcc) LeadGroup {
	return leadGroup(key, float64(a.leads), float64(a.scheduled), float64(a.completed),
		float64(a.proximity), float64(a.converted), a.ltv, a.visits)
}

func leadGroup(key string, leads, scheduled, completed, proximity, converted, ltv, visits float64) LeadGroup {
	return LeadGroup{
		Key:             key,
		TotalLeads:      int(leads),
		TrialsScheduled: int(scheduled),
		TrialsCompleted: int(completed),
		ProximityIssues: int(proximity),
		Converted:       int(converted),
		TotalLTV:        ltv,
		TotalVisits:     visits,
		AvgLTV:          engine.SafeDiv(ltv, leads),
		AvgVisits:       engine.SafeDiv(visits, leads),
		LeadToTrial:     engine.Percent(completed, leads),
		TrialToMember:   engine.Percent(converted, completed),
		LeadToMember:    engine.Percent(converted, leads),
		PipelineHealth:  engine.Percent(leads-proximity, leads),
	}
}

// LeadTotals recomputes every rate of the footer from the summed counts.
func LeadTotals(groups []LeadGroup) LeadGroup {
	sum := func(f func(LeadGroup) float64) float64 { return engine.Sum(groups, f) }
	return leadGroup("Total",
		sum(func(g LeadGroup) float64 { return float64(g.TotalLeads) }),
		sum(func(g LeadGroup) float64 { return float64(g.TrialsScheduled) }),
		sum(func(g LeadGroup) float64 { return float64(g.TrialsCompleted) }),
		sum(func(g LeadGroup) float64 { return float64(g.ProximityIssues) }),
		sum(func(g LeadGroup) float64 { return float64(g.Converted) }),
		sum(func(g LeadGroup) float64 { return g.TotalLTV }),
		sum(func(g LeadGroup) float64 { return g.TotalVisits }),
	)
}

var leadDimensions = map[string]func(models.Lead) string{
	"source":    func(l models.Lead) string { return l.Text(models.FieldSource) },
	"stage":     func(l models.Lead) string { return l.Text(models.FieldStage) },
	"associate": func(l models.Lead) string { return l.Text(models.FieldAssociate) },
	"channel":   func(l models.Lead) string { return l.Text(models.FieldChannel) },
	"center":    func(l models.Lead) string { return l.Text(models.FieldCenter) },
}

func GroupLeads(leads []models.Lead, key func(models.Lead) string) []LeadGroup {
	return engine.Aggregate(leads, key, accumulateLead, finalizeLead)
}

var leadComparisons = []engine.Comparison{
	{Metric: "totalLeads"},
	{Metric: "trialsCompleted"},
	{Metric: "convertedLeads"},
	{Metric: "ltv"},
	{Metric: "leadToTrialRate", Points: true},
	{Metric: "trialToMemberRate", Points: true},
	{Metric: "leadToMemberRate", Points: true},
	{Metric: "pipelineHealth", Points: true},
}

func leadColumns() []Column[LeadGroup] {
	return []Column[LeadGroup]{
		{Header: "Group", Kind: Text, Value: func(g LeadGroup) any { return g.Key }},
		{Header: "Leads", Kind: Integer, Metric: "totalLeads", Value: func(g LeadGroup) any { return g.TotalLeads }},
		{Header: "Trials Scheduled", Kind: Integer, Metric: "trialsScheduled", Value: func(g LeadGroup) any { return g.TrialsScheduled }},
		{Header: "Trials Completed", Kind: Integer, Metric: "trialsCompleted", Value: func(g LeadGroup) any { return g.TrialsCompleted }},
		{Header: "Proximity Issues", Kind: Integer, Metric: "proximityIssues", Value: func(g LeadGroup) any { return g.ProximityIssues }},
		{Header: "Converted", Kind: Integer, Metric: "convertedLeads", Value: func(g LeadGroup) any { return g.Converted }},
		{Header: "Lead to Trial %", Kind: Percent, Metric: "leadToTrialRate", Value: func(g LeadGroup) any { return g.LeadToTrial }},
		{Header: "Trial to Member %", Kind: Percent, Metric: "trialToMemberRate", Value: func(g LeadGroup) any { return g.TrialToMember }},
		{Header: "Lead to Member %", Kind: Percent, Metric: "leadToMemberRate", Value: func(g LeadGroup) any { return g.LeadToMember }},
		{Header: "Avg LTV", Kind: Currency, Metric: "ltv", Value: func(g LeadGroup) any { return g.AvgLTV }},
		{Header: "Avg Visits", Kind: Decimal, Metric: "avgVisits", Value: func(g LeadGroup) any { return g.AvgVisits }},
		{Header: "Pipeline Health %", Kind: Percent, Metric: "pipelineHealth", Value: func(g LeadGroup) any { return g.PipelineHealth }},
	}
}

// SourceMatrix crosses lead sources with months, newest month first, with a
// totals row per month.
func SourceMatrix(leads []models.Lead) MatrixView[LeadGroup] {
	return matrixOf(leads, models.Lead.RecordDate, leadDimensions["source"], accumulateLead, finalizeLead)
}

func (s *Service) funnel(view string, q Query) (*Result, error) {
	leads := engine.Filter(s.src.Leads(), q.Criteria)

	switch view {
	case "monthly":
		rows := monthOnMonth(leads, models.Lead.RecordDate, func(k string, rs []models.Lead) LeadGroup {
			return reduce(rs, k, accumulateLead, finalizeLead)
		}, leadComparisons)
		groups := make([]LeadGroup, len(rows))
		for i, r := range rows {
			groups[i] = r.Group
		}
		totals := LeadTotals(groups)
		return periodResult("Lead funnel by month", rows, &totals, q, leadColumns(), "totalLeads"), nil

	case "matrix":
		metric, err := metricFor(q, "totalLeads", leadMetrics)
		if err != nil {
			return nil, err
		}
		return matrixResult("Lead sources by month", "Source", SourceMatrix(leads), q, metric, kindOf(leadColumns(), metric)), nil

	case "yearly":
		year := s.year(q)
		rows := yearOnYear(leads, models.Lead.RecordDate, year, accumulateLead, finalizeLead, leadComparisons)
		return yearResult("Lead funnel year on year", year, rows, LeadTotals, q, leadColumns(), "totalLeads", leadComparisons), nil
	}

	key, ok := leadDimensions[view]
	if !ok {
		return nil, unknown("funnel", view)
	}
	metric, err := metricFor(q, "totalLeads", leadMetrics)
	if err != nil {
		return nil, err
	}
	groups := engine.Rank(GroupLeads(leads, key), metric, q.direction(), nil, 0)
	totals := LeadTotals(groups)
	return groupResult("Lead funnel by "+view, groups, &totals, q, metric, leadColumns(), 0), nil
}
