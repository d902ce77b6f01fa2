package reports

import (
	"github.com/samber/lo"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// Thresholds of the problematic class predicate.
const (
	problemFillRate     = 30.0
	problemEmptySession = 5.0
	problemClassAverage = 3.0
)

// Rankings show ten groups unless the request asks otherwise.
const defaultRankingLimit = 10

// SessionGroup is a finalized recurring-class group.
type SessionGroup struct {
	Key string `json:"key"`
	// Descriptive labels; empty when the group spans several values.
	Trainer  string `json:"trainer,omitempty"`
	Class    string `json:"class,omitempty"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`

	Sessions          int     `json:"totalSessions"`
	UniqueDates       int     `json:"uniqueDates"`
	CheckedIn         float64 `json:"totalCheckedIn"`
	Booked            float64 `json:"totalBooked"`
	Capacity          float64 `json:"totalCapacity"`
	Revenue           float64 `json:"revenue"`
	Empty             float64 `json:"emptySessions"`
	LateCancelled     float64 `json:"lateCancellations"`
	NonPaid           float64 `json:"nonPaid"`
	Complimentary     float64 `json:"complimentary"`
	ClassAverage      float64 `json:"classAverage"`
	FillRate          float64 `json:"fillRate"`
	RevenuePerSession float64 `json:"revenuePerSession"`
	Consistency       float64 `json:"consistency"`
	Problematic       bool    `json:"problematic"`

	attendance []float64
}

var sessionMetrics = map[engine.MetricKey]func(SessionGroup) float64{
	"classAverage":      func(g SessionGroup) float64 { return g.ClassAverage },
	"fillRate":          func(g SessionGroup) float64 { return g.FillRate },
	"revenue":           func(g SessionGroup) float64 { return g.Revenue },
	"revenuePerSession": func(g SessionGroup) float64 { return g.RevenuePerSession },
	"totalSessions":     func(g SessionGroup) float64 { return float64(g.Sessions) },
	"totalCheckedIn":    func(g SessionGroup) float64 { return g.CheckedIn },
	"consistency":       func(g SessionGroup) float64 { return g.Consistency },
	"emptySessions":     func(g SessionGroup) float64 { return g.Empty },
	"lateCancellations": func(g SessionGroup) float64 { return g.LateCancelled },
}

// NegativeSessionMetrics are the class metrics where lower is better.
var NegativeSessionMetrics = map[engine.MetricKey]bool{
	"emptySessions":     true,
	"lateCancellations": true,
}

func (g SessionGroup) Metric(k engine.MetricKey) float64 {
	if fn, ok := sessionMetrics[k]; ok {
		return fn(g)
	}
	return 0
}

func (g SessionGroup) Label() string { return g.Key }

// shared keeps a value common to every record of a group.
type shared struct {
	v     string
	mixed bool
}

func (l *shared) add(v string, first bool) {
	switch {
	case first:
		l.v = v
	case !l.mixed && l.v != v:
		l.v, l.mixed = "", true
	}
}

type sessionAcc struct {
	seen                                 bool
	trainer, class, time, location       shared
	sessions                             int
	checkedIn, booked, capacity, revenue float64
	empty, late, nonPaid, complimentary  float64
	dates                                map[string]struct{}
	attendance                           []float64
}

func accumulateSession(a *sessionAcc, s models.Session) {
	first := !a.seen
	if first {
		a.seen = true
		a.dates = map[string]struct{}{}
	}
	a.trainer.add(s.Text(models.FieldTrainer), first)
	a.class.add(s.ClassName(), first)
	a.time.add(s.Time, first)
	a.location.add(s.Location, first)
	a.sessions++
	a.checkedIn += s.CheckedIn.Float()
	a.booked += s.Booked.Float()
	a.capacity += s.Capacity.Float()
	a.revenue += s.Revenue.Float()
	a.empty += s.EmptySessions.Float()
	a.late += s.LateCancelled.Float()
	a.nonPaid += s.NonPaid.Float()
	a.complimentary += s.Complimentary.Float()
	a.dates[s.Date] = struct{}{}
	a.attendance = append(a.attendance, s.CheckedIn.Float())
}

func finalizeSession(key string, a *sessionAcc) SessionGroup {
	n := float64(a.sessions)
	g := SessionGroup{
		Key:               key,
		Trainer:           a.trainer.v,
		Class:             a.class.v,
		Time:              a.time.v,
		Location:          a.location.v,
		Sessions:          a.sessions,
		UniqueDates:       len(a.dates),
		CheckedIn:         a.checkedIn,
		Booked:            a.booked,
		Capacity:          a.capacity,
		Revenue:           a.revenue,
		Empty:             a.empty,
		LateCancelled:     a.late,
		NonPaid:           a.nonPaid,
		Complimentary:     a.complimentary,
		ClassAverage:      engine.SafeDiv(a.checkedIn, n),
		FillRate:          engine.Percent(a.checkedIn, a.capacity),
		RevenuePerSession: engine.SafeDiv(a.revenue, n),
		Consistency:       engine.Consistency(a.attendance),
		attendance:        a.attendance,
	}
	if a.sessions == 0 {
		g.Consistency = 0
	}
	g.Problematic = a.sessions > 0 && (g.FillRate < problemFillRate || g.Empty > problemEmptySession || g.ClassAverage < problemClassAverage)
	return g
}

// SessionTotals sums the groups and recomputes every derived metric from the
// sums. Consistency is taken over the pooled attendance of all groups.
func SessionTotals(groups []SessionGroup) SessionGroup {
	a := sessionAcc{dates: map[string]struct{}{}}
	for _, g := range groups {
		a.sessions += g.Sessions
		a.checkedIn += g.CheckedIn
		a.booked += g.Booked
		a.capacity += g.Capacity
		a.revenue += g.Revenue
		a.empty += g.Empty
		a.late += g.LateCancelled
		a.nonPaid += g.NonPaid
		a.complimentary += g.Complimentary
		a.attendance = append(a.attendance, g.attendance...)
	}
	t := finalizeSession("Total", &a)
	// distinct dates cannot be recovered from the groups
	t.UniqueDates = int(engine.Sum(groups, func(g SessionGroup) float64 { return float64(g.UniqueDates) }))
	return t
}

// Ranking dimensions.
var sessionDimensions = map[string]func(models.Session) string{
	"trainers": func(s models.Session) string { return s.Text(models.FieldTrainer) },
	"classes":  func(s models.Session) string { return engine.Key(s.ClassName(), s.Time) },
	"formats":  models.Session.ClassName,
	"problematic": func(s models.Session) string {
		return engine.Key(s.Text(models.FieldTrainer), s.ClassName(), s.Time)
	},
}

func GroupSessions(sessions []models.Session, key func(models.Session) string) []SessionGroup {
	return engine.Aggregate(sessions, key, accumulateSession, finalizeSession)
}

// groupBounds keeps groups within the requested session and attendance
// counts. At least one session is required unless min_sessions says otherwise.
func groupBounds(q Query) func(SessionGroup) bool {
	one := 1.0
	sessions := engine.Bounds{Min: &one, Max: q.MaxSessions}
	if q.MinSessions != nil {
		sessions.Min = q.MinSessions
	}
	attendance := engine.Bounds{Min: q.MinAttendance, Max: q.MaxAttendance}
	return func(g SessionGroup) bool {
		return sessions.Contains(float64(g.Sessions)) && attendance.Contains(g.CheckedIn)
	}
}

// RankSessions runs one ranking view over already filtered sessions.
func RankSessions(sessions []models.Session, view string, q Query) ([]SessionGroup, engine.MetricKey, error) {
	key, ok := sessionDimensions[view]
	if !ok {
		return nil, "", unknown("classes", view)
	}
	metric, err := metricFor(q, "classAverage", sessionMetrics)
	if err != nil {
		return nil, "", err
	}
	groups := lo.Filter(GroupSessions(sessions, key), func(g SessionGroup, _ int) bool {
		return groupBounds(q)(g) && (view != "problematic" || g.Problematic)
	})
	ranked := engine.Rank(groups, metric, q.direction(), NegativeSessionMetrics, 0,
		engine.WithNegativeOrder(q.negativeOrder()))
	return ranked, metric, nil
}

var sessionComparisons = []engine.Comparison{
	{Metric: "totalSessions"},
	{Metric: "totalCheckedIn"},
	{Metric: "classAverage"},
	{Metric: "revenue"},
	{Metric: "fillRate", Points: true},
}

func sessionColumns() []Column[SessionGroup] {
	return []Column[SessionGroup]{
		{Header: "Group", Kind: Text, Value: func(g SessionGroup) any { return g.Key }},
		{Header: "Sessions", Kind: Integer, Metric: "totalSessions", Value: func(g SessionGroup) any { return g.Sessions }},
		{Header: "Checked In", Kind: Integer, Metric: "totalCheckedIn", Value: func(g SessionGroup) any { return g.CheckedIn }},
		{Header: "Capacity", Kind: Integer, Value: func(g SessionGroup) any { return g.Capacity }},
		{Header: "Class Avg", Kind: Decimal, Metric: "classAverage", Value: func(g SessionGroup) any { return g.ClassAverage }},
		{Header: "Fill Rate %", Kind: Percent, Metric: "fillRate", Value: func(g SessionGroup) any { return g.FillRate }},
		{Header: "Revenue", Kind: Currency, Metric: "revenue", Value: func(g SessionGroup) any { return g.Revenue }},
		{Header: "Revenue/Session", Kind: Currency, Metric: "revenuePerSession", Value: func(g SessionGroup) any { return g.RevenuePerSession }},
		{Header: "Empty", Kind: Integer, Metric: "emptySessions", Value: func(g SessionGroup) any { return g.Empty }},
		{Header: "Late Cancels", Kind: Integer, Metric: "lateCancellations", Value: func(g SessionGroup) any { return g.LateCancelled }},
		{Header: "Consistency", Kind: Percent, Metric: "consistency", Value: func(g SessionGroup) any { return g.Consistency }},
	}
}

// ClassSummary is the header strip of the classes page.
type ClassSummary struct {
	Classes      int     `json:"classes"`
	Attendance   float64 `json:"attendance"`
	FillRate     float64 `json:"fillRate"`
	ClassAverage float64 `json:"classAverage"`
	Revenue      float64 `json:"revenue"`
	Trainers     int     `json:"trainers"`
	Formats      int     `json:"formats"`
	Empty        float64 `json:"emptySessions"`
	Problematic  int     `json:"problematicClasses"`
}

// SummarizeSessions computes the header metrics over filtered sessions.
func SummarizeSessions(sessions []models.Session) ClassSummary {
	t := SessionTotals(GroupSessions(sessions, func(models.Session) string { return "all" }))
	problems := lo.CountBy(GroupSessions(sessions, sessionDimensions["problematic"]), func(g SessionGroup) bool { return g.Problematic })
	return ClassSummary{
		Classes:      t.Sessions,
		Attendance:   t.CheckedIn,
		FillRate:     t.FillRate,
		ClassAverage: t.ClassAverage,
		Revenue:      t.Revenue,
		Trainers:     len(engine.Options(sessions, models.FieldTrainer)),
		Formats:      len(engine.Options(sessions, models.FieldClass)),
		Empty:        t.Empty,
		Problematic:  problems,
	}
}

func (s *Service) classes(view string, q Query) (*Result, error) {
	sessions := engine.Filter(s.src.Sessions(), q.Criteria)

	switch view {
	case "monthly":
		metric, err := metricFor(q, "classAverage", sessionMetrics)
		if err != nil {
			return nil, err
		}
		m := matrixOf(sessions, models.Session.RecordDate, sessionDimensions["problematic"], accumulateSession, finalizeSession)
		return matrixResult("Classes by month", "Trainer - Class - Time", m, q, metric, kindOf(sessionColumns(), metric)), nil

	case "yearly":
		year := s.year(q)
		rows := yearOnYear(sessions, models.Session.RecordDate, year, accumulateSession, finalizeSession, sessionComparisons)
		return yearResult("Classes year on year", year, rows, SessionTotals, q, sessionColumns(), "classAverage", sessionComparisons), nil

	case "summary":
		sum := SummarizeSessions(sessions)
		t := Table{
			Title:   "Class summary",
			Headers: []string{"Metric", "Value"},
			Kinds:   []Kind{Text, Decimal},
			Rows: [][]any{
				{"Classes", sum.Classes},
				{"Attendance", cell(Integer, sum.Attendance)},
				{"Fill Rate %", cell(Percent, sum.FillRate)},
				{"Class Average", cell(Decimal, sum.ClassAverage)},
				{"Revenue", cell(Currency, sum.Revenue)},
				{"Trainers", sum.Trainers},
				{"Formats", sum.Formats},
				{"Empty Sessions", cell(Integer, sum.Empty)},
				{"Problematic Classes", sum.Problematic},
			},
		}
		return &Result{
			Title: t.Title,
			Rows:  sum,
			Meta:  Meta{Total: 1, Limit: 1, ActiveFilters: q.Criteria.ActiveCount()},
			Table: t,
		}, nil
	}

	groups, metric, err := RankSessions(sessions, view, q)
	if err != nil {
		return nil, err
	}
	totals := SessionTotals(groups)
	return groupResult("Class rankings: "+view, groups, &totals, q, metric, sessionColumns(), defaultRankingLimit), nil
}
