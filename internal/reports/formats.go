package reports

import (
	"strings"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// Class families compared by the formats report.
const (
	FamilyCycle = "PowerCycle"
	FamilyBarre = "Barre"
)

// FormatComparison sets the two class families side by side.
type FormatComparison struct {
	Cycle SessionGroup `json:"cycle"`
	Barre SessionGroup `json:"barre"`
	// Difference is cycle minus barre for each compared metric.
	Difference map[engine.MetricKey]float64 `json:"difference"`
}

var formatMetrics = []engine.MetricKey{
	"totalSessions", "totalCheckedIn", "classAverage", "fillRate", "revenue", "revenuePerSession", "emptySessions", "lateCancellations",
}

// inFamily matches the family keyword in the cleaned class name or class type.
func inFamily(s models.Session, keyword string) bool {
	return strings.Contains(strings.ToLower(s.CleanedClass), keyword) ||
		strings.Contains(strings.ToLower(s.ClassType), keyword)
}

// CompareFormats splits sessions into the cycle and barre families. A session
// matching both keywords counts in both.
func CompareFormats(sessions []models.Session) FormatComparison {
	var cycle, barre []models.Session
	for _, s := range sessions {
		if inFamily(s, "cycle") {
			cycle = append(cycle, s)
		}
		if inFamily(s, "barre") {
			barre = append(barre, s)
		}
	}
	c := FormatComparison{
		Cycle:      reduce(cycle, FamilyCycle, accumulateSession, finalizeSession),
		Barre:      reduce(barre, FamilyBarre, accumulateSession, finalizeSession),
		Difference: make(map[engine.MetricKey]float64, len(formatMetrics)),
	}
	for _, m := range formatMetrics {
		c.Difference[m] = c.Cycle.Metric(m) - c.Barre.Metric(m)
	}
	return c
}

func (s *Service) formats(view string, q Query) (*Result, error) {
	if view != "comparison" {
		return nil, unknown("formats", view)
	}
	metric, err := metricFor(q, "classAverage", sessionMetrics)
	if err != nil {
		return nil, err
	}
	cmp := CompareFormats(engine.Filter(s.src.Sessions(), q.Criteria))
	groups := []SessionGroup{cmp.Cycle, cmp.Barre}
	res := groupResult("PowerCycle vs Barre", groups, nil, q, metric, sessionColumns(), 0)
	res.Rows = cmp
	return res, nil
}
