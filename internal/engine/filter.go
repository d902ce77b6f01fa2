package engine

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/AngelCh415/studio-insights/internal/models"
)

// Record is what the filter engine needs from a flat record.
type Record interface {
	RecordDate() string
	Text(models.Field) string
	Value(models.Field) float64
	Searchable() []string
}

// Fixed thresholds for the problematic-session flag.
const (
	ProblemFillRate      = 30.0
	ProblemLateCancelled = 3.0
)

// DateRange bounds the record date. Zero times are open ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (d DateRange) Active() bool { return !d.Start.IsZero() || !d.End.IsZero() }

// Bounds is an inclusive numeric range; nil ends are open.
type Bounds struct {
	Min *float64
	Max *float64
}

func (b Bounds) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// Criteria is the union of every filter facet the report pages expose. All
// active facets combine with AND. The zero value matches everything.
type Criteria struct {
	DateRange DateRange
	// Search is a case-insensitive substring over the record's searchable fields.
	Search string
	// Location is a studio selector: "" or "all" for every studio, a short
	// alias from LocationAliases, or a studio name.
	Location string
	// In keeps a record when the field value is one of the listed values.
	// An empty list is not a filter.
	In map[models.Field][]string
	// NotIn drops a record when the field value is one of the listed values.
	NotIn     map[models.Field][]string
	TimeSlots []string
	Ranges    map[models.Field]Bounds
	// EmptyOnly keeps sessions with nobody checked in.
	EmptyOnly bool
	// ProblematicOnly keeps sessions under ProblemFillRate or with more than
	// ProblemLateCancelled late cancellations.
	ProblematicOnly bool
}

// LocationAliases maps selector aliases to studio names.
var LocationAliases = map[string]string{
	"kwality": "Kwality House, Kemps Corner",
	"supreme": "Supreme HQ, Bandra",
	"kenkere": "Kenkere House",
}

// Filter returns the records matching c, in input order.
func Filter[R Record](records []R, c Criteria) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether r satisfies every active facet. While a date range is
// active, records whose date does not parse are excluded; with no date range
// they are kept.
func (c Criteria) Match(r Record) bool {
	if c.DateRange.Active() {
		t, ok := ParseRecordDate(r.RecordDate())
		if !ok {
			return false
		}
		if !c.DateRange.Start.IsZero() && t.Before(c.DateRange.Start) {
			return false
		}
		if !c.DateRange.End.IsZero() && t.After(c.DateRange.End) {
			return false
		}
	}
	if !c.matchLocation(r) || !c.matchSearch(r) {
		return false
	}
	for f, values := range c.In {
		if len(values) > 0 && !slices.Contains(values, r.Text(f)) {
			return false
		}
	}
	for f, values := range c.NotIn {
		if slices.Contains(values, r.Text(f)) {
			return false
		}
	}
	if len(c.TimeSlots) > 0 && !slices.Contains(c.TimeSlots, TimeSlotOf(r.Text(models.FieldTime))) {
		return false
	}
	for f, b := range c.Ranges {
		if !b.Contains(r.Value(f)) {
			return false
		}
	}
	if c.EmptyOnly && r.Value(models.FieldCheckedIn) != 0 {
		return false
	}
	if c.ProblematicOnly {
		if !(r.Value(models.FieldFillRate) < ProblemFillRate || r.Value(models.FieldLateCancelled) > ProblemLateCancelled) {
			return false
		}
	}
	return true
}

func (c Criteria) matchLocation(r Record) bool {
	sel := strings.TrimSpace(c.Location)
	if sel == "" || strings.EqualFold(sel, "all") {
		return true
	}
	target := sel
	if name, ok := LocationAliases[strings.ToLower(sel)]; ok {
		target = name
	}
	loc := r.Text(models.FieldLocation)
	return loc == target || strings.Contains(strings.ToLower(loc), strings.ToLower(target))
}

func (c Criteria) matchSearch(r Record) bool {
	q := strings.ToLower(strings.TrimSpace(c.Search))
	if q == "" {
		return true
	}
	for _, s := range r.Searchable() {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// ActiveCount is the number of active facets, counting each selected value of
// a multi-select and each bound of a range separately.
func (c Criteria) ActiveCount() int {
	n := 0
	if !c.DateRange.Start.IsZero() {
		n++
	}
	if !c.DateRange.End.IsZero() {
		n++
	}
	if strings.TrimSpace(c.Search) != "" {
		n++
	}
	if sel := strings.TrimSpace(c.Location); sel != "" && !strings.EqualFold(sel, "all") {
		n++
	}
	for _, v := range c.In {
		n += len(v)
	}
	for _, v := range c.NotIn {
		n += len(v)
	}
	n += len(c.TimeSlots)
	for _, b := range c.Ranges {
		if b.Min != nil {
			n++
		}
		if b.Max != nil {
			n++
		}
	}
	if c.EmptyOnly {
		n++
	}
	if c.ProblematicOnly {
		n++
	}
	return n
}

// Options lists the distinct non-blank values of f, sorted, for filter pickers.
func Options[R Record](records []R, f models.Field) []string {
	values := lo.Uniq(lo.FilterMap(records, func(r R, _ int) (string, bool) {
		v := strings.TrimSpace(r.Text(f))
		return v, v != ""
	}))
	sort.Strings(values)
	return values
}

// Time slots offered by the class filters. Start hour inclusive, end exclusive.
const (
	SlotEarlyMorning = "Early Morning (6:00-9:00)"
	SlotMorning      = "Morning (9:00-12:00)"
	SlotAfternoon    = "Afternoon (12:00-17:00)"
	SlotEvening      = "Evening (17:00-20:00)"
	SlotNight        = "Night (20:00-23:00)"
)

var slotBounds = []struct {
	name     string
	from, to int
}{
	{SlotEarlyMorning, 6, 9},
	{SlotMorning, 9, 12},
	{SlotAfternoon, 12, 17},
	{SlotEvening, 17, 20},
	{SlotNight, 20, 23},
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "03:04 PM", "3:04PM", "03:04PM", "3 PM", "3PM"}

// TimeSlotOf maps a class start time such as "07:30" or "6:45 PM" to its slot,
// or "" when the time is unparseable or outside every slot.
func TimeSlotOf(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		h := t.Hour()
		for _, s := range slotBounds {
			if h >= s.from && h < s.to {
				return s.name
			}
		}
		return ""
	}
	return ""
}
