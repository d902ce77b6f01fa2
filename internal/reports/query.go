package reports

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
	"github.com/AngelCh415/studio-insights/internal/validation"
)

// ErrInvalidQuery wraps every query-string problem; handlers answer 400.
var ErrInvalidQuery = errors.New("invalid query")

// Query is a parsed report request. Criteria is built from the multi-select,
// exclusion and range parameters; the remaining fields steer grouping,
// ranking and paging.
type Query struct {
	From      string `query:"from" validate:"omitempty,recorddate"`
	To        string `query:"to" validate:"omitempty,recorddate"`
	Search    string `query:"q" validate:"max=200"`
	Location  string `query:"location" validate:"max=200"`
	Metric    string `query:"metric" validate:"omitempty,max=40"`
	Direction string `query:"direction" validate:"omitempty,oneof=top bottom"`
	Order     string `query:"negative_order" validate:"omitempty,oneof=worst_first best_first"`
	Year      int    `query:"year" validate:"omitempty,gte=1970,lte=9999"`
	Limit     int    `query:"limit" validate:"gte=0,lte=1000"`
	Offset    int    `query:"offset" validate:"gte=0"`

	// Group-level bounds applied to class rankings after aggregation.
	MinSessions   *float64 `query:"min_sessions" validate:"omitempty,gte=0"`
	MaxSessions   *float64 `query:"max_sessions" validate:"omitempty,gte=0"`
	MinAttendance *float64 `query:"min_attendance" validate:"omitempty,gte=0"`
	MaxAttendance *float64 `query:"max_attendance" validate:"omitempty,gte=0"`

	Criteria engine.Criteria `query:"-" validate:"-"`
}

// Multi-select parameters. "exclude_<name>" drops the listed values instead.
var selectParams = map[string]models.Field{
	"trainer":           models.FieldTrainer,
	"class":             models.FieldClass,
	"class_type":        models.FieldClassType,
	"day":               models.FieldDay,
	"category":          models.FieldCategory,
	"product":           models.FieldProduct,
	"sold_by":           models.FieldSoldBy,
	"payment_method":    models.FieldPaymentMethod,
	"source":            models.FieldSource,
	"stage":             models.FieldStage,
	"status":            models.FieldStatus,
	"associate":         models.FieldAssociate,
	"channel":           models.FieldChannel,
	"center":            models.FieldCenter,
	"conversion_status": models.FieldConversionStatus,
	"retention_status":  models.FieldRetentionStatus,
	"membership":        models.FieldMembership,
	"entity":            models.FieldEntity,
}

// Range parameters, read as "min_<name>" and "max_<name>".
var rangeParams = map[string]models.Field{
	"ltv":              models.FieldLTV,
	"capacity":         models.FieldCapacity,
	"checked_in":       models.FieldCheckedIn,
	"fill_rate":        models.FieldFillRate,
	"revenue":          models.FieldRevenue,
	"late_cancelled":   models.FieldLateCancelled,
	"discount_amount":  models.FieldDiscountAmount,
	"discount_percent": models.FieldDiscountPercent,
	"visits":           models.FieldVisits,
}

// ParseQuery reads a report request from the query string.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		From:      strings.TrimSpace(v.Get("from")),
		To:        strings.TrimSpace(v.Get("to")),
		Search:    v.Get("q"),
		Location:  v.Get("location"),
		Metric:    strings.TrimSpace(v.Get("metric")),
		Direction: strings.ToLower(strings.TrimSpace(v.Get("direction"))),
		Order:     strings.ToLower(strings.TrimSpace(v.Get("negative_order"))),
		Year:      atoiDef(v.Get("year"), 0),
		Limit:     atoiDef(v.Get("limit"), 0),
		Offset:    atoiDef(v.Get("offset"), 0),
	}

	var err error
	for name, dst := range map[string]**float64{
		"min_sessions":   &q.MinSessions,
		"max_sessions":   &q.MaxSessions,
		"min_attendance": &q.MinAttendance,
		"max_attendance": &q.MaxAttendance,
	} {
		if *dst, err = optFloat(v, name); err != nil {
			return Query{}, err
		}
	}

	if err := validation.Struct(&q); err != nil {
		return Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	c := engine.Criteria{
		Search:          q.Search,
		Location:        q.Location,
		TimeSlots:       multi(v, "time_slot"),
		EmptyOnly:       boolParam(v.Get("empty_only")),
		ProblematicOnly: boolParam(v.Get("problematic_only")),
	}
	if q.From != "" {
		c.DateRange.Start, _ = engine.ParseRecordDate(q.From)
	}
	if q.To != "" {
		end, _ := engine.ParseRecordDate(q.To)
		c.DateRange.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	for name, f := range selectParams {
		if vals := multi(v, name); len(vals) > 0 {
			if c.In == nil {
				c.In = map[models.Field][]string{}
			}
			c.In[f] = vals
		}
		if vals := multi(v, "exclude_"+name); len(vals) > 0 {
			if c.NotIn == nil {
				c.NotIn = map[models.Field][]string{}
			}
			c.NotIn[f] = vals
		}
	}
	for name, f := range rangeParams {
		lower, err := optFloat(v, "min_"+name)
		if err != nil {
			return Query{}, err
		}
		upper, err := optFloat(v, "max_"+name)
		if err != nil {
			return Query{}, err
		}
		if lower == nil && upper == nil {
			continue
		}
		if c.Ranges == nil {
			c.Ranges = map[models.Field]engine.Bounds{}
		}
		c.Ranges[f] = engine.Bounds{Min: lower, Max: upper}
	}
	q.Criteria = c
	return q, nil
}

func (q Query) direction() engine.Direction {
	if q.Direction == string(engine.Bottom) {
		return engine.Bottom
	}
	return engine.Top
}

func (q Query) negativeOrder() engine.NegativeOrder {
	if q.Order == "best_first" {
		return engine.BestFirst
	}
	return engine.WorstFirst
}

// multi reads a multi-select. Repeated parameters are taken verbatim so values
// may contain commas; a single parameter is split as CSV.
func multi(v url.Values, name string) []string {
	raw := v[name]
	if len(raw) == 1 {
		raw = csvList(raw[0])
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func csvList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optFloat(v url.Values, name string) (*float64, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidQuery, name)
	}
	return &f, nil
}

func boolParam(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
