package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// layouts accepted after the DD/MM/YYYY path has been tried.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// ParseRecordDate reads a record date in either DD/MM/YYYY form (optionally
// followed by a space and a time, which is dropped) or one of the common ISO
// and long forms. ok is false when neither yields a date.
//
// DD/MM/YYYY values are built like a calendar constructor would, so an out of
// range day or month rolls over into the next period instead of failing.
func ParseRecordDate(raw string) (t time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.Contains(raw, "/") {
		first := strings.Fields(raw)[0]
		parts := strings.Split(first, "/")
		if len(parts) == 3 {
			d, errD := strconv.Atoi(parts[0])
			m, errM := strconv.Atoi(parts[1])
			y, errY := strconv.Atoi(parts[2])
			if errD == nil && errM == nil && errY == nil {
				return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Period is a calendar month bucket.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: t.Month()} }

// Key is "YYYY-MM"; keys sort chronologically as strings.
func (p Period) Key() string {
	return strconv.Itoa(p.Year) + "-" + pad2(int(p.Month))
}

// Label is the display form, e.g. "Jan 2024".
func (p Period) Label() string {
	return p.Month.String()[:3] + " " + strconv.Itoa(p.Year)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Dated pairs a record with its parsed date.
type Dated[R any] struct {
	Record R
	Date   time.Time
}

// WithDates keeps the records whose date parses. Records with an unparseable
// date never appear in a temporal bucket, regardless of any active filter.
func WithDates[R any](records []R, dateOf func(R) string) []Dated[R] {
	out := make([]Dated[R], 0, len(records))
	for _, r := range records {
		if t, ok := ParseRecordDate(dateOf(r)); ok {
			out = append(out, Dated[R]{Record: r, Date: t})
		}
	}
	return out
}

// MonthBucket is the set of records falling in one calendar month.
type MonthBucket[R any] struct {
	Period
	Key     string `json:"key"`
	Label   string `json:"label"`
	Records []R    `json:"-"`
}

// BucketByMonth groups dated records by calendar month, oldest month first.
func BucketByMonth[R any](records []R, dateOf func(R) string) []MonthBucket[R] {
	index := map[string]int{}
	var out []MonthBucket[R]
	for _, d := range WithDates(records, dateOf) {
		p := PeriodOf(d.Date)
		k := p.Key()
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, MonthBucket[R]{Period: p, Key: k, Label: p.Label()})
		}
		out[i].Records = append(out[i].Records, d.Record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Periods returns the distinct months present in records, newest first.
func Periods[R any](records []R, dateOf func(R) string) []Period {
	seen := map[Period]struct{}{}
	var out []Period
	for _, d := range WithDates(records, dateOf) {
		p := PeriodOf(d.Date)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() > out[j].Key() })
	return out
}
