package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/AngelCh415/studio-insights/internal/models"
)

type convGroup struct {
	Key            string
	Total          int
	Converted      int
	Revenue        float64
	ConversionRate float64
}

func (g convGroup) Metric(m MetricKey) float64 {
	switch m {
	case "revenue":
		return g.Revenue
	case "conversionRate":
		return g.ConversionRate
	case "total":
		return float64(g.Total)
	}
	return 0
}

func (g convGroup) Label() string { return g.Key }

type convAcc struct {
	total, converted int
	revenue          float64
}

func groupClients(clients []models.Client, key func(models.Client) string) []convGroup {
	return Aggregate(clients, key,
		func(a *convAcc, c models.Client) {
			a.total++
			if c.ConversionStatus == models.StatusConverted {
				a.converted++
			}
			a.revenue += c.LTV.Float()
		},
		func(k string, a *convAcc) convGroup {
			return convGroup{
				Key:            k,
				Total:          a.total,
				Converted:      a.converted,
				Revenue:        a.revenue,
				ConversionRate: Percent(float64(a.converted), float64(a.total)),
			}
		})
}

func sampleClients() []models.Client {
	return []models.Client{
		{MemberID: "1", TrainerName: "Asha", ConversionStatus: "Converted", LTV: 100, FirstVisitDate: "01/01/2024"},
		{MemberID: "2", TrainerName: "Asha", ConversionStatus: "Converted", LTV: 50, FirstVisitDate: "2024-01-20"},
		{MemberID: "3", TrainerName: "Asha", ConversionStatus: "Pending", LTV: 0, FirstVisitDate: "03/02/2024"},
		{MemberID: "4", TrainerName: "Ravi", ConversionStatus: "Pending", FirstVisitDate: "bogus"},
		{MemberID: "5", TrainerName: "", ConversionStatus: "Converted", LTV: 25, FirstVisitDate: "2024-03-05"},
	}
}

func TestAggregateIdempotent(t *testing.T) {
	clients := sampleClients()
	c := Criteria{In: map[models.Field][]string{models.FieldTrainer: {"Asha", "Ravi"}}}
	key := func(c models.Client) string { return models.Coalesce(c.TrainerName, models.NoTrainer) }

	first := groupClients(Filter(clients, c), key)
	second := groupClients(Filter(clients, c), key)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output, got %+v and %+v", first, second)
	}
}

func TestTotalsRecomputedFromSums(t *testing.T) {
	clients := sampleClients()
	groups := groupClients(clients, func(c models.Client) string { return models.Coalesce(c.TrainerName, models.NoTrainer) })
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	var wantRevenue float64
	for _, c := range clients {
		wantRevenue += c.LTV.Float()
	}
	if got := Sum(groups, func(g convGroup) float64 { return g.Revenue }); got != wantRevenue {
		t.Fatalf("expected revenue %v, got %v", wantRevenue, got)
	}

	converted := Sum(groups, func(g convGroup) float64 { return float64(g.Converted) })
	total := Sum(groups, func(g convGroup) float64 { return float64(g.Total) })
	rate := Percent(converted, total)
	if rate != 60 {
		t.Fatalf("expected footer conversion 60, got %v", rate)
	}

	var mean float64
	for _, g := range groups {
		mean += g.ConversionRate
	}
	mean /= float64(len(groups))
	if math.Abs(mean-rate) < 1e-9 {
		t.Fatalf("footer rate must not be the mean of group rates (%v)", mean)
	}
}

func TestZeroGuard(t *testing.T) {
	g := groupClients(nil, func(models.Client) string { return "all" })
	if len(g) != 0 {
		t.Fatalf("expected no groups, got %d", len(g))
	}
	cases := []struct {
		name string
		got  float64
	}{
		{"SafeDiv", SafeDiv(5, 0)},
		{"Percent", Percent(0, 0)},
		{"Growth", Growth(10, 0)},
		{"PointDelta", PointDelta(10, 0)},
		{"Mean", Mean(nil)},
		{"Samples", Samples{}.Mean()},
		{"Variance", Variance([]float64{4})},
		{"WeightedAverage", WeightedAverage([]convGroup{{}}, func(convGroup) float64 { return 5 }, func(convGroup) float64 { return 0 })},
	}
	for _, tc := range cases {
		if tc.got != 0 || math.IsNaN(tc.got) {
			t.Fatalf("%s: expected 0, got %v", tc.name, tc.got)
		}
	}
}

func TestParseRecordDate(t *testing.T) {
	a, ok := ParseRecordDate("15/03/2024")
	if !ok {
		t.Fatal("expected DD/MM/YYYY to parse")
	}
	b, ok := ParseRecordDate("2024-03-15")
	if !ok {
		t.Fatal("expected ISO date to parse")
	}
	if a.Year() != b.Year() || a.Month() != b.Month() || a.Day() != b.Day() {
		t.Fatalf("expected same calendar day, got %v and %v", a, b)
	}
	if _, ok := ParseRecordDate("not-a-date"); ok {
		t.Fatal("expected not-a-date to fail")
	}
	if d, ok := ParseRecordDate("15/01/2024 10:00"); !ok || d.Day() != 15 || d.Month() != time.January {
		t.Fatalf("expected time suffix to be dropped, got %v %v", d, ok)
	}
}

func TestFilterMultiSelect(t *testing.T) {
	clients := sampleClients()

	all := Filter(clients, Criteria{In: map[models.Field][]string{models.FieldTrainer: {}}})
	if len(all) != len(clients) {
		t.Fatalf("expected empty selection to keep %d records, got %d", len(clients), len(all))
	}

	some := Filter(clients, Criteria{In: map[models.Field][]string{models.FieldTrainer: {"Ravi", models.NoTrainer}}})
	if len(some) != 2 || some[0].MemberID != "4" || some[1].MemberID != "5" {
		t.Fatalf("expected members 4 and 5, got %+v", some)
	}
}

func TestFilterDateRange(t *testing.T) {
	clients := sampleClients()

	if got := Filter(clients, Criteria{}); len(got) != 5 {
		t.Fatalf("expected unparseable dates kept without a range, got %d", len(got))
	}

	c := Criteria{DateRange: DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}}
	got := Filter(clients, c)
	if len(got) != 2 {
		t.Fatalf("expected 2 January clients, got %d", len(got))
	}
	for _, cl := range got {
		if cl.MemberID == "4" {
			t.Fatal("unparseable date must be excluded while a range is active")
		}
	}
}

func TestFilterFacets(t *testing.T) {
	sessions := []models.Session{
		{SessionID: "a", Trainer: "Asha", Location: "Kwality House, Kemps Corner", Time: "07:00", Capacity: 10, CheckedIn: 0},
		{SessionID: "b", Trainer: "Ravi", Location: "Supreme HQ, Bandra", Time: "6:30 PM", Capacity: 10, CheckedIn: 8, LateCancelled: 5},
		{SessionID: "c", Trainer: "Asha", Location: "Kenkere House", Time: "10:00", Capacity: 10, CheckedIn: 9},
	}
	five := 5.0
	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"location alias", Criteria{Location: "kwality"}, []string{"a"}},
		{"location all", Criteria{Location: "all"}, []string{"a", "b", "c"}},
		{"search", Criteria{Search: "ravi"}, []string{"b"}},
		{"exclude", Criteria{NotIn: map[models.Field][]string{models.FieldTrainer: {"Asha"}}}, []string{"b"}},
		{"time slot", Criteria{TimeSlots: []string{SlotEvening}}, []string{"b"}},
		{"range", Criteria{Ranges: map[models.Field]Bounds{models.FieldCheckedIn: {Min: &five}}}, []string{"b", "c"}},
		{"empty only", Criteria{EmptyOnly: true}, []string{"a"}},
		{"problematic", Criteria{ProblematicOnly: true}, []string{"a", "b"}},
	}
	for _, tc := range cases {
		got := Filter(sessions, tc.c)
		var ids []string
		for _, s := range got {
			ids = append(ids, s.SessionID)
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, ids)
		}
	}
}

func TestActiveCount(t *testing.T) {
	one := 1.0
	c := Criteria{
		Search:   "x",
		Location: "all",
		In:       map[models.Field][]string{models.FieldTrainer: {"a", "b"}},
		Ranges:   map[models.Field]Bounds{models.FieldLTV: {Min: &one, Max: &one}},
	}
	if got := c.ActiveCount(); got != 5 {
		t.Fatalf("expected 5 active facets, got %d", got)
	}
}

func TestConversionScenario(t *testing.T) {
	clients := []models.Client{
		{ConversionStatus: "Converted"},
		{ConversionStatus: "Converted"},
		{ConversionStatus: "Converted"},
		{ConversionStatus: "Pending"},
	}
	groups := groupClients(clients, func(models.Client) string { return "all" })
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Converted != 3 || g.Total != 4 || g.ConversionRate != 75 {
		t.Fatalf("expected 3/4 = 75, got %+v", g)
	}
}

func TestBucketByMonth(t *testing.T) {
	dates := []string{"01/01/2024", "15/01/2024 10:00", "2024-02-01", "garbage"}
	buckets := BucketByMonth(dates, func(s string) string { return s })
	got := map[string]int{}
	for _, b := range buckets {
		got[b.Key] = len(b.Records)
	}
	want := map[string]int{"2024-01": 2, "2024-02": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if buckets[0].Key != "2024-01" || buckets[0].Label != "Jan 2024" {
		t.Fatalf("expected oldest month first, got %+v", buckets[0])
	}

	periods := Periods(dates, func(s string) string { return s })
	if len(periods) != 2 || periods[0].Key() != "2024-02" {
		t.Fatalf("expected newest period first, got %v", periods)
	}
}

func TestRankTop(t *testing.T) {
	groups := []convGroup{{Key: "A", Revenue: 100}, {Key: "B", Revenue: 500}, {Key: "C", Revenue: 300}}
	got := Rank(groups, "revenue", Top, nil, 2)
	if len(got) != 2 || got[0].Key != "B" || got[1].Key != "C" {
		t.Fatalf("expected [B C], got %+v", got)
	}
	if groups[0].Key != "A" {
		t.Fatal("input must not be reordered")
	}

	bottom := Rank(groups, "revenue", Bottom, nil, 0)
	if bottom[0].Key != "A" || bottom[2].Key != "B" {
		t.Fatalf("expected ascending for bottom, got %+v", bottom)
	}
}

func TestRankNegativeMetric(t *testing.T) {
	groups := []convGroup{{Key: "A", Total: 1}, {Key: "B", Total: 5}, {Key: "C", Total: 3}}
	negative := map[MetricKey]bool{"total": true}

	worst := Rank(groups, "total", Top, negative, 1)
	if worst[0].Key != "B" {
		t.Fatalf("expected most occurrences first by default, got %+v", worst)
	}
	best := Rank(groups, "total", Top, negative, 1, WithNegativeOrder(BestFirst))
	if best[0].Key != "A" {
		t.Fatalf("expected fewest occurrences first, got %+v", best)
	}
	bestBottom := Rank(groups, "total", Bottom, negative, 1, WithNegativeOrder(BestFirst))
	if bestBottom[0].Key != "B" {
		t.Fatalf("expected bottom to invert, got %+v", bestBottom)
	}
}

func TestRankStableTies(t *testing.T) {
	groups := []convGroup{{Key: "A", Revenue: 1}, {Key: "B", Revenue: 1}, {Key: "C", Revenue: 1}}
	got := Rank(groups, "revenue", Top, nil, 0)
	if got[0].Key != "A" || got[1].Key != "B" || got[2].Key != "C" {
		t.Fatalf("expected input order on ties, got %+v", got)
	}
}

func TestWeightedAverage(t *testing.T) {
	type g struct{ avg, count float64 }
	groups := []g{{100, 2}, {200, 1}}
	got := WeightedAverage(groups, func(x g) float64 { return x.avg }, func(x g) float64 { return x.count })
	if math.Abs(got-133.3333) > 0.001 {
		t.Fatalf("expected 133.33, got %v", got)
	}
	if got == 150 {
		t.Fatal("must not average the averages")
	}
}

func TestChange(t *testing.T) {
	cur := convGroup{Revenue: 150, ConversionRate: 40}
	prev := convGroup{Revenue: 100, ConversionRate: 30}
	got := Change(cur, prev, []Comparison{{Metric: "revenue"}, {Metric: "conversionRate", Points: true}})
	if got["revenue"] != 50 || got["conversionRate"] != 10 {
		t.Fatalf("expected 50%% growth and 10 points, got %v", got)
	}
	zero := Change(cur, convGroup{}, []Comparison{{Metric: "revenue"}})
	if zero["revenue"] != 0 {
		t.Fatalf("expected 0 when previous is 0, got %v", zero)
	}
}

func TestAggregateByMonth(t *testing.T) {
	clients := sampleClients()
	m := AggregateByMonth(clients,
		models.Client.RecordDate,
		func(c models.Client) string { return models.Coalesce(c.TrainerName, models.NoTrainer) },
		func(a *convAcc, c models.Client) { a.total++ },
		func(_ string, a *convAcc) int { return a.total })

	if len(m.Periods) != 3 {
		t.Fatalf("expected 3 periods, got %v", m.Periods)
	}
	if len(m.Rows) != 2 {
		t.Fatalf("expected Asha and No Trainer rows, got %+v", m.Rows)
	}
	asha := m.Rows[0]
	if asha.Key != "Asha" || asha.Total != 3 || asha.Cells["2024-01"] != 2 || asha.Cells["2024-03"] != 0 {
		t.Fatalf("unexpected Asha row %+v", asha)
	}
}

func TestYearOnYear(t *testing.T) {
	dates := []string{"2024-01-05", "2024-01-09", "2023-01-02", "2023-03-01", "2022-01-01"}
	rows := YearOnYear(dates, func(s string) string { return s }, 2024,
		func(n *int, _ string) { *n++ },
		func(_ string, n *int) int { return *n })
	if len(rows) != 2 {
		t.Fatalf("expected Jan and Mar, got %+v", rows)
	}
	if rows[0].Label != "Jan" || rows[0].Current != 2 || rows[0].Previous != 1 {
		t.Fatalf("unexpected January row %+v", rows[0])
	}
	if rows[1].Label != "Mar" || rows[1].Current != 0 || rows[1].Previous != 1 {
		t.Fatalf("unexpected March row %+v", rows[1])
	}
}

func TestSamplesSkipNonPositive(t *testing.T) {
	var s Samples
	for _, v := range []float64{0, 4, -1, 8} {
		s.Add(v)
	}
	if s.Mean() != 6 {
		t.Fatalf("expected 6, got %v", s.Mean())
	}
}

func TestTimeSlotOf(t *testing.T) {
	cases := map[string]string{
		"07:30":   SlotEarlyMorning,
		"9:00":    SlotMorning,
		"2:15 PM": SlotAfternoon,
		"18:00":   SlotEvening,
		"21:00":   SlotNight,
		"04:00":   "",
		"soon":    "",
	}
	for in, want := range cases {
		if got := TimeSlotOf(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestOptions(t *testing.T) {
	got := Options(sampleClients(), models.FieldTrainer)
	if !reflect.DeepEqual(got, []string{"Asha", models.NoTrainer, "Ravi"}) {
		t.Fatalf("expected [Asha %s Ravi], got %v", models.NoTrainer, got)
	}
}

func TestFilterMatchesGroupLabels(t *testing.T) {
	clients := sampleClients()
	key := func(c models.Client) string { return c.Text(models.FieldTrainer) }
	var label string
	for _, g := range groupClients(clients, key) {
		if g.Key != "Asha" && g.Key != "Ravi" {
			label = g.Key
		}
	}
	if label != models.NoTrainer {
		t.Fatalf("expected blank trainer grouped as %q, got %q", models.NoTrainer, label)
	}

	got := Filter(clients, Criteria{In: map[models.Field][]string{models.FieldTrainer: {label}}})
	if len(got) != 1 || got[0].MemberID != "5" {
		t.Fatalf("expected member 5 selected by its group label, got %+v", got)
	}
	if got := Filter(clients, Criteria{NotIn: map[models.Field][]string{models.FieldTrainer: {label}}}); len(got) != 4 {
		t.Fatalf("expected 4 clients after excluding %q, got %d", label, len(got))
	}
	if got := Filter(clients, Criteria{In: map[models.Field][]string{models.FieldTrainer: {""}}}); len(got) != 0 {
		t.Fatalf("expected raw blank to select nothing, got %d", len(got))
	}
}
