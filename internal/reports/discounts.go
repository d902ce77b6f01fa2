package reports

import (
	"github.com/samber/lo"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// DiscountGroup is a finalized group of discounted sales.
type DiscountGroup struct {
	Key           string  `json:"key"`
	Transactions  int     `json:"transactions"`
	TotalDiscount float64 `json:"totalDiscount"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AvgDiscount   float64 `json:"avgDiscount"`
	AvgPercent    float64 `json:"avgPercentage"`
	DiscountShare float64 `json:"discountShare"` // discount over gross (revenue + discount)

	percentSum float64
}

var discountMetrics = map[engine.MetricKey]func(DiscountGroup) float64{
	"transactions":  func(g DiscountGroup) float64 { return float64(g.Transactions) },
	"totalDiscount": func(g DiscountGroup) float64 { return g.TotalDiscount },
	"totalRevenue":  func(g DiscountGroup) float64 { return g.TotalRevenue },
	"avgDiscount":   func(g DiscountGroup) float64 { return g.AvgDiscount },
	"avgPercentage": func(g DiscountGroup) float64 { return g.AvgPercent },
	"discountShare": func(g DiscountGroup) float64 { return g.DiscountShare },
}

func (g DiscountGroup) Metric(k engine.MetricKey) float64 {
	if fn, ok := discountMetrics[k]; ok {
		return fn(g)
	}
	return 0
}

func (g DiscountGroup) Label() string { return g.Key }

type discountAcc struct {
	n                         int
	discount, revenue, pctSum float64
}

func accumulateDiscount(a *discountAcc, s models.Sale) {
	a.n++
	a.discount += s.DiscountAmount.Float()
	a.revenue += s.PaymentValue.Float()
	a.pctSum += s.DiscountPercentage.Float()
}

func finalizeDiscount(key string, a *discountAcc) DiscountGroup {
	return discountGroup(key, float64(a.n), a.discount, a.revenue, a.pctSum)
}

func discountGroup(key string, n, discount, revenue, pctSum float64) DiscountGroup {
	return DiscountGroup{
		Key:           key,
		Transactions:  int(n),
		TotalDiscount: discount,
		TotalRevenue:  revenue,
		AvgDiscount:   engine.SafeDiv(discount, n),
		AvgPercent:    engine.SafeDiv(pctSum, n),
		DiscountShare: engine.Percent(discount, revenue+discount),
		percentSum:    pctSum,
	}
}

func DiscountTotals(groups []DiscountGroup) DiscountGroup {
	sum := func(f func(DiscountGroup) float64) float64 { return engine.Sum(groups, f) }
	return discountGroup("Total",
		sum(func(g DiscountGroup) float64 { return float64(g.Transactions) }),
		sum(func(g DiscountGroup) float64 { return g.TotalDiscount }),
		sum(func(g DiscountGroup) float64 { return g.TotalRevenue }),
		sum(func(g DiscountGroup) float64 { return g.percentSum }),
	)
}

var discountDimensions = map[string]func(models.Sale) string{
	"category":      func(s models.Sale) string { return s.Text(models.FieldCategory) },
	"product":       func(s models.Sale) string { return s.Text(models.FieldProduct) },
	"soldBy":        func(s models.Sale) string { return s.Text(models.FieldSoldBy) },
	"paymentMethod": func(s models.Sale) string { return s.Text(models.FieldPaymentMethod) },
}

// Discounted keeps the sales that carry a discount.
func Discounted(sales []models.Sale) []models.Sale {
	return lo.Filter(sales, func(s models.Sale, _ int) bool { return s.DiscountAmount > 0 })
}

func GroupDiscounts(sales []models.Sale, key func(models.Sale) string) []DiscountGroup {
	return engine.Aggregate(Discounted(sales), key, accumulateDiscount, finalizeDiscount)
}

func discountColumns() []Column[DiscountGroup] {
	return []Column[DiscountGroup]{
		{Header: "Group", Kind: Text, Value: func(g DiscountGroup) any { return g.Key }},
		{Header: "Transactions", Kind: Integer, Metric: "transactions", Value: func(g DiscountGroup) any { return g.Transactions }},
		{Header: "Total Discount", Kind: Currency, Metric: "totalDiscount", Value: func(g DiscountGroup) any { return g.TotalDiscount }},
		{Header: "Revenue", Kind: Currency, Metric: "totalRevenue", Value: func(g DiscountGroup) any { return g.TotalRevenue }},
		{Header: "Avg Discount", Kind: Currency, Metric: "avgDiscount", Value: func(g DiscountGroup) any { return g.AvgDiscount }},
		{Header: "Avg Discount %", Kind: Percent, Metric: "avgPercentage", Value: func(g DiscountGroup) any { return g.AvgPercent }},
		{Header: "Discount Share %", Kind: Percent, Metric: "discountShare", Value: func(g DiscountGroup) any { return g.DiscountShare }},
	}
}

func (s *Service) discounts(view string, q Query) (*Result, error) {
	key, ok := discountDimensions[view]
	if !ok {
		return nil, unknown("discounts", view)
	}
	metric, err := metricFor(q, "totalDiscount", discountMetrics)
	if err != nil {
		return nil, err
	}
	sales := engine.Filter(s.src.Sales(), q.Criteria)
	groups := engine.Rank(GroupDiscounts(sales, key), metric, q.direction(), nil, 0)
	totals := DiscountTotals(groups)
	return groupResult("Discounts by "+view, groups, &totals, q, metric, discountColumns(), defaultRankingLimit), nil
}
