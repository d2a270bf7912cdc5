package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/anisabintang/ecommerce-dashboard/internal/domain/analytics"
)

// Options holds the presentation defaults for ranked aggregates.
type Options struct {
	TopCities         int // demographics city ranking size
	TopCustomers      int // RFM leaderboard size
	SlowestCategories int // slowest-delivery ranking size
	HistogramBins     int // price distribution bin count
}

// DefaultOptions mirrors the original dashboard's widget sizes.
func DefaultOptions() Options {
	return Options{
		TopCities:         10,
		TopCustomers:      5,
		SlowestCategories: 10,
		HistogramBins:     50,
	}
}

// Service is the aggregation engine. It computes every dashboard aggregate
// fresh on each call from the immutable dataset; there is no caching and no
// shared mutable state, so it is safe for concurrent use.
type Service struct {
	dataset *analytics.Dataset
	opts    Options
	logger  *zap.Logger
}

// NewService creates a Service over a loaded dataset.
func NewService(dataset *analytics.Dataset, opts Options, logger *zap.Logger) *Service {
	def := DefaultOptions()
	if opts.TopCities <= 0 {
		opts.TopCities = def.TopCities
	}
	if opts.TopCustomers <= 0 {
		opts.TopCustomers = def.TopCustomers
	}
	if opts.SlowestCategories <= 0 {
		opts.SlowestCategories = def.SlowestCategories
	}
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = def.HistogramBins
	}
	return &Service{dataset: dataset, opts: opts, logger: logger}
}

// Dataset returns the underlying dataset (for health reporting).
func (s *Service) Dataset() *analytics.Dataset {
	return s.dataset
}

// selectOrders returns pointers into the dataset matching the filter.
func (s *Service) selectOrders(f analytics.Filter) []*analytics.Order {
	var rows []*analytics.Order
	for i := range s.dataset.Orders {
		if f.Matches(&s.dataset.Orders[i]) {
			rows = append(rows, &s.dataset.Orders[i])
		}
	}
	return rows
}

// Overview computes the headline metrics for the selection.
func (s *Service) Overview(ctx context.Context, f analytics.Filter) *analytics.Overview {
	rows := s.selectOrders(f)

	orderIDs := make(map[string]struct{}, len(rows))
	revenue := decimal.Zero
	var priced, delivered, deliveryDaysSum int64
	for _, o := range rows {
		orderIDs[o.OrderID] = struct{}{}
		if v, ok := o.TotalValue(); ok {
			revenue = revenue.Add(v)
			priced++
		}
		if days, ok := o.DeliveryDays(); ok {
			deliveryDaysSum += int64(days)
			delivered++
		}
	}

	ov := &analytics.Overview{
		TotalOrders:      int64(len(orderIDs)),
		TotalRevenue:     revenue,
		SelectedRows:     int64(len(rows)),
		PriceExcluded:    int64(len(rows)) - priced,
		DeliveryExcluded: int64(len(rows)) - delivered,
	}
	if priced > 0 {
		ov.AvgOrderValue = revenue.Div(decimal.NewFromInt(priced))
	} else {
		ov.AvgOrderValue = decimal.Zero
	}
	if delivered > 0 {
		ov.AvgDeliveryDays = float64(deliveryDaysSum) / float64(delivered)
	}

	s.logExclusions("overview", ov.SelectedRows, ov.PriceExcluded+ov.DeliveryExcluded)
	return ov
}

// DailyTrend computes the chronological daily order/revenue series. Every
// selected row counts toward its day; revenue sums only priced rows.
func (s *Service) DailyTrend(ctx context.Context, f analytics.Filter) *analytics.DailyTrend {
	rows := s.selectOrders(f)

	byDay := make(map[time.Time]*analytics.DailyPoint)
	var priced int64
	for _, o := range rows {
		day := o.PurchaseDate()
		p, ok := byDay[day]
		if !ok {
			p = &analytics.DailyPoint{Date: day, Revenue: decimal.Zero}
			byDay[day] = p
		}
		p.OrderCount++
		if v, ok := o.TotalValue(); ok {
			p.Revenue = p.Revenue.Add(v)
			priced++
		}
	}

	points := make([]analytics.DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	trend := &analytics.DailyTrend{
		Points:        points,
		SelectedRows:  int64(len(rows)),
		PriceExcluded: int64(len(rows)) - priced,
	}
	s.logExclusions("daily_trend", trend.SelectedRows, trend.PriceExcluded)
	return trend
}

// Demographics groups customers and orders by state, plus a city ranking.
func (s *Service) Demographics(ctx context.Context, f analytics.Filter, topCities int) *analytics.Demographics {
	if topCities <= 0 {
		topCities = s.opts.TopCities
	}
	rows := s.selectOrders(f)

	stateCustomers := make(map[string]map[string]struct{})
	stateOrders := make(map[string]map[string]struct{})
	cityCustomers := make(map[string]map[string]struct{})
	var geoExcluded int64
	for _, o := range rows {
		if o.State == "" {
			geoExcluded++
			continue
		}
		addMember(stateCustomers, o.State, o.CustomerID)
		addMember(stateOrders, o.State, o.OrderID)
		if o.City != "" {
			addMember(cityCustomers, o.City, o.CustomerID)
		}
	}

	states := make([]analytics.StateCount, 0, len(stateCustomers))
	for state, customers := range stateCustomers {
		states = append(states, analytics.StateCount{
			State:     state,
			Customers: int64(len(customers)),
			Orders:    int64(len(stateOrders[state])),
		})
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].Customers != states[j].Customers {
			return states[i].Customers > states[j].Customers
		}
		return states[i].State < states[j].State
	})

	cities := make([]analytics.CityCount, 0, len(cityCustomers))
	for city, customers := range cityCustomers {
		cities = append(cities, analytics.CityCount{City: city, Customers: int64(len(customers))})
	}
	sort.Slice(cities, func(i, j int) bool {
		if cities[i].Customers != cities[j].Customers {
			return cities[i].Customers > cities[j].Customers
		}
		return cities[i].City < cities[j].City
	})
	if len(cities) > topCities {
		cities = cities[:topCities]
	}

	demo := &analytics.Demographics{
		States:            states,
		TopCities:         cities,
		SelectedRows:      int64(len(rows)),
		GeographyExcluded: geoExcluded,
	}
	s.logExclusions("demographics", demo.SelectedRows, demo.GeographyExcluded)
	return demo
}

// ProductInsights aggregates the selection per product category, plus the
// slowest-delivering categories over the last year of the selection.
func (s *Service) ProductInsights(ctx context.Context, f analytics.Filter, topSlowest int) *analytics.ProductInsights {
	if topSlowest <= 0 {
		topSlowest = s.opts.SlowestCategories
	}
	rows := s.selectOrders(f)

	type catAgg struct {
		sales         decimal.Decimal
		orders        int64
		deliveryDays  int64
		deliveries    int64
		reviewSum     int64
		reviews       int64
	}
	byCat := make(map[string]*catAgg)
	res := &analytics.ProductInsights{SelectedRows: int64(len(rows))}

	maxDate := maxPurchaseDate(rows)
	lastYear := maxDate.AddDate(-1, 0, 0)

	type slowAgg struct {
		days  int64
		count int64
	}
	bySlowCat := make(map[string]*slowAgg)

	for _, o := range rows {
		if _, ok := o.TotalValue(); !ok {
			res.PriceExcluded++
		}
		if _, ok := o.DeliveryDays(); !ok {
			res.DeliveryExcluded++
		}
		if o.ReviewScore == nil {
			res.ReviewExcluded++
		}
		if o.Category == "" {
			res.CategoryExcluded++
			continue
		}

		agg, ok := byCat[o.Category]
		if !ok {
			agg = &catAgg{sales: decimal.Zero}
			byCat[o.Category] = agg
		}
		agg.orders++
		if v, ok := o.TotalValue(); ok {
			agg.sales = agg.sales.Add(v)
		}
		if days, ok := o.DeliveryDays(); ok {
			agg.deliveryDays += int64(days)
			agg.deliveries++

			if !o.PurchaseDate().Before(lastYear) {
				sl, ok := bySlowCat[o.Category]
				if !ok {
					sl = &slowAgg{}
					bySlowCat[o.Category] = sl
				}
				sl.days += int64(days)
				sl.count++
			}
		}
		if o.ReviewScore != nil {
			agg.reviewSum += int64(*o.ReviewScore)
			agg.reviews++
		}
	}

	res.Categories = make([]analytics.CategoryInsight, 0, len(byCat))
	for cat, agg := range byCat {
		ins := analytics.CategoryInsight{
			Category:   cat,
			TotalSales: agg.sales,
			OrderCount: agg.orders,
		}
		if agg.deliveries > 0 {
			ins.AvgDeliveryDays = float64(agg.deliveryDays) / float64(agg.deliveries)
		}
		if agg.reviews > 0 {
			ins.AvgReviewScore = float64(agg.reviewSum) / float64(agg.reviews)
		}
		res.Categories = append(res.Categories, ins)
	}
	sort.Slice(res.Categories, func(i, j int) bool {
		cmp := res.Categories[i].TotalSales.Cmp(res.Categories[j].TotalSales)
		if cmp != 0 {
			return cmp > 0
		}
		return res.Categories[i].Category < res.Categories[j].Category
	})

	res.SlowestCategories = make([]analytics.CategoryDelivery, 0, len(bySlowCat))
	for cat, sl := range bySlowCat {
		res.SlowestCategories = append(res.SlowestCategories, analytics.CategoryDelivery{
			Category:        cat,
			AvgDeliveryDays: float64(sl.days) / float64(sl.count),
			Deliveries:      sl.count,
		})
	}
	sort.Slice(res.SlowestCategories, func(i, j int) bool {
		if res.SlowestCategories[i].AvgDeliveryDays != res.SlowestCategories[j].AvgDeliveryDays {
			return res.SlowestCategories[i].AvgDeliveryDays > res.SlowestCategories[j].AvgDeliveryDays
		}
		return res.SlowestCategories[i].Category < res.SlowestCategories[j].Category
	})
	if len(res.SlowestCategories) > topSlowest {
		res.SlowestCategories = res.SlowestCategories[:topSlowest]
	}

	s.logExclusions("products", res.SelectedRows, res.CategoryExcluded+res.PriceExcluded)
	return res
}

// RFM computes the per-customer Recency/Frequency/Monetary segmentation.
// The analysis date is the day after the latest purchase in the selection,
// so the most recent customer scores recency 1.
func (s *Service) RFM(ctx context.Context, f analytics.Filter, topN int) *analytics.RFMResult {
	if topN <= 0 {
		topN = s.opts.TopCustomers
	}
	rows := s.selectOrders(f)
	res := &analytics.RFMResult{SelectedRows: int64(len(rows))}
	if len(rows) == 0 {
		return res
	}

	type custAgg struct {
		last     time.Time
		orders   int64
		monetary decimal.Decimal
	}
	byCustomer := make(map[string]*custAgg)
	for _, o := range rows {
		agg, ok := byCustomer[o.CustomerID]
		if !ok {
			agg = &custAgg{monetary: decimal.Zero}
			byCustomer[o.CustomerID] = agg
		}
		agg.orders++
		if day := o.PurchaseDate(); day.After(agg.last) {
			agg.last = day
		}
		if v, ok := o.TotalValue(); ok {
			agg.monetary = agg.monetary.Add(v)
		} else {
			res.PriceExcluded++
		}
	}

	res.AnalysisDate = maxPurchaseDate(rows).AddDate(0, 0, 1)
	res.Segments = make([]analytics.RFMSegment, 0, len(byCustomer))
	for id, agg := range byCustomer {
		res.Segments = append(res.Segments, analytics.RFMSegment{
			CustomerID:  id,
			RecencyDays: int64(res.AnalysisDate.Sub(agg.last).Hours() / 24),
			Frequency:   agg.orders,
			Monetary:    agg.monetary,
		})
	}
	sort.Slice(res.Segments, func(i, j int) bool {
		return res.Segments[i].CustomerID < res.Segments[j].CustomerID
	})

	res.TopRecent = topSegments(res.Segments, topN, func(a, b analytics.RFMSegment) bool {
		return a.RecencyDays < b.RecencyDays
	})
	res.TopFrequent = topSegments(res.Segments, topN, func(a, b analytics.RFMSegment) bool {
		return a.Frequency > b.Frequency
	})
	res.TopMonetary = topSegments(res.Segments, topN, func(a, b analytics.RFMSegment) bool {
		return a.Monetary.GreaterThan(b.Monetary)
	})

	s.logExclusions("rfm", res.SelectedRows, res.PriceExcluded)
	return res
}

// Payments groups the selection by payment method and installment count,
// with trailing-six-month transaction totals per method.
func (s *Service) Payments(ctx context.Context, f analytics.Filter) *analytics.Payments {
	rows := s.selectOrders(f)
	res := &analytics.Payments{SelectedRows: int64(len(rows))}
	if len(rows) == 0 {
		return res
	}

	type payAgg struct {
		transactions int64
		reviewSum    int64
		reviews      int64
		total        decimal.Decimal
	}
	byType := make(map[string]*payAgg)
	recentTotals := make(map[string]decimal.Decimal)

	type instAgg struct {
		orders    int64
		valueSum  decimal.Decimal
		priced    int64
		reviewSum int64
		reviews   int64
	}
	byInstallments := make(map[int]*instAgg)

	sixMonthsAgo := maxPurchaseDate(rows).AddDate(0, -6, 0)

	for _, o := range rows {
		if o.ReviewScore == nil {
			res.ReviewExcluded++
		}
		if o.PaymentValue == nil {
			res.PaymentValueExcluded++
		}
		if o.PaymentType == "" {
			res.TypeExcluded++
		} else {
			agg, ok := byType[o.PaymentType]
			if !ok {
				agg = &payAgg{total: decimal.Zero}
				byType[o.PaymentType] = agg
			}
			agg.transactions++
			if o.ReviewScore != nil {
				agg.reviewSum += int64(*o.ReviewScore)
				agg.reviews++
			}
			if o.PaymentValue != nil {
				agg.total = agg.total.Add(*o.PaymentValue)
				if !o.PurchaseDate().Before(sixMonthsAgo) {
					recentTotals[o.PaymentType] = recentTotals[o.PaymentType].Add(*o.PaymentValue)
				}
			}
		}

		inst, ok := byInstallments[o.PaymentInstallments]
		if !ok {
			inst = &instAgg{valueSum: decimal.Zero}
			byInstallments[o.PaymentInstallments] = inst
		}
		inst.orders++
		if v, ok := o.TotalValue(); ok {
			inst.valueSum = inst.valueSum.Add(v)
			inst.priced++
		}
		if o.ReviewScore != nil {
			inst.reviewSum += int64(*o.ReviewScore)
			inst.reviews++
		}
	}

	res.ByType = make([]analytics.PaymentStats, 0, len(byType))
	for typ, agg := range byType {
		ps := analytics.PaymentStats{
			PaymentType:  typ,
			Transactions: agg.transactions,
			TotalValue:   agg.total,
		}
		if agg.reviews > 0 {
			ps.AvgReviewScore = float64(agg.reviewSum) / float64(agg.reviews)
		}
		res.ByType = append(res.ByType, ps)
	}
	sort.Slice(res.ByType, func(i, j int) bool {
		if res.ByType[i].Transactions != res.ByType[j].Transactions {
			return res.ByType[i].Transactions > res.ByType[j].Transactions
		}
		return res.ByType[i].PaymentType < res.ByType[j].PaymentType
	})

	res.ByInstallments = make([]analytics.InstallmentStats, 0, len(byInstallments))
	for n, agg := range byInstallments {
		is := analytics.InstallmentStats{
			Installments:  n,
			Orders:        agg.orders,
			AvgOrderValue: decimal.Zero,
		}
		if agg.priced > 0 {
			is.AvgOrderValue = agg.valueSum.Div(decimal.NewFromInt(agg.priced))
		}
		if agg.reviews > 0 {
			is.AvgReviewScore = float64(agg.reviewSum) / float64(agg.reviews)
		}
		res.ByInstallments = append(res.ByInstallments, is)
	}
	sort.Slice(res.ByInstallments, func(i, j int) bool {
		return res.ByInstallments[i].Installments < res.ByInstallments[j].Installments
	})

	res.RecentTotals = make([]analytics.PaymentTotal, 0, len(recentTotals))
	for typ, total := range recentTotals {
		res.RecentTotals = append(res.RecentTotals, analytics.PaymentTotal{PaymentType: typ, Total: total})
	}
	sort.Slice(res.RecentTotals, func(i, j int) bool {
		cmp := res.RecentTotals[i].Total.Cmp(res.RecentTotals[j].Total)
		if cmp != 0 {
			return cmp > 0
		}
		return res.RecentTotals[i].PaymentType < res.RecentTotals[j].PaymentType
	})

	s.logExclusions("payments", res.SelectedRows, res.TypeExcluded)
	return res
}

// PriceDistribution builds a fixed-width histogram over order prices.
func (s *Service) PriceDistribution(ctx context.Context, f analytics.Filter, bins int) *analytics.PriceDistribution {
	if bins <= 0 {
		bins = s.opts.HistogramBins
	}
	rows := s.selectOrders(f)
	res := &analytics.PriceDistribution{SelectedRows: int64(len(rows))}

	var prices []float64
	for _, o := range rows {
		if o.Price == nil {
			res.PriceExcluded++
			continue
		}
		prices = append(prices, o.Price.InexactFloat64())
	}
	if len(prices) == 0 {
		return res
	}

	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}

	if lo == hi {
		res.Bins = []analytics.PriceBin{{Lower: lo, Upper: hi, Count: int64(len(prices))}}
		return res
	}

	width := (hi - lo) / float64(bins)
	res.Bins = make([]analytics.PriceBin, bins)
	for i := range res.Bins {
		res.Bins[i].Lower = lo + width*float64(i)
		res.Bins[i].Upper = lo + width*float64(i+1)
	}
	res.Bins[bins-1].Upper = hi
	for _, p := range prices {
		idx := int((p - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		res.Bins[idx].Count++
	}

	s.logExclusions("price_distribution", res.SelectedRows, res.PriceExcluded)
	return res
}

func (s *Service) logExclusions(aggregate string, selected, excluded int64) {
	if excluded > 0 {
		s.logger.Debug("Rows excluded from aggregate",
			zap.String("aggregate", aggregate),
			zap.Int64("selected", selected),
			zap.Int64("excluded", excluded),
		)
	}
}

func addMember(m map[string]map[string]struct{}, key, member string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[member] = struct{}{}
}

func maxPurchaseDate(rows []*analytics.Order) time.Time {
	var max time.Time
	for _, o := range rows {
		if day := o.PurchaseDate(); day.After(max) {
			max = day
		}
	}
	return max
}

func topSegments(segments []analytics.RFMSegment, n int, less func(a, b analytics.RFMSegment) bool) []analytics.RFMSegment {
	out := make([]analytics.RFMSegment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
