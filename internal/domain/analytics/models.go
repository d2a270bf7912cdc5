package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filter narrows an aggregation to a slice of the dataset. Zero values select
// everything: a nil date leaves that side of the range open, empty strings
// match every category / payment type. The date range is inclusive and is
// applied to the purchase date.
type Filter struct {
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Category    string     `json:"category,omitempty"`
	PaymentType string     `json:"payment_type,omitempty"`
}

// Matches reports whether the order falls inside the filter.
func (f Filter) Matches(o *Order) bool {
	if f.StartDate != nil && o.PurchaseDate().Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && o.PurchaseDate().After(*f.EndDate) {
		return false
	}
	if f.Category != "" && o.Category != f.Category {
		return false
	}
	if f.PaymentType != "" && o.PaymentType != f.PaymentType {
		return false
	}
	return true
}

// Overview is the headline metrics block of the dashboard.
type Overview struct {
	TotalOrders     int64           `json:"total_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
	AvgDeliveryDays float64         `json:"avg_delivery_days"`

	SelectedRows     int64 `json:"selected_rows"`
	PriceExcluded    int64 `json:"price_excluded"`
	DeliveryExcluded int64 `json:"delivery_excluded"`
}

// DailyPoint is one calendar day of the time series.
type DailyPoint struct {
	Date       time.Time       `json:"date"`
	OrderCount int64           `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// DailyTrend is the chronological daily order/revenue series. Only days
// present in the selection appear; gaps are not filled. The sum of all
// OrderCount values equals SelectedRows.
type DailyTrend struct {
	Points []DailyPoint `json:"points"`

	SelectedRows  int64 `json:"selected_rows"`
	PriceExcluded int64 `json:"price_excluded"`
}

// StateCount is the per-province demographics line.
type StateCount struct {
	State     string `json:"state"`
	Customers int64  `json:"customers"`
	Orders    int64  `json:"orders"`
}

// CityCount is the per-city demographics line.
type CityCount struct {
	City      string `json:"city"`
	Customers int64  `json:"customers"`
}

// Demographics groups customers and orders by province and city. States are
// sorted by customer count descending, TopCities holds the N largest cities.
type Demographics struct {
	States    []StateCount `json:"states"`
	TopCities []CityCount  `json:"top_cities"`

	SelectedRows      int64 `json:"selected_rows"`
	GeographyExcluded int64 `json:"geography_excluded"`
}

// CategoryInsight is one product category's aggregate line, sorted into
// ProductInsights by TotalSales descending.
type CategoryInsight struct {
	Category        string          `json:"category"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	AvgDeliveryDays float64         `json:"avg_delivery_days"`
	AvgReviewScore  float64         `json:"avg_review_score"`
	OrderCount      int64           `json:"order_count"`
}

// CategoryDelivery ranks a category by mean delivery time.
type CategoryDelivery struct {
	Category        string  `json:"category"`
	AvgDeliveryDays float64 `json:"avg_delivery_days"`
	Deliveries      int64   `json:"deliveries"`
}

// ProductInsights aggregates the selection per product category.
// SlowestCategories is restricted to the last year of the selection.
type ProductInsights struct {
	Categories        []CategoryInsight  `json:"categories"`
	SlowestCategories []CategoryDelivery `json:"slowest_categories"`

	SelectedRows     int64 `json:"selected_rows"`
	CategoryExcluded int64 `json:"category_excluded"`
	PriceExcluded    int64 `json:"price_excluded"`
	DeliveryExcluded int64 `json:"delivery_excluded"`
	ReviewExcluded   int64 `json:"review_excluded"`
}

// RFMSegment is the per-customer Recency/Frequency/Monetary line.
// Recency is measured in days against the analysis date, frequency counts
// the customer's loaded orders, monetary sums their priced orders.
type RFMSegment struct {
	CustomerID  string          `json:"customer_id"`
	RecencyDays int64           `json:"recency_days"`
	Frequency   int64           `json:"frequency"`
	Monetary    decimal.Decimal `json:"monetary"`
}

// RFMResult holds the full segmentation plus the top-N leaderboards the
// dashboard shows. AnalysisDate is the day after the latest purchase in the
// selection, so the most recent customer has recency 1, never 0.
type RFMResult struct {
	AnalysisDate time.Time    `json:"analysis_date"`
	Segments     []RFMSegment `json:"segments"`

	TopRecent   []RFMSegment `json:"top_recent"`
	TopFrequent []RFMSegment `json:"top_frequent"`
	TopMonetary []RFMSegment `json:"top_monetary"`

	SelectedRows  int64 `json:"selected_rows"`
	PriceExcluded int64 `json:"price_excluded"`
}

// PaymentStats is the per-payment-method aggregate line.
type PaymentStats struct {
	PaymentType    string          `json:"payment_type"`
	Transactions   int64           `json:"transactions"`
	AvgReviewScore float64         `json:"avg_review_score"`
	TotalValue     decimal.Decimal `json:"total_value"`
}

// InstallmentStats aggregates orders by installment count.
type InstallmentStats struct {
	Installments   int             `json:"installments"`
	Orders         int64           `json:"orders"`
	AvgOrderValue  decimal.Decimal `json:"avg_order_value"`
	AvgReviewScore float64         `json:"avg_review_score"`
}

// PaymentTotal is a payment method's transaction total over the trailing
// six months of the selection.
type PaymentTotal struct {
	PaymentType string          `json:"payment_type"`
	Total       decimal.Decimal `json:"total"`
}

// Payments groups the selection by payment method and installment count.
type Payments struct {
	ByType         []PaymentStats     `json:"by_type"`
	ByInstallments []InstallmentStats `json:"by_installments"`
	RecentTotals   []PaymentTotal     `json:"recent_totals"`

	SelectedRows         int64 `json:"selected_rows"`
	TypeExcluded         int64 `json:"type_excluded"`
	ReviewExcluded       int64 `json:"review_excluded"`
	PaymentValueExcluded int64 `json:"payment_value_excluded"`
}

// PriceBin is one bucket of the price histogram. Lower is inclusive, Upper
// exclusive except for the last bin which closes the range.
type PriceBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int64   `json:"count"`
}

// PriceDistribution is the fixed-width histogram over order prices.
type PriceDistribution struct {
	Bins []PriceBin `json:"bins"`

	SelectedRows  int64 `json:"selected_rows"`
	PriceExcluded int64 `json:"price_excluded"`
}
