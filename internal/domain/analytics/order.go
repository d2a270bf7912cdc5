package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single row of the cleaned dataset. Orders are immutable once
// loaded; optional fields are nil when the source column was empty or could
// not be parsed.
type Order struct {
	OrderID     string     `json:"order_id"`
	CustomerID  string     `json:"customer_id"`
	PurchasedAt time.Time  `json:"purchased_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	Category string `json:"category,omitempty"`

	Price        *decimal.Decimal `json:"price,omitempty"`
	FreightValue decimal.Decimal  `json:"freight_value"`

	PaymentType         string           `json:"payment_type,omitempty"`
	PaymentInstallments int              `json:"payment_installments,omitempty"`
	PaymentValue        *decimal.Decimal `json:"payment_value,omitempty"`

	ReviewScore *int `json:"review_score,omitempty"`

	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`
}

// TotalValue returns price + freight for the order. The second return value
// is false when the order has no price, in which case the order must be
// excluded from monetary aggregates.
func (o *Order) TotalValue() (decimal.Decimal, bool) {
	if o.Price == nil {
		return decimal.Zero, false
	}
	return o.Price.Add(o.FreightValue), true
}

// DeliveryDays returns the whole days between purchase and delivery. The
// second return value is false when the order was never delivered or the
// delivery timestamp precedes the purchase.
func (o *Order) DeliveryDays() (int, bool) {
	if o.DeliveredAt == nil || o.DeliveredAt.Before(o.PurchasedAt) {
		return 0, false
	}
	return int(o.DeliveredAt.Sub(o.PurchasedAt).Hours() / 24), true
}

// PurchaseDate returns the purchase timestamp truncated to its calendar day
// in UTC.
func (o *Order) PurchaseDate() time.Time {
	y, m, d := o.PurchasedAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dataset is the immutable in-memory table the aggregation engine reads.
// It is built once at startup and shared read-only between requests.
type Dataset struct {
	Orders []Order

	// Row accounting from the load: TotalRows = RejectedRows + len(Orders).
	TotalRows    int
	RejectedRows int

	SourcePath string
	LoadedAt   time.Time
}

// Empty reports whether the dataset holds no orders.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Orders) == 0
}
