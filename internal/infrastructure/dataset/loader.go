package dataset

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/anisabintang/ecommerce-dashboard/internal/domain/analytics"
)

// Column names of the cleaned dataset. The loader addresses fields by header
// name, so column order in the file does not matter.
const (
	ColOrderID             = "order_id"
	ColCustomerID          = "customer_unique_id"
	ColPurchasedAt         = "order_purchase_timestamp"
	ColDeliveredAt         = "order_delivered_customer_date"
	ColCategory            = "product_category_name"
	ColPrice               = "price"
	ColFreightValue        = "freight_value"
	ColPaymentType         = "payment_type"
	ColPaymentInstallments = "payment_installments"
	ColPaymentValue        = "payment_value"
	ColReviewScore         = "review_score"
	ColState               = "customer_state"
	ColCity                = "customer_city"
)

// RequiredColumns must be present in the header, and non-empty per row for
// the row to load. Everything else is optional per row.
var RequiredColumns = []string{ColOrderID, ColCustomerID, ColPurchasedAt}

// Timestamp layouts accepted for date columns, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// LoadReport summarizes a dataset load. Invariant: TotalRows = LoadedRows +
// RejectedRows. FieldErrors counts malformed optional values on rows that
// still loaded (the field is dropped, the row kept).
type LoadReport struct {
	LoadID       uuid.UUID `json:"load_id"`
	TotalRows    int       `json:"total_rows"`
	LoadedRows   int       `json:"loaded_rows"`
	RejectedRows int       `json:"rejected_rows"`
	FieldErrors  int       `json:"field_errors"`

	Errors *ErrorCollection `json:"-"`
}

// Loader reads the cleaned CSV dataset into an analytics.Dataset.
type Loader struct {
	logger       *zap.Logger
	delimiter    rune
	maxRowErrors int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderDelimiter sets the CSV field delimiter.
func WithLoaderDelimiter(d rune) LoaderOption {
	return func(l *Loader) {
		l.delimiter = d
	}
}

// WithMaxRowErrors caps how many row errors are retained in the report.
func WithMaxRowErrors(n int) LoaderOption {
	return func(l *Loader) {
		l.maxRowErrors = n
	}
}

// NewLoader creates a Loader.
func NewLoader(logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:       logger,
		delimiter:    ',',
		maxRowErrors: 100,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile opens and loads the dataset at path. Any failure here is fatal to
// the caller: the dashboard must not come up over a partial dataset.
func (l *Loader) LoadFile(path string) (*analytics.Dataset, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	ds, report, err := l.Load(f, path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return ds, report, nil
}

// Load reads the dataset from r. Rows missing a required field are rejected
// and counted, never silently dropped; malformed optional fields are nulled
// and counted per field.
func (l *Loader) Load(r io.Reader, source string) (*analytics.Dataset, *LoadReport, error) {
	reader, err := NewReader(r, WithDelimiter(l.delimiter))
	if err != nil {
		return nil, nil, err
	}
	if err := reader.ReadHeader(); err != nil {
		return nil, nil, err
	}
	if missing := reader.MissingHeaders(RequiredColumns); len(missing) > 0 {
		return nil, nil, &MissingHeadersError{Missing: missing}
	}

	report := &LoadReport{
		LoadID: uuid.New(),
		Errors: NewErrorCollection(l.maxRowErrors),
	}
	var orders []analytics.Order

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Rows the CSV layer cannot even tokenize still count.
			report.TotalRows++
			report.RejectedRows++
			report.Errors.Add(RowError{
				Row:     reader.currentRow,
				Code:    ErrCodeMalformedRow,
				Message: err.Error(),
			})
			continue
		}
		if rec.IsEmpty() {
			continue
		}

		report.TotalRows++
		order, ok := l.parseRow(rec, report)
		if !ok {
			report.RejectedRows++
			continue
		}
		report.LoadedRows++
		orders = append(orders, *order)
	}

	if report.TotalRows == 0 {
		return nil, nil, ErrNoDataRows
	}

	l.logger.Info("Dataset loaded",
		zap.String("load_id", report.LoadID.String()),
		zap.String("source", source),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("loaded_rows", report.LoadedRows),
		zap.Int("rejected_rows", report.RejectedRows),
		zap.Int("field_errors", report.FieldErrors),
	)
	if report.Errors.HasErrors() {
		l.logger.Warn("Dataset rows excluded", zap.String("summary", report.Errors.String()))
	}

	ds := &analytics.Dataset{
		Orders:       orders,
		TotalRows:    report.TotalRows,
		RejectedRows: report.RejectedRows,
		SourcePath:   source,
		LoadedAt:     time.Now(),
	}
	return ds, report, nil
}

// parseRow maps a record to an order. Returns false when a required field is
// missing or unparseable; the caller counts the rejection.
func (l *Loader) parseRow(rec *Record, report *LoadReport) (*analytics.Order, bool) {
	orderID := rec.Get(ColOrderID)
	customerID := rec.Get(ColCustomerID)
	purchasedRaw := rec.Get(ColPurchasedAt)

	reject := false
	if orderID == "" {
		report.Errors.AddRequired(rec.LineNumber, ColOrderID)
		reject = true
	}
	if customerID == "" {
		report.Errors.AddRequired(rec.LineNumber, ColCustomerID)
		reject = true
	}

	var purchasedAt time.Time
	if purchasedRaw == "" {
		report.Errors.AddRequired(rec.LineNumber, ColPurchasedAt)
		reject = true
	} else if ts, ok := parseTimestamp(purchasedRaw); ok {
		purchasedAt = ts
	} else {
		report.Errors.AddType(rec.LineNumber, ColPurchasedAt, "timestamp", purchasedRaw)
		reject = true
	}
	if reject {
		return nil, false
	}

	order := &analytics.Order{
		OrderID:     orderID,
		CustomerID:  customerID,
		PurchasedAt: purchasedAt,
		Category:    rec.Get(ColCategory),
		PaymentType: rec.Get(ColPaymentType),
		State:       rec.Get(ColState),
		City:        rec.Get(ColCity),
	}

	if raw := rec.Get(ColDeliveredAt); raw != "" {
		if ts, ok := parseTimestamp(raw); ok {
			order.DeliveredAt = &ts
		} else {
			report.Errors.AddType(rec.LineNumber, ColDeliveredAt, "timestamp", raw)
			report.FieldErrors++
		}
	}

	if raw := rec.Get(ColPrice); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
			order.Price = &d
		} else {
			report.Errors.AddType(rec.LineNumber, ColPrice, "non-negative decimal", raw)
			report.FieldErrors++
		}
	}

	if raw := rec.Get(ColFreightValue); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
			order.FreightValue = d
		} else {
			report.Errors.AddType(rec.LineNumber, ColFreightValue, "non-negative decimal", raw)
			report.FieldErrors++
		}
	}

	if raw := rec.Get(ColPaymentValue); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
			order.PaymentValue = &d
		} else {
			report.Errors.AddType(rec.LineNumber, ColPaymentValue, "non-negative decimal", raw)
			report.FieldErrors++
		}
	}

	if raw := rec.Get(ColPaymentInstallments); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			order.PaymentInstallments = n
		} else {
			report.Errors.AddType(rec.LineNumber, ColPaymentInstallments, "integer", raw)
			report.FieldErrors++
		}
	}

	if raw := rec.Get(ColReviewScore); raw != "" {
		// Some cleaned exports carry review scores as "4.0".
		if f, err := strconv.ParseFloat(raw, 64); err != nil || f != float64(int(f)) {
			report.Errors.AddType(rec.LineNumber, ColReviewScore, "integer 1-5", raw)
			report.FieldErrors++
		} else if n := int(f); n < 1 || n > 5 {
			report.Errors.AddRange(rec.LineNumber, ColReviewScore, raw, 1, 5)
			report.FieldErrors++
		} else {
			order.ReviewScore = &n
		}
	}

	return order, true
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
