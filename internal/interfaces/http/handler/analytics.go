package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	analyticsapp "github.com/anisabintang/ecommerce-dashboard/internal/application/analytics"
	"github.com/anisabintang/ecommerce-dashboard/internal/domain/analytics"
)

// AnalyticsHandler serves the aggregation API consumed by the dashboard
type AnalyticsHandler struct {
	BaseHandler
	service *analyticsapp.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(service *analyticsapp.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// ===================== Request DTOs =====================

// AnalyticsFilterRequest is the shared query filter for analytics endpoints
type AnalyticsFilterRequest struct {
	StartDate   string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Category    string `form:"category"`
	PaymentType string `form:"payment_type"`
	TopN        int    `form:"top_n" binding:"omitempty,min=1,max=100"`
	Bins        int    `form:"bins" binding:"omitempty,min=1,max=500"`
}

// Filter converts the request into a domain filter. Dates were already
// format-checked by binding.
func (r *AnalyticsFilterRequest) Filter() analytics.Filter {
	f := analytics.Filter{
		Category:    r.Category,
		PaymentType: r.PaymentType,
	}
	if r.StartDate != "" {
		t, _ := time.Parse("2006-01-02", r.StartDate)
		f.StartDate = &t
	}
	if r.EndDate != "" {
		t, _ := time.Parse("2006-01-02", r.EndDate)
		f.EndDate = &t
	}
	return f
}

// bindFilter binds the shared query filter or writes a validation error.
func (h *AnalyticsHandler) bindFilter(c *gin.Context) (*AnalyticsFilterRequest, bool) {
	var req AnalyticsFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return nil, false
	}
	if req.StartDate != "" && req.EndDate != "" && req.EndDate < req.StartDate {
		h.BadRequest(c, "end_date must not precede start_date")
		return nil, false
	}
	return &req, true
}

// ===================== Response DTOs =====================

// OverviewResponse is the headline metrics block
type OverviewResponse struct {
	TotalOrders      int64   `json:"total_orders" example:"99441"`
	TotalRevenue     float64 `json:"total_revenue" example:"15843553.24"`
	AvgOrderValue    float64 `json:"avg_order_value" example:"159.85"`
	AvgDeliveryDays  float64 `json:"avg_delivery_days" example:"12.1"`
	SelectedRows     int64   `json:"selected_rows" example:"99441"`
	PriceExcluded    int64   `json:"price_excluded" example:"0"`
	DeliveryExcluded int64   `json:"delivery_excluded" example:"2965"`
}

// DailyPointResponse is one day of the time series
type DailyPointResponse struct {
	Date       string  `json:"date" example:"2018-05-14"`
	OrderCount int64   `json:"order_count" example:"25"`
	Revenue    float64 `json:"revenue" example:"5250.40"`
}

// DailyTrendResponse is the chronological daily series
type DailyTrendResponse struct {
	Points        []DailyPointResponse `json:"points"`
	SelectedRows  int64                `json:"selected_rows"`
	PriceExcluded int64                `json:"price_excluded"`
}

// CategoryInsightResponse is one product category's aggregate line
type CategoryInsightResponse struct {
	Category        string  `json:"category"`
	TotalSales      float64 `json:"total_sales" example:"1200450.12"`
	AvgDeliveryDays float64 `json:"avg_delivery_days" example:"12.5"`
	AvgReviewScore  float64 `json:"avg_review_score" example:"4.1"`
	OrderCount      int64   `json:"order_count" example:"9417"`
}

// CategoryDeliveryResponse ranks a category by mean delivery time
type CategoryDeliveryResponse struct {
	Category        string  `json:"category"`
	AvgDeliveryDays float64 `json:"avg_delivery_days" example:"20.9"`
	Deliveries      int64   `json:"deliveries" example:"312"`
}

// ProductInsightsResponse is the per-category insights block
type ProductInsightsResponse struct {
	Categories        []CategoryInsightResponse  `json:"categories"`
	SlowestCategories []CategoryDeliveryResponse `json:"slowest_categories"`
	SelectedRows      int64                      `json:"selected_rows"`
	CategoryExcluded  int64                      `json:"category_excluded"`
	PriceExcluded     int64                      `json:"price_excluded"`
	DeliveryExcluded  int64                      `json:"delivery_excluded"`
	ReviewExcluded    int64                      `json:"review_excluded"`
}

// PaymentStatsResponse is the per-payment-method aggregate line
type PaymentStatsResponse struct {
	PaymentType    string  `json:"payment_type"`
	Transactions   int64   `json:"transactions" example:"76795"`
	AvgReviewScore float64 `json:"avg_review_score" example:"4.1"`
	TotalValue     float64 `json:"total_value" example:"12542084.19"`
}

// InstallmentStatsResponse aggregates orders by installment count
type InstallmentStatsResponse struct {
	Installments   int     `json:"installments" example:"3"`
	Orders         int64   `json:"orders" example:"10443"`
	AvgOrderValue  float64 `json:"avg_order_value" example:"178.13"`
	AvgReviewScore float64 `json:"avg_review_score" example:"4.0"`
}

// PaymentTotalResponse is a payment method's trailing six month total
type PaymentTotalResponse struct {
	PaymentType string  `json:"payment_type"`
	Total       float64 `json:"total" example:"4100231.55"`
}

// PaymentsResponse groups the selection by payment method and installments
type PaymentsResponse struct {
	ByType               []PaymentStatsResponse     `json:"by_type"`
	ByInstallments       []InstallmentStatsResponse `json:"by_installments"`
	RecentTotals         []PaymentTotalResponse     `json:"recent_totals"`
	SelectedRows         int64                      `json:"selected_rows"`
	TypeExcluded         int64                      `json:"type_excluded"`
	ReviewExcluded       int64                      `json:"review_excluded"`
	PaymentValueExcluded int64                      `json:"payment_value_excluded"`
}

// RFMSegmentResponse is one customer's RFM line
type RFMSegmentResponse struct {
	CustomerID  string  `json:"customer_id"`
	RecencyDays int64   `json:"recency_days" example:"12"`
	Frequency   int64   `json:"frequency" example:"3"`
	Monetary    float64 `json:"monetary" example:"457.31"`
}

// RFMResponse is the full segmentation plus leaderboards
type RFMResponse struct {
	AnalysisDate  string               `json:"analysis_date" example:"2018-10-18"`
	Segments      []RFMSegmentResponse `json:"segments"`
	TopRecent     []RFMSegmentResponse `json:"top_recent"`
	TopFrequent   []RFMSegmentResponse `json:"top_frequent"`
	TopMonetary   []RFMSegmentResponse `json:"top_monetary"`
	SelectedRows  int64                `json:"selected_rows"`
	PriceExcluded int64                `json:"price_excluded"`
}

// ===================== Endpoints =====================

// GetOverview returns the headline metrics for the selection
func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	ov := h.service.Overview(c.Request.Context(), req.Filter())
	h.Success(c, OverviewResponse{
		TotalOrders:      ov.TotalOrders,
		TotalRevenue:     ov.TotalRevenue.InexactFloat64(),
		AvgOrderValue:    ov.AvgOrderValue.InexactFloat64(),
		AvgDeliveryDays:  ov.AvgDeliveryDays,
		SelectedRows:     ov.SelectedRows,
		PriceExcluded:    ov.PriceExcluded,
		DeliveryExcluded: ov.DeliveryExcluded,
	})
}

// GetDailyTrend returns the daily order/revenue series
func (h *AnalyticsHandler) GetDailyTrend(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	trend := h.service.DailyTrend(c.Request.Context(), req.Filter())
	resp := DailyTrendResponse{
		Points:        make([]DailyPointResponse, len(trend.Points)),
		SelectedRows:  trend.SelectedRows,
		PriceExcluded: trend.PriceExcluded,
	}
	for i, p := range trend.Points {
		resp.Points[i] = DailyPointResponse{
			Date:       p.Date.Format("2006-01-02"),
			OrderCount: p.OrderCount,
			Revenue:    p.Revenue.InexactFloat64(),
		}
	}
	h.Success(c, resp)
}

// GetDemographics returns customer/order counts by state and city
func (h *AnalyticsHandler) GetDemographics(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	h.Success(c, h.service.Demographics(c.Request.Context(), req.Filter(), req.TopN))
}

// GetProducts returns the per-category insights
func (h *AnalyticsHandler) GetProducts(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	pi := h.service.ProductInsights(c.Request.Context(), req.Filter(), req.TopN)
	resp := ProductInsightsResponse{
		Categories:        make([]CategoryInsightResponse, len(pi.Categories)),
		SlowestCategories: make([]CategoryDeliveryResponse, len(pi.SlowestCategories)),
		SelectedRows:      pi.SelectedRows,
		CategoryExcluded:  pi.CategoryExcluded,
		PriceExcluded:     pi.PriceExcluded,
		DeliveryExcluded:  pi.DeliveryExcluded,
		ReviewExcluded:    pi.ReviewExcluded,
	}
	for i, cat := range pi.Categories {
		resp.Categories[i] = CategoryInsightResponse{
			Category:        cat.Category,
			TotalSales:      cat.TotalSales.InexactFloat64(),
			AvgDeliveryDays: cat.AvgDeliveryDays,
			AvgReviewScore:  cat.AvgReviewScore,
			OrderCount:      cat.OrderCount,
		}
	}
	for i, cd := range pi.SlowestCategories {
		resp.SlowestCategories[i] = CategoryDeliveryResponse{
			Category:        cd.Category,
			AvgDeliveryDays: cd.AvgDeliveryDays,
			Deliveries:      cd.Deliveries,
		}
	}
	h.Success(c, resp)
}

// GetRFM returns the customer segmentation
func (h *AnalyticsHandler) GetRFM(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	rfm := h.service.RFM(c.Request.Context(), req.Filter(), req.TopN)
	resp := RFMResponse{
		Segments:      toRFMSegments(rfm.Segments),
		TopRecent:     toRFMSegments(rfm.TopRecent),
		TopFrequent:   toRFMSegments(rfm.TopFrequent),
		TopMonetary:   toRFMSegments(rfm.TopMonetary),
		SelectedRows:  rfm.SelectedRows,
		PriceExcluded: rfm.PriceExcluded,
	}
	if !rfm.AnalysisDate.IsZero() {
		resp.AnalysisDate = rfm.AnalysisDate.Format("2006-01-02")
	}
	h.Success(c, resp)
}

// GetPayments returns payment method and installment statistics
func (h *AnalyticsHandler) GetPayments(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	pay := h.service.Payments(c.Request.Context(), req.Filter())
	resp := PaymentsResponse{
		ByType:               make([]PaymentStatsResponse, len(pay.ByType)),
		ByInstallments:       make([]InstallmentStatsResponse, len(pay.ByInstallments)),
		RecentTotals:         make([]PaymentTotalResponse, len(pay.RecentTotals)),
		SelectedRows:         pay.SelectedRows,
		TypeExcluded:         pay.TypeExcluded,
		ReviewExcluded:       pay.ReviewExcluded,
		PaymentValueExcluded: pay.PaymentValueExcluded,
	}
	for i, pt := range pay.ByType {
		resp.ByType[i] = PaymentStatsResponse{
			PaymentType:    pt.PaymentType,
			Transactions:   pt.Transactions,
			AvgReviewScore: pt.AvgReviewScore,
			TotalValue:     pt.TotalValue.InexactFloat64(),
		}
	}
	for i, inst := range pay.ByInstallments {
		resp.ByInstallments[i] = InstallmentStatsResponse{
			Installments:   inst.Installments,
			Orders:         inst.Orders,
			AvgOrderValue:  inst.AvgOrderValue.InexactFloat64(),
			AvgReviewScore: inst.AvgReviewScore,
		}
	}
	for i, rt := range pay.RecentTotals {
		resp.RecentTotals[i] = PaymentTotalResponse{
			PaymentType: rt.PaymentType,
			Total:       rt.Total.InexactFloat64(),
		}
	}
	h.Success(c, resp)
}

// GetPriceDistribution returns the price histogram
func (h *AnalyticsHandler) GetPriceDistribution(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	h.Success(c, h.service.PriceDistribution(c.Request.Context(), req.Filter(), req.Bins))
}

func toRFMSegments(segments []analytics.RFMSegment) []RFMSegmentResponse {
	out := make([]RFMSegmentResponse, len(segments))
	for i, s := range segments {
		out[i] = RFMSegmentResponse{
			CustomerID:  s.CustomerID,
			RecencyDays: s.RecencyDays,
			Frequency:   s.Frequency,
			Monetary:    s.Monetary.InexactFloat64(),
		}
	}
	return out
}
