package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	analyticsapp "github.com/anisabintang/ecommerce-dashboard/internal/application/analytics"
	"github.com/anisabintang/ecommerce-dashboard/internal/domain/analytics"
)

// DashboardHandler renders the server-side dashboard page. Every chart is
// built from the same aggregation service the JSON API uses, so the page and
// the API can never disagree.
type DashboardHandler struct {
	BaseHandler
	service *analyticsapp.Service
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service *analyticsapp.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetDashboard renders the full dashboard as a single HTML page
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	req, ok := h.bindDashboardFilter(c)
	if !ok {
		return
	}
	filter := req.Filter()
	ctx := c.Request.Context()

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = "E-commerce Analytics"

	page.AddCharts(
		h.dailyTrendChart(h.service.DailyTrend(ctx, filter)),
		h.demographicsChart(h.service.Demographics(ctx, filter, 0)),
		h.categoriesChart(h.service.ProductInsights(ctx, filter, 0)),
		h.paymentsChart(h.service.Payments(ctx, filter)),
		h.priceChart(h.service.PriceDistribution(ctx, filter, 0)),
		h.rfmChart(h.service.RFM(ctx, filter, 0)),
	)

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(c.Writer); err != nil {
		h.Internal(c, "failed to render dashboard: "+err.Error())
	}
}

func (h *DashboardHandler) bindDashboardFilter(c *gin.Context) (*AnalyticsFilterRequest, bool) {
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

func (h *DashboardHandler) dailyTrendChart(trend *analytics.DailyTrend) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Daily Orders"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	dates := make([]string, len(trend.Points))
	orders := make([]opts.LineData, len(trend.Points))
	revenue := make([]opts.LineData, len(trend.Points))
	for i, p := range trend.Points {
		dates[i] = p.Date.Format("2006-01-02")
		orders[i] = opts.LineData{Value: p.OrderCount}
		revenue[i] = opts.LineData{Value: p.Revenue.InexactFloat64()}
	}
	line.SetXAxis(dates).
		AddSeries("Orders", orders).
		AddSeries("Revenue", revenue)
	return line
}

func (h *DashboardHandler) demographicsChart(demo *analytics.Demographics) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Customers by State"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	states := make([]string, len(demo.States))
	customers := make([]opts.BarData, len(demo.States))
	for i, s := range demo.States {
		states[i] = s.State
		customers[i] = opts.BarData{Value: s.Customers}
	}
	bar.SetXAxis(states).AddSeries("Customers", customers)
	return bar
}

func (h *DashboardHandler) categoriesChart(pi *analytics.ProductInsights) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Sales by Category"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	cats := pi.Categories
	if len(cats) > 15 {
		cats = cats[:15]
	}
	names := make([]string, len(cats))
	sales := make([]opts.BarData, len(cats))
	for i, cat := range cats {
		names[i] = cat.Category
		sales[i] = opts.BarData{Value: cat.TotalSales.InexactFloat64()}
	}
	bar.SetXAxis(names).AddSeries("Total Sales", sales)
	return bar
}

func (h *DashboardHandler) paymentsChart(pay *analytics.Payments) components.Charter {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Payment Methods"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	items := make([]opts.PieData, len(pay.ByType))
	for i, pt := range pay.ByType {
		items[i] = opts.PieData{Name: pt.PaymentType, Value: pt.Transactions}
	}
	pie.AddSeries("Transactions", items)
	return pie
}

func (h *DashboardHandler) priceChart(dist *analytics.PriceDistribution) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Price Distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, len(dist.Bins))
	counts := make([]opts.BarData, len(dist.Bins))
	for i, bin := range dist.Bins {
		labels[i] = fmt.Sprintf("%.0f", bin.Lower)
		counts[i] = opts.BarData{Value: bin.Count}
	}
	bar.SetXAxis(labels).AddSeries("Orders", counts)
	return bar
}

func (h *DashboardHandler) rfmChart(rfm *analytics.RFMResult) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Top Customers by Monetary Value"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	ids := make([]string, len(rfm.TopMonetary))
	values := make([]opts.BarData, len(rfm.TopMonetary))
	for i, seg := range rfm.TopMonetary {
		id := seg.CustomerID
		if len(id) > 8 {
			id = id[:8]
		}
		ids[i] = id
		values[i] = opts.BarData{Value: seg.Monetary.InexactFloat64()}
	}
	bar.SetXAxis(ids).AddSeries("Monetary", values)
	return bar
}
