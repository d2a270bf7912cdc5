package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	analyticsapp "github.com/anisabintang/ecommerce-dashboard/internal/application/analytics"
	"github.com/anisabintang/ecommerce-dashboard/internal/domain/analytics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decPtr(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func fixtureDataset() *analytics.Dataset {
	return &analytics.Dataset{
		Orders: []analytics.Order{
			{
				OrderID: "o1", CustomerID: "c1",
				PurchasedAt: time.Date(2018, 5, 1, 10, 0, 0, 0, time.UTC),
				DeliveredAt: timePtr(time.Date(2018, 5, 6, 10, 0, 0, 0, time.UTC)),
				Category:    "beleza_saude",
				Price:       decPtr("50.00"),
				PaymentType: "credit_card", PaymentInstallments: 1,
				PaymentValue: decPtr("50.00"), ReviewScore: intPtr(5),
				State: "SP", City: "campinas",
			},
			{
				OrderID: "o2", CustomerID: "c2",
				PurchasedAt:  time.Date(2018, 5, 2, 11, 0, 0, 0, time.UTC),
				Category:     "informatica",
				Price:        decPtr("8.00"),
				FreightValue: decimal.NewFromInt(2),
				PaymentType:  "boleto", PaymentInstallments: 2,
				PaymentValue: decPtr("10.00"), ReviewScore: intPtr(3),
				State: "RJ", City: "rio de janeiro",
			},
		},
		TotalRows:  2,
		SourcePath: "test.csv",
		LoadedAt:   time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestRouter() *gin.Engine {
	svc := analyticsapp.NewService(fixtureDataset(), analyticsapp.DefaultOptions(), zap.NewNop())
	h := NewAnalyticsHandler(svc)

	engine := gin.New()
	api := engine.Group("/api/v1/analytics")
	api.GET("/overview", h.GetOverview)
	api.GET("/daily-trend", h.GetDailyTrend)
	api.GET("/demographics", h.GetDemographics)
	api.GET("/products", h.GetProducts)
	api.GET("/rfm", h.GetRFM)
	api.GET("/payments", h.GetPayments)
	api.GET("/price-distribution", h.GetPriceDistribution)
	return engine
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doGet(t *testing.T, engine *gin.Engine, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestGetOverview(t *testing.T) {
	engine := newTestRouter()

	t.Run("Unfiltered", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/overview")

		require.Equal(t, http.StatusOK, code)
		require.True(t, env.Success)

		var data OverviewResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, int64(2), data.TotalOrders)
		assert.InDelta(t, 60.0, data.TotalRevenue, 1e-9)
		assert.InDelta(t, 30.0, data.AvgOrderValue, 1e-9)
		assert.InDelta(t, 5.0, data.AvgDeliveryDays, 1e-9)
		assert.Equal(t, int64(1), data.DeliveryExcluded)
	})

	t.Run("Category filter", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/overview?category=beleza_saude")

		require.Equal(t, http.StatusOK, code)
		var data OverviewResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, int64(1), data.TotalOrders)
		assert.InDelta(t, 50.0, data.TotalRevenue, 1e-9)
	})

	t.Run("Date filter", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/overview?start_date=2018-05-02")

		require.Equal(t, http.StatusOK, code)
		var data OverviewResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, int64(1), data.SelectedRows)
	})

	t.Run("Malformed date rejected", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/overview?start_date=05/01/2018")

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_VALIDATION", env.Error.Code)
	})

	t.Run("Inverted date range rejected", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/overview?start_date=2018-05-10&end_date=2018-05-01")

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_BAD_REQUEST", env.Error.Code)
	})
}

func TestGetDailyTrend(t *testing.T) {
	engine := newTestRouter()
	code, env := doGet(t, engine, "/api/v1/analytics/daily-trend")

	require.Equal(t, http.StatusOK, code)
	var data DailyTrendResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Points, 2)
	assert.Equal(t, "2018-05-01", data.Points[0].Date)
	assert.Equal(t, int64(1), data.Points[0].OrderCount)
	assert.InDelta(t, 50.0, data.Points[0].Revenue, 1e-9)
}

func TestGetRFM(t *testing.T) {
	engine := newTestRouter()

	t.Run("Default ranking size", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/rfm")

		require.Equal(t, http.StatusOK, code)
		var data RFMResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "2018-05-03", data.AnalysisDate)
		require.Len(t, data.Segments, 2)
		assert.Equal(t, "c1", data.Segments[0].CustomerID)
		assert.Equal(t, int64(2), data.Segments[0].RecencyDays)
		assert.Equal(t, int64(1), data.Segments[1].RecencyDays)
	})

	t.Run("top_n truncates leaderboards", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/rfm?top_n=1")

		require.Equal(t, http.StatusOK, code)
		var data RFMResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Len(t, data.TopMonetary, 1)
		assert.Equal(t, "c1", data.TopMonetary[0].CustomerID)
	})

	t.Run("top_n out of range rejected", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/rfm?top_n=500")

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
	})
}

func TestGetDemographics(t *testing.T) {
	engine := newTestRouter()
	code, env := doGet(t, engine, "/api/v1/analytics/demographics")

	require.Equal(t, http.StatusOK, code)
	var data analytics.Demographics
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.States, 2)
	assert.Equal(t, int64(0), data.GeographyExcluded)
}

func TestGetProducts(t *testing.T) {
	engine := newTestRouter()
	code, env := doGet(t, engine, "/api/v1/analytics/products")

	require.Equal(t, http.StatusOK, code)
	var data ProductInsightsResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Categories, 2)
	assert.Equal(t, "beleza_saude", data.Categories[0].Category)
	assert.InDelta(t, 50.0, data.Categories[0].TotalSales, 1e-9)
}

func TestGetPayments(t *testing.T) {
	engine := newTestRouter()
	code, env := doGet(t, engine, "/api/v1/analytics/payments")

	require.Equal(t, http.StatusOK, code)
	var data PaymentsResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.ByType, 2)
	assert.Equal(t, "boleto", data.ByType[0].PaymentType)
	require.Len(t, data.ByInstallments, 2)
	assert.Equal(t, 1, data.ByInstallments[0].Installments)
}

func TestGetPriceDistribution(t *testing.T) {
	engine := newTestRouter()

	t.Run("Custom bin count", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/price-distribution?bins=2")

		require.Equal(t, http.StatusOK, code)
		var data analytics.PriceDistribution
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Len(t, data.Bins, 2)
		assert.Equal(t, int64(1), data.Bins[0].Count)
		assert.Equal(t, int64(1), data.Bins[1].Count)
	})

	t.Run("bins out of range rejected", func(t *testing.T) {
		code, env := doGet(t, engine, "/api/v1/analytics/price-distribution?bins=9999")

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
	})
}
