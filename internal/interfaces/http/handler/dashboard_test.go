package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	analyticsapp "github.com/anisabintang/ecommerce-dashboard/internal/application/analytics"
)

func newDashboardRouter() *gin.Engine {
	svc := analyticsapp.NewService(fixtureDataset(), analyticsapp.DefaultOptions(), zap.NewNop())
	engine := gin.New()
	engine.GET("/dashboard", NewDashboardHandler(svc).GetDashboard)
	return engine
}

func TestGetDashboard(t *testing.T) {
	engine := newDashboardRouter()

	t.Run("Renders an HTML page with every chart", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

		body := w.Body.String()
		assert.Contains(t, body, "Daily Orders")
		assert.Contains(t, body, "Customers by State")
		assert.Contains(t, body, "Sales by Category")
		assert.Contains(t, body, "Payment Methods")
		assert.Contains(t, body, "Price Distribution")
		assert.Contains(t, body, "Top Customers by Monetary Value")
	})

	t.Run("Respects the query filter", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard?category=beleza_saude", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "beleza_saude")
		assert.NotContains(t, body, "informatica")
	})

	t.Run("Rejects malformed dates", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard?start_date=nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
