package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealth(t *testing.T) {
	engine := gin.New()
	engine.GET("/healthz", NewSystemHandler(fixtureDataset()).GetHealth)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.DatasetRows)
	assert.Equal(t, 0, health.RejectedRows)
	assert.Equal(t, "test.csv", health.SourcePath)
	assert.Equal(t, "2018-06-01T00:00:00Z", health.LoadedAt)
}
