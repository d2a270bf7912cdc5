package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anisabintang/ecommerce-dashboard/internal/domain/analytics"
)

// SystemHandler serves liveness and dataset status endpoints
type SystemHandler struct {
	BaseHandler
	dataset   *analytics.Dataset
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(dataset *analytics.Dataset) *SystemHandler {
	return &SystemHandler{dataset: dataset, startedAt: time.Now()}
}

// HealthResponse reports process and dataset health
type HealthResponse struct {
	Status        string `json:"status" example:"ok"`
	UptimeSeconds int64  `json:"uptime_seconds" example:"3600"`
	DatasetRows   int    `json:"dataset_rows" example:"99441"`
	RejectedRows  int    `json:"rejected_rows" example:"12"`
	SourcePath    string `json:"source_path" example:"data/cleaned_data.csv"`
	LoadedAt      string `json:"loaded_at" example:"2026-08-29T08:00:00Z"`
}

// GetHealth reports service liveness and the loaded dataset's shape
func (h *SystemHandler) GetHealth(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		DatasetRows:   len(h.dataset.Orders),
		RejectedRows:  h.dataset.RejectedRows,
		SourcePath:    h.dataset.SourcePath,
		LoadedAt:      h.dataset.LoadedAt.UTC().Format(time.RFC3339),
	})
}
