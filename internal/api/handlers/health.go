package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/health"
	"github.com/dishcovery/backend/internal/models"
)

// HealthHandler exposes dependency health over HTTP.
type HealthHandler struct {
	checker *health.Checker
	logger  *logrus.Logger
}

func NewHealthHandler(checker *health.Checker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// Health handles GET /health. Responds 200 while all dependencies answer,
// 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.checker.Run(c.Request.Context())

	code := http.StatusOK
	if report.Overall != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, models.HealthResponse{
		Status:    report.Overall,
		Service:   "dishcovery-backend",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  report.Services,
	})
}
