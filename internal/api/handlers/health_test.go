package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishcovery/backend/internal/health"
	"github.com/dishcovery/backend/internal/models"
)

func newHealthRouter(checks ...health.Check) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHealthHandler(health.NewChecker(nil, quietLogger(), checks...), quietLogger())
	router := gin.New()
	router.GET("/health", handler.Health)
	return router
}

func TestHealth_AllDependenciesUp(t *testing.T) {
	router := newHealthRouter(
		health.Check{Name: "postgres", Probe: func(ctx context.Context) error { return nil }},
		health.Check{Name: "redis", Probe: func(ctx context.Context) error { return nil }},
	)

	w := doRequest(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, health.StatusHealthy, resp.Services["postgres"])
}

func TestHealth_DependencyDown(t *testing.T) {
	router := newHealthRouter(
		health.Check{Name: "postgres", Probe: func(ctx context.Context) error { return errors.New("down") }},
	)

	w := doRequest(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusUnhealthy, resp.Status)
}
