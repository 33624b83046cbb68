package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
	"github.com/dishcovery/backend/internal/query"
	"github.com/dishcovery/backend/internal/quota"
	"github.com/dishcovery/backend/internal/services"
	"github.com/dishcovery/backend/pkg/utils"
)

// SearchHandler exposes the search pipeline over HTTP.
type SearchHandler struct {
	service *services.SearchService
	logger  *logrus.Logger
}

func NewSearchHandler(service *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// Search handles GET /api/v1/search?q=<text>&page=<n>&limit=<n>.
// Responds 200 with results, 202 when auto-find was triggered, 400 for a
// blank query and 429 when the identity's auto-find quota is spent.
func (h *SearchHandler) Search(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")

	req := services.SearchRequest{
		RawQuery:      c.Query("q"),
		Page:          intQuery(c, "page", 1),
		Limit:         intQuery(c, "limit", services.DefaultPageSize),
		IdentityKey:   utils.IdentityKey(userID, c.ClientIP()),
		Authenticated: userID != "",
		UserAgent:     c.GetHeader("User-Agent"),
		IPAddress:     c.ClientIP(),
	}

	resp, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, query.ErrInvalidQuery):
			utils.ErrorResponse(c, http.StatusBadRequest, "Query parameter 'q' is required", err)
		case errors.Is(err, quota.ErrQuotaExceeded):
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Auto-find quota exceeded", err)
		default:
			h.logger.WithError(err).Error("Search failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Search failed", err)
		}
		return
	}

	code := http.StatusOK
	message := "Search completed"
	if resp.AutoFindTriggered {
		code = http.StatusAccepted
		message = "No results yet, auto-find started"
	}
	utils.SuccessResponse(c, code, message, resp)
}

// JobStatus handles GET /api/v1/jobs/:id.
func (h *SearchHandler) JobStatus(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Job ID is required", nil)
		return
	}

	status, err := h.service.JobStatus(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Job not found", err)
			return
		}
		h.logger.WithError(err).WithField("job_id", jobID).Error("Failed to load job status")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load job status", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Job status retrieved", status)
}

// Suggestions handles GET /api/v1/suggestions?limit=<n> with the most
// searched queries.
func (h *SearchHandler) Suggestions(c *gin.Context) {
	limit := intQuery(c, "limit", 10)

	suggestions, err := h.service.Suggestions(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load suggestions")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load suggestions", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Suggestions retrieved", gin.H{
		"suggestions": suggestions,
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
