package handler

import (
	"net/http"
	"strconv"

	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

const apiKeyCtx = "api_key"

// APIKeyAuth authenticates external data-API calls with the X-API-Key header
// and meters them against the key's plan before the handler runs.
func (h *Handler) APIKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-API-Key")
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-API-Key header missing"})
			return
		}

		key, err := h.Keys.Authenticate(secret)
		if err != nil {
			c.AbortWithStatusJSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}

		metered, err := h.Keys.RecordUsage(key)
		if err != nil {
			c.Header("X-RateLimit-Limit-Day", strconv.Itoa(key.RequestsPerDay))
			c.Header("X-RateLimit-Limit-Month", strconv.Itoa(key.RequestsPerMonth))
			c.AbortWithStatusJSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.Header("X-RateLimit-Limit-Day", strconv.Itoa(metered.RequestsPerDay))
		c.Header("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(metered.RequestsPerDay)-metered.RequestsToday, 10))
		c.Header("X-RateLimit-Limit-Month", strconv.Itoa(metered.RequestsPerMonth))
		c.Header("X-RateLimit-Remaining-Month", strconv.FormatInt(int64(metered.RequestsPerMonth)-metered.RequestsThisMonth, 10))

		c.Set(apiKeyCtx, metered)
		c.Next()
	}
}

// DataReports serves aggregated public reports to NGO consumers.
func (h *Handler) DataReports(c *gin.Context) {
	filter := storage.ReportFilter{
		Status:     models.ReportStatus(c.Query("status")),
		Category:   models.ReportCategory(c.Query("category")),
		City:       c.Query("city"),
		PublicOnly: true,
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	reports, err := h.Storage.ListReports(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}
