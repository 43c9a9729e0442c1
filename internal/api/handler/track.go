package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackReport is the public, unauthenticated tracking endpoint: given a
// complaint ID it returns the report's current status, the full status
// history and the authority response if one was attached.
func (h *Handler) TrackReport(c *gin.Context) {
	report, err := h.Lifecycle.Track(c.Param("complaintId"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": "no report found for that complaint ID"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaint_id":       report.ComplaintID,
		"status":             report.Status,
		"category":           report.Category,
		"severity":           report.Severity,
		"created_at":         report.CreatedAt,
		"status_history":     report.StatusHistory,
		"authority_response": report.Response,
	})
}
