package handler

import (
	"net/http"

	"ecosakshi/backend/internal/lifecycle"
	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type mediaRequest struct {
	URL       string   `json:"url" binding:"required"`
	Type      string   `json:"type" binding:"required,oneof=image video"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type createReportRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Severity    string          `json:"severity"`
	Location    models.Location `json:"location"`
	Media       []mediaRequest  `json:"media"`
}

// CreateReport files a new report for the authenticated citizen.
func (h *Handler) CreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := &models.Report{
		Title:       req.Title,
		Description: req.Description,
		Category:    models.ReportCategory(req.Category),
		Severity:    models.Severity(req.Severity),
		Location:    req.Location,
	}
	for _, m := range req.Media {
		report.Media = append(report.Media, models.MediaAttachment{
			URL:       m.URL,
			Type:      m.Type,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		})
	}

	created, err := h.Lifecycle.Submit(report, GetActor(c))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListReports returns reports visible to the caller. Staff see everything;
// citizens and NGOs see public reports plus their own.
func (h *Handler) ListReports(c *gin.Context) {
	actor := GetActor(c)
	filter := storage.ReportFilter{
		Status:   models.ReportStatus(c.Query("status")),
		Category: models.ReportCategory(c.Query("category")),
		City:     c.Query("city"),
	}
	if c.Query("mine") == "true" {
		filter.UserID = actor.ID
	}
	if !actor.IsStaff() {
		filter.PublicOnly = true
		filter.ViewerID = actor.ID
	}

	reports, err := h.Storage.ListReports(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReport returns one report with history and media.
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.Storage.GetReportByID(c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	actor := GetActor(c)
	if !report.IsPublic && !actor.IsStaff() && report.UserID != actor.ID {
		// Hide the existence of non-public reports from other users.
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateStatus applies a status transition (authority/admin only).
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.Lifecycle.UpdateStatus(c.Param("id"), models.ReportStatus(req.Status), req.Notes, GetActor(c))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ResolveReport is the formal resolution path with an authority response.
func (h *Handler) ResolveReport(c *gin.Context) {
	var req struct {
		Message     string `json:"message" binding:"required"`
		ActionTaken string `json:"action_taken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.Lifecycle.ResolveWithResponse(c.Param("id"), req.Message, req.ActionTaken, GetActor(c))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateSeverity lets the reporter adjust severity while still pending.
func (h *Handler) UpdateSeverity(c *gin.Context) {
	var req struct {
		Severity string `json:"severity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Lifecycle.UpdateSeverity(c.Param("id"), models.Severity(req.Severity), GetActor(c)); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// BulkAction applies one action to many reports, reporting per-id outcomes.
func (h *Handler) BulkAction(c *gin.Context) {
	var req struct {
		ReportIDs []string `json:"report_ids" binding:"required,min=1"`
		Action    string   `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, affected, err := h.Lifecycle.BulkAction(req.ReportIDs, lifecycle.BulkActionKind(req.Action), GetActor(c))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": affected, "results": results})
}
