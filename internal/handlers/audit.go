package handlers

import (
	"encoding/csv"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/services"
	"github.com/go-authgate/assetgate/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	// queryValueTrue represents the string "true" used in query parameters
	queryValueTrue = "true"

	maxExportRows = 10000
)

// AuditHandler handles audit log operations
type AuditHandler struct {
	auditService *services.DownloadAuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.DownloadAuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

func parsePagination(c *gin.Context) store.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return store.NewPaginationParams(page, pageSize)
}

func parseAuditFilters(c *gin.Context) store.AuditLogFilters {
	filters := store.AuditLogFilters{
		IPAddress: c.Query("ip"),
		Action:    models.AuditAction(c.Query("action")),
		Result:    models.AuditResult(c.Query("result")),
	}
	if !filters.Action.IsValid() {
		filters.Action = ""
	}
	if !filters.Result.IsValid() {
		filters.Result = ""
	}

	// Parse suspicious filter (optional boolean)
	if suspiciousStr := c.Query("suspicious"); suspiciousStr != "" {
		suspicious := suspiciousStr == queryValueTrue
		filters.IsSuspicious = &suspicious
	}

	if assetID, ok := parseID(c.Query("asset_id")); ok {
		filters.AssetID = assetID
	}
	if userID, ok := parseID(c.Query("user_id")); ok {
		filters.UserID = &userID
	}

	// Parse time range
	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filters.StartTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filters.EndTime = t
		}
	}

	return filters
}

// ListAuditLogs retrieves audit logs with pagination and filtering
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	logs, pagination, err := h.auditService.GetLogs(
		c.Request.Context(),
		parsePagination(c),
		parseAuditFilters(c),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}

// ListFlaggedLogs returns only entries marked suspicious
func (h *AuditHandler) ListFlaggedLogs(c *gin.Context) {
	logs, pagination, err := h.auditService.GetFlaggedLogs(c.Request.Context(), parsePagination(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve flagged logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}

// ListSuspiciousIPs aggregates suspicious entries per IP
func (h *AuditHandler) ListSuspiciousIPs(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))

	ips, err := h.auditService.GetSuspiciousIPs(c.Request.Context(), hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve suspicious IPs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ips": ips})
}

type flagRequest struct {
	IP     string `json:"ip"     binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// FlagIP marks the last hour of an IP's activity as suspicious
func (h *AuditHandler) FlagIP(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil || net.ParseIP(req.IP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "ip and reason are required"})
		return
	}

	flagged, err := h.auditService.FlagSuspiciousActivity(c.Request.Context(), req.IP, req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to flag activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ip": req.IP, "flagged": flagged})
}

// GetAuditLogStats returns statistics about audit logs
func (h *AuditHandler) GetAuditLogStats(c *gin.Context) {
	// Parse time range
	var startTime, endTime time.Time

	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			startTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			endTime = t
		}
	}

	// Default to last 30 days if no time range specified
	if startTime.IsZero() && endTime.IsZero() {
		endTime = time.Now()
		startTime = endTime.Add(-30 * 24 * time.Hour)
	}

	stats, err := h.auditService.GetStats(c.Request.Context(), startTime, endTime)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "Failed to retrieve audit log statistics"},
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":      stats,
		"start_time": startTime,
		"end_time":   endTime,
	})
}

// ExportAuditLogs exports audit logs as CSV
func (h *AuditHandler) ExportAuditLogs(c *gin.Context) {
	logs, err := h.auditService.ExportLogs(c.Request.Context(), parseAuditFilters(c), maxExportRows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	// Set CSV headers
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=download_audit_%s.csv",
		time.Now().Format("2006-01-02"),
	))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Created At",
		"Asset ID",
		"User ID",
		"IP Address",
		"Action",
		"Result",
		"Suspicious",
		"Reason",
	}); err != nil {
		return
	}

	for _, log := range logs {
		userID := ""
		if log.UserID != nil {
			userID = strconv.FormatInt(*log.UserID, 10)
		}
		suspiciousStr := "No"
		if log.IsSuspicious {
			suspiciousStr = "Yes"
		}
		reason, _ := log.Details["reason"].(string)

		if err := writer.Write([]string{
			log.CreatedAt.Format(time.RFC3339),
			strconv.FormatInt(log.AssetID, 10),
			userID,
			log.IPAddress,
			string(log.Action),
			string(log.Result),
			suspiciousStr,
			reason,
		}); err != nil {
			return
		}
	}
}
