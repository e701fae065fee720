package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/assetgate/internal/catalog"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/services"

	"github.com/gin-gonic/gin"
)

// CodeAdminHandler manages redemption codes for the admin API
type CodeAdminHandler struct {
	codes   *services.AssetCodeService
	audit   *services.DownloadAuditService
	catalog core.AssetCatalog
}

func NewCodeAdminHandler(
	codes *services.AssetCodeService,
	audit *services.DownloadAuditService,
	assets core.AssetCatalog,
) *CodeAdminHandler {
	return &CodeAdminHandler{codes: codes, audit: audit, catalog: assets}
}

type generateCodesRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type generatedCodeResponse struct {
	Code         string `json:"code"`
	MaxDownloads int    `json:"max_downloads"`
}

// GenerateCodes creates a batch of codes. The plaintext codes appear in
// this response and nowhere else.
func (h *CodeAdminHandler) GenerateCodes(c *gin.Context) {
	assetID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_asset_id"})
		return
	}

	var req generateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "quantity is required"})
		return
	}

	if _, err := h.catalog.GetAsset(c.Request.Context(), assetID); err != nil {
		if errors.Is(err, catalog.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset_not_found"})
			return
		}
		log.Printf("[Codes] asset lookup failed for %d: %v", assetID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog_unavailable"})
		return
	}

	generated, err := h.codes.GenerateCodes(c.Request.Context(), assetID, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuantity) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_quantity",
				"message": err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrCodeLimitReached) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "code_limit_reached",
				"message": err.Error(),
			})
			return
		}
		log.Printf("[Codes] failed to generate codes for asset %d: %v", assetID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate codes"})
		return
	}

	out := make([]generatedCodeResponse, 0, len(generated))
	for _, g := range generated {
		out = append(out, generatedCodeResponse{Code: g.Code, MaxDownloads: g.Record.MaxDownloads})
	}

	h.audit.Log(c.Request.Context(), services.AttemptEntry{
		AssetID:   assetID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Action:    models.ActionCodeGeneration,
		Result:    models.ResultSuccess,
		Details:   models.AuditDetails{"quantity": len(out)},
	})

	c.JSON(http.StatusCreated, gin.H{
		"asset_id": assetID,
		"count":    len(out),
		"codes":    out,
	})
}

// ExportCodes writes the asset's codes as CSV. Codes are masked since the
// plaintext is never stored.
func (h *CodeAdminHandler) ExportCodes(c *gin.Context) {
	assetID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_asset_id"})
		return
	}

	codes, err := h.codes.ListCodes(c.Request.Context(), assetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve codes"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=asset_%d_codes_%s.csv",
		assetID,
		time.Now().Format("2006-01-02"),
	))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{"Code", "Created At", "Expires At"}); err != nil {
		return
	}
	for _, code := range codes {
		expiresAt := ""
		if code.ExpiresAt != nil {
			expiresAt = code.ExpiresAt.Format(time.RFC3339)
		}
		if err := writer.Write([]string{
			code.MaskedCode(),
			code.CreatedAt.Format(time.RFC3339),
			expiresAt,
		}); err != nil {
			return
		}
	}

	h.audit.Log(c.Request.Context(), services.AttemptEntry{
		AssetID:   assetID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Action:    models.ActionCodeExport,
		Result:    models.ResultSuccess,
		Details:   models.AuditDetails{"record_count": len(codes)},
	})
}

// DeleteCodes removes every code of an asset, used when the asset goes away
func (h *CodeAdminHandler) DeleteCodes(c *gin.Context) {
	assetID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_asset_id"})
		return
	}

	deleted, err := h.codes.DeleteCodesForAsset(c.Request.Context(), assetID)
	if err != nil {
		log.Printf("[Codes] failed to delete codes for asset %d: %v", assetID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete codes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
