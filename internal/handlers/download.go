package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-authgate/assetgate/internal/catalog"
	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/middleware"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/pathguard"
	"github.com/go-authgate/assetgate/internal/services"
	"github.com/go-authgate/assetgate/internal/storage"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidCode      = "Invalid or expired code"
	msgCodeRequired     = "Redemption code required"
	msgFileNotFound     = "File not found"
	msgDownloadFailed   = "Download temporarily unavailable"
	presignedURLTTL     = time.Minute
	noStoreCacheControl = "no-store, no-cache, must-revalidate, private"
)

// DownloadHandler serves the public redemption and download endpoints
type DownloadHandler struct {
	codes   *services.AssetCodeService
	tokens  *services.DownloadTokenService
	audit   *services.DownloadAuditService
	catalog core.AssetCatalog
	objects core.ObjectStore
	config  *config.Config
	metrics core.Recorder
}

func NewDownloadHandler(
	codes *services.AssetCodeService,
	tokens *services.DownloadTokenService,
	audit *services.DownloadAuditService,
	assets core.AssetCatalog,
	objects core.ObjectStore,
	cfg *config.Config,
	m core.Recorder,
) *DownloadHandler {
	return &DownloadHandler{
		codes:   codes,
		tokens:  tokens,
		audit:   audit,
		catalog: assets,
		objects: objects,
		config:  cfg,
		metrics: m,
	}
}

type redeemRequest struct {
	Code string `json:"code" form:"code"`
}

// Redeem exchanges a redemption code for a single-use download URL.
// Every failure produces the same response.
func (h *DownloadHandler) Redeem(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()
	userID := middleware.GetUserID(c)

	assetID, ok := parseID(c.Param("id"))
	var req redeemRequest
	if !ok || c.ShouldBind(&req) != nil || req.Code == "" {
		h.logAttempt(c, assetID, userID, models.ActionCodeAttempt, models.ResultFailed,
			models.AuditDetails{"reason": "malformed_request"})
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidCode})
		return
	}

	result := h.codes.RedeemCode(ctx, req.Code, assetID, userID)
	if !result.OK {
		details := result.AuditDetails()
		details["code"] = req.Code
		h.logAttempt(c, assetID, userID, models.ActionCodeAttempt, models.ResultFailed, details)
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidCode})
		return
	}

	h.logAttempt(c, assetID, userID, models.ActionCodeSuccess, models.ResultSuccess, models.AuditDetails{
		"code":           req.Code,
		"outcome":        result.Outcome,
		"download_count": result.Record.DownloadCount,
	})

	token, err := h.tokens.GenerateToken(ctx, assetID, userID, ip)
	if err != nil {
		log.Printf("[Download] failed to issue token for asset %d: %v", assetID, err)
		h.refund(ctx, result.Record.ID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": msgDownloadFailed})
		return
	}
	h.metrics.RecordTokenIssued("redeem")

	c.JSON(http.StatusOK, gin.H{
		"download_url":        h.downloadURL(token),
		"downloads_remaining": result.Record.RemainingDownloads(),
	})
}

// DirectDownload issues a download URL without a code for free assets, or
// for users who already hold a redemption with downloads left. The latter
// spends one of those downloads.
func (h *DownloadHandler) DirectDownload(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	assetID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"message": msgCodeRequired})
		return
	}

	asset, err := h.catalog.GetAsset(ctx, assetID)
	if err != nil {
		if !errors.Is(err, catalog.ErrAssetNotFound) {
			log.Printf("[Download] asset lookup failed for %d: %v", assetID, err)
		}
		h.logAttempt(c, assetID, userID, models.ActionDownloadRequest, models.ResultFailed,
			models.AuditDetails{"reason": "asset_unavailable"})
		c.JSON(http.StatusForbidden, gin.H{"message": msgCodeRequired})
		return
	}

	source := "free"
	var recordID int64
	if !asset.IsFree {
		record, err := h.codes.GetValidRedemption(ctx, userID, assetID)
		if err != nil {
			h.logAttempt(c, assetID, userID, models.ActionDownloadRequest, models.ResultFailed,
				models.AuditDetails{"reason": "no_valid_redemption"})
			c.JSON(http.StatusForbidden, gin.H{"message": msgCodeRequired})
			return
		}
		consumed, err := h.codes.ConsumeRedownload(ctx, record.ID)
		if err != nil || !consumed {
			h.logAttempt(c, assetID, userID, models.ActionDownloadRequest, models.ResultFailed,
				models.AuditDetails{"reason": services.ReasonLimitReached})
			c.JSON(http.StatusForbidden, gin.H{"message": msgCodeRequired})
			return
		}
		source = "redownload"
		recordID = record.ID
	}

	token, err := h.tokens.GenerateToken(ctx, assetID, userID, c.ClientIP())
	if err != nil {
		log.Printf("[Download] failed to issue token for asset %d: %v", assetID, err)
		if recordID != 0 {
			h.refund(ctx, recordID)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": msgDownloadFailed})
		return
	}
	h.metrics.RecordTokenIssued("direct")
	h.logAttempt(c, assetID, userID, models.ActionDownloadRequest, models.ResultSuccess,
		models.AuditDetails{"source": source})

	c.JSON(http.StatusOK, gin.H{"download_url": h.downloadURL(token)})
}

// Download serves the file behind a download token. The token is consumed
// only once the object has been opened, so storage trouble leaves it usable.
func (h *DownloadHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	rawToken := c.Param("token")

	result := h.tokens.ValidateToken(ctx, rawToken, c.ClientIP())
	if !result.OK {
		details := result.AuditDetails()
		details["token"] = rawToken
		h.failDownload(c, assetIDOf(result), result.UserID, details)
		return
	}
	asset := result.Asset

	if err := pathguard.ValidateStorageKey(asset.StorageKey); err != nil {
		log.Printf("[Download] rejected storage key for asset %d: %v", asset.ID, err)
		h.failDownload(c, asset.ID, result.UserID, models.AuditDetails{
			"reason": "unsafe_storage_key",
			"cause":  services.ErrMalformedInput.Error(),
		})
		return
	}

	filename := pathguard.SanitizeFilename(asset.DownloadName())

	if h.config.DownloadDelivery == config.DeliveryRedirect {
		if presigner, ok := h.objects.(core.Presigner); ok {
			h.redirect(c, rawToken, result, presigner, filename)
			return
		}
	}

	reader, info, err := h.objects.Open(ctx, asset.StorageKey)
	if err != nil {
		h.storageFailure(c, asset.ID, result.UserID, err)
		return
	}
	defer reader.Close()

	if !h.consume(c, rawToken, asset.ID, result.UserID) {
		return
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	setNoStoreHeaders(c)
	c.DataFromReader(http.StatusOK, info.Size, contentType, reader, map[string]string{
		"Content-Disposition":    pathguard.ContentDisposition(filename),
		"X-Content-Type-Options": "nosniff",
	})

	h.metrics.RecordDownload(config.DeliveryStream, true, info.Size)
	h.audit.Log(ctx, services.AttemptEntry{
		AssetID:   asset.ID,
		UserID:    result.UserID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Action:    models.ActionDownloadComplete,
		Result:    models.ResultSuccess,
		Details:   models.AuditDetails{"delivery": config.DeliveryStream, "bytes": info.Size},
	})
}

func (h *DownloadHandler) redirect(
	c *gin.Context,
	rawToken string,
	result services.TokenResult,
	presigner core.Presigner,
	filename string,
) {
	ctx := c.Request.Context()
	asset := result.Asset

	exists, err := h.objects.Exists(ctx, asset.StorageKey)
	if err == nil && !exists {
		err = storage.ErrObjectNotFound
	}
	if err != nil {
		h.storageFailure(c, asset.ID, result.UserID, err)
		return
	}

	url, err := presigner.PresignGet(ctx, asset.StorageKey, filename, presignedURLTTL)
	if err != nil {
		h.storageFailure(c, asset.ID, result.UserID, err)
		return
	}

	if !h.consume(c, rawToken, asset.ID, result.UserID) {
		return
	}

	setNoStoreHeaders(c)
	c.Redirect(http.StatusFound, url)

	h.metrics.RecordDownload(config.DeliveryRedirect, true, 0)
	h.audit.Log(ctx, services.AttemptEntry{
		AssetID:   asset.ID,
		UserID:    result.UserID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Action:    models.ActionDownloadComplete,
		Result:    models.ResultSuccess,
		Details:   models.AuditDetails{"delivery": config.DeliveryRedirect},
	})
}

// consume spends the token; a lost race is reported like any other failure
func (h *DownloadHandler) consume(c *gin.Context, rawToken string, assetID, userID int64) bool {
	ok, err := h.tokens.ConsumeToken(c.Request.Context(), rawToken)
	if err != nil {
		log.Printf("[Download] failed to consume token for asset %d: %v", assetID, err)
		h.failDownload(c, assetID, userID, models.AuditDetails{
			"reason": "consume_failed",
			"cause":  services.ErrStorageUnavailable.Error(),
		})
		return false
	}
	if !ok {
		h.failDownload(c, assetID, userID, models.AuditDetails{
			"reason": "already_consumed",
			"cause":  services.ErrReplayDetected.Error(),
		})
		return false
	}
	return true
}

func (h *DownloadHandler) storageFailure(c *gin.Context, assetID, userID int64, err error) {
	log.Printf("[Download] object store error for asset %d: %v", assetID, err)
	h.metrics.RecordDownload(h.config.DownloadDelivery, false, 0)
	h.failDownload(c, assetID, userID, models.AuditDetails{
		"reason": "object_unavailable",
		"cause":  services.ErrStorageUnavailable.Error(),
	})
}

func (h *DownloadHandler) failDownload(c *gin.Context, assetID, userID int64, details models.AuditDetails) {
	h.logAttempt(c, assetID, userID, models.ActionDownloadRequest, models.ResultFailed, details)
	c.JSON(http.StatusNotFound, gin.H{"message": msgFileNotFound})
}

// Status reports whether a token has been used, so clients can tell a
// finished download from one worth retrying.
func (h *DownloadHandler) Status(c *gin.Context) {
	consumed, err := h.tokens.IsTokenConsumed(c.Request.Context(), c.Param("token"))
	if err != nil {
		if !errors.Is(err, services.ErrNotFoundOrExhausted) {
			log.Printf("[Download] token status lookup failed: %v", err)
		}
		c.JSON(http.StatusNotFound, gin.H{"message": msgFileNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{"consumed": consumed})
}

// refund returns a spent download unit after token issuance failed. It runs
// detached from the request so a client disconnect cannot skip it.
func (h *DownloadHandler) refund(ctx context.Context, recordID int64) {
	if err := h.codes.RefundDownload(context.WithoutCancel(ctx), recordID); err != nil {
		log.Printf("[Download] %v", err)
	}
}

func (h *DownloadHandler) logAttempt(
	c *gin.Context,
	assetID, userID int64,
	action models.AuditAction,
	result models.AuditResult,
	details models.AuditDetails,
) {
	_, err := h.audit.LogAttempt(c.Request.Context(), services.AttemptEntry{
		AssetID:   assetID,
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Action:    action,
		Result:    result,
		Details:   details,
	})
	if err != nil {
		log.Printf("[Audit] failed to record %s/%s: %v", action, result, err)
	}
}

func (h *DownloadHandler) downloadURL(token string) string {
	return h.config.BaseURL + "/download/" + token
}

func setNoStoreHeaders(c *gin.Context) {
	c.Header("Cache-Control", noStoreCacheControl)
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

func assetIDOf(result services.TokenResult) int64 {
	if result.Asset != nil {
		return result.Asset.ID
	}
	if result.Record != nil {
		return result.Record.AssetID
	}
	return 0
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
