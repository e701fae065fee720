package services

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"
	"github.com/go-authgate/assetgate/internal/util"
)

const maxTokenLength = 2048

// tokenPayload is the signed part of a download token
type tokenPayload struct {
	AssetID  int64  `json:"asset_id"`
	UserID   int64  `json:"user_id"`
	IPHash   string `json:"ip_hash"`
	IssuedAt int64  `json:"issued_at"`
	Nonce    string `json:"nonce"`
}

var payloadFields = []string{"asset_id", "user_id", "ip_hash", "issued_at", "nonce"}

// TokenResult is returned by ValidateToken
type TokenResult struct {
	Verdict
	Asset  *models.Asset
	Record *models.DownloadToken
	UserID int64
}

type DownloadTokenService struct {
	store   *store.Store
	catalog core.AssetCatalog
	config  *config.Config
	metrics core.Recorder
	now     func() time.Time
}

func NewDownloadTokenService(
	s *store.Store,
	catalog core.AssetCatalog,
	cfg *config.Config,
	m core.Recorder,
) *DownloadTokenService {
	return &DownloadTokenService{
		store:   s,
		catalog: catalog,
		config:  cfg,
		metrics: m,
		now:     time.Now,
	}
}

// GenerateToken issues a single-use token for one download of assetID from ip.
// The token is base64url(payload) + "." + hex(HMAC-SHA256(payload)).
func (s *DownloadTokenService) GenerateToken(
	ctx context.Context,
	assetID, userID int64,
	ip string,
) (string, error) {
	nonceBytes, err := util.CryptoRandomBytes(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	payload := tokenPayload{
		AssetID:  assetID,
		UserID:   userID,
		IPHash:   util.SHA256Hex(ip),
		IssuedAt: now.Unix(),
		Nonce:    hex.EncodeToString(nonceBytes),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(raw) + "." + s.sign(raw)

	record := &models.DownloadToken{
		TokenHash: util.SHA256Hex(token),
		AssetID:   assetID,
		UserID:    userIDPtr(userID),
		IPAddress: ip,
		Nonce:     payload.Nonce,
		ExpiresAt: now.Add(s.config.TokenExpiry),
	}
	if err := s.store.CreateDownloadToken(ctx, record); err != nil {
		s.metrics.RecordDatabaseQueryError("create_download_token")
		return "", fmt.Errorf("failed to store download token: %w", err)
	}
	return token, nil
}

// ValidateToken checks token for a request from ip. It does not consume it.
func (s *DownloadTokenService) ValidateToken(ctx context.Context, token, ip string) TokenResult {
	result := s.validate(ctx, token, ip)
	if result.OK {
		s.metrics.RecordTokenValidation("valid")
	} else {
		s.metrics.RecordTokenValidation(result.Detail)
	}
	return result
}

func (s *DownloadTokenService) validate(ctx context.Context, token, ip string) TokenResult {
	if token == "" || len(token) > maxTokenLength {
		return TokenResult{Verdict: reject(ErrMalformedInput, "malformed")}
	}
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TokenResult{Verdict: reject(ErrMalformedInput, "malformed")}
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return TokenResult{Verdict: reject(ErrMalformedInput, "malformed")}
	}
	if !util.ConstantTimeEqual(s.sign(raw), parts[1]) {
		return TokenResult{Verdict: reject(ErrMalformedInput, "bad_signature")}
	}

	payload, ok := decodePayload(raw)
	if !ok {
		return TokenResult{Verdict: reject(ErrMalformedInput, "missing_fields")}
	}

	if !util.ConstantTimeEqual(util.SHA256Hex(ip), payload.IPHash) {
		return TokenResult{Verdict: reject(ErrNotFoundOrExhausted, "ip_mismatch")}
	}

	now := s.now()
	issuedAt := time.Unix(payload.IssuedAt, 0)
	if issuedAt.After(now) {
		return TokenResult{Verdict: reject(ErrMalformedInput, "issued_in_future")}
	}
	if now.Sub(issuedAt) > s.config.TokenExpiry {
		return TokenResult{Verdict: reject(ErrNotFoundOrExhausted, "expired")}
	}

	record, err := s.store.GetDownloadToken(ctx, util.SHA256Hex(token), payload.Nonce)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return TokenResult{Verdict: reject(ErrNotFoundOrExhausted, "unknown_token")}
		}
		s.metrics.RecordDatabaseQueryError("get_download_token")
		return TokenResult{Verdict: reject(ErrStorageUnavailable, "lookup_failed")}
	}
	if record.IsConsumed() {
		return TokenResult{Verdict: reject(ErrReplayDetected, "already_consumed"), Record: record}
	}
	if !now.Before(record.ExpiresAt) {
		return TokenResult{Verdict: reject(ErrNotFoundOrExhausted, "expired"), Record: record}
	}
	if record.AssetID != payload.AssetID {
		return TokenResult{Verdict: reject(ErrNotFoundOrExhausted, "asset_mismatch"), Record: record}
	}

	asset, err := s.catalog.GetAsset(ctx, payload.AssetID)
	if err != nil {
		return TokenResult{Verdict: reject(ErrNotFoundOrExhausted, "asset_missing"), Record: record}
	}

	return TokenResult{
		Verdict: accept(),
		Asset:   asset,
		Record:  record,
		UserID:  payload.UserID,
	}
}

// ConsumeToken marks the token used. Only one caller can ever get true.
func (s *DownloadTokenService) ConsumeToken(ctx context.Context, token string) (bool, error) {
	ok, err := s.store.ConsumeDownloadToken(ctx, util.SHA256Hex(token), s.now())
	if err != nil {
		s.metrics.RecordDatabaseQueryError("consume_download_token")
		return false, err
	}
	s.metrics.RecordTokenConsumed(ok)
	return ok, nil
}

// IsTokenConsumed reports the consumption state of a known token
func (s *DownloadTokenService) IsTokenConsumed(ctx context.Context, token string) (bool, error) {
	if token == "" || len(token) > maxTokenLength {
		return false, ErrNotFoundOrExhausted
	}
	record, err := s.store.GetDownloadTokenByHash(ctx, util.SHA256Hex(token))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, ErrNotFoundOrExhausted
		}
		return false, err
	}
	return record.IsConsumed(), nil
}

// CleanupExpiredTokens deletes every token past expiry, consumed or not
func (s *DownloadTokenService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredDownloadTokens(ctx, s.now())
}

func (s *DownloadTokenService) sign(payload []byte) string {
	return util.HMACSHA256Hex([]byte(s.config.DownloadTokenSecret), payload)
}

func decodePayload(raw []byte) (tokenPayload, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return tokenPayload{}, false
	}
	for _, name := range payloadFields {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			return tokenPayload{}, false
		}
	}

	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return tokenPayload{}, false
	}
	if p.AssetID < 1 || p.IPHash == "" || p.Nonce == "" || p.IssuedAt <= 0 {
		return tokenPayload{}, false
	}
	return p, true
}
