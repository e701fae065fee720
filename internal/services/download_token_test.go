package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-authgate/assetgate/internal/catalog"
	"github.com/go-authgate/assetgate/internal/metrics"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"
	"github.com/go-authgate/assetgate/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) (*DownloadTokenService, *store.Store, *models.Asset) {
	t.Helper()
	s := setupTestStore(t)
	asset := &models.Asset{Title: "Workbook", StorageKey: "courses/7/workbook.pdf"}
	require.NoError(t, s.CreateAsset(context.Background(), asset))
	svc := NewDownloadTokenService(s, catalog.NewDatabaseCatalog(s), testConfig(), metrics.NewNoopMetrics())
	return svc, s, asset
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, s, asset := newTokenService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, asset.ID, 42, "203.0.113.5")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 2)
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "203.0.113.5", "ip is only embedded hashed")

	res := svc.ValidateToken(ctx, token, "203.0.113.5")
	require.True(t, res.OK, res.Detail)
	assert.Equal(t, asset.ID, res.Asset.ID)
	assert.Equal(t, int64(42), res.UserID)

	record, err := s.GetDownloadTokenByHash(ctx, res.Record.TokenHash)
	require.NoError(t, err)
	assert.Nil(t, record.ConsumedAt)
	assert.Equal(t, "203.0.113.5", record.IPAddress)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), record.ExpiresAt, 5*time.Second)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc, _, asset := newTokenService(t)
	ctx := context.Background()
	const ip = "198.51.100.7"

	token, err := svc.GenerateToken(ctx, asset.ID, 0, ip)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	flip := func(s string) string {
		last := s[len(s)-1]
		repl := byte('a')
		if last == 'a' {
			repl = 'b'
		}
		return s[:len(s)-1] + string(repl)
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	tampered := base64.RawURLEncoding.EncodeToString(
		[]byte(strings.Replace(string(raw), `"user_id":0`, `"user_id":1`, 1)),
	)

	tests := []struct {
		name   string
		token  string
		ip     string
		detail string
	}{
		{"empty", "", ip, "malformed"},
		{"no separator", parts[0], ip, "malformed"},
		{"three parts", token + ".x", ip, "malformed"},
		{"bad base64", "!!!." + parts[1], ip, "malformed"},
		{"tampered signature", parts[0] + "." + flip(parts[1]), ip, "bad_signature"},
		{"tampered payload", tampered + "." + parts[1], ip, "bad_signature"},
		{"other ip", token, "198.51.100.8", "ip_mismatch"},
		{"too long", strings.Repeat("a", maxTokenLength+1), ip, "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.ValidateToken(ctx, tt.token, tt.ip)
			assert.False(t, res.OK)
			assert.Equal(t, PublicInvalidOrExpired, res.Public)
			assert.Equal(t, tt.detail, res.Detail)
			assert.Nil(t, res.Asset)
		})
	}
}

func TestValidateToken_TimeWindow(t *testing.T) {
	svc, _, asset := newTokenService(t)
	ctx := context.Background()
	const ip = "192.0.2.1"

	token, err := svc.GenerateToken(ctx, asset.ID, 1, ip)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	res := svc.ValidateToken(ctx, token, ip)
	assert.False(t, res.OK)
	assert.Equal(t, "expired", res.Detail)

	// issued an hour ahead of the validating clock
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	future, err := svc.GenerateToken(ctx, asset.ID, 1, ip)
	require.NoError(t, err)
	svc.now = time.Now
	res = svc.ValidateToken(ctx, future, ip)
	assert.False(t, res.OK)
	assert.Equal(t, "issued_in_future", res.Detail)
}

func TestValidateToken_MissingFields(t *testing.T) {
	svc, _, asset := newTokenService(t)

	raw, err := json.Marshal(map[string]any{
		"asset_id":  asset.ID,
		"user_id":   0,
		"ip_hash":   "x",
		"issued_at": time.Now().Unix(),
	})
	require.NoError(t, err)
	forged := base64.RawURLEncoding.EncodeToString(raw) + "." + svc.sign(raw)

	res := svc.ValidateToken(context.Background(), forged, "x")
	assert.False(t, res.OK)
	assert.Equal(t, "missing_fields", res.Detail)
}

func TestValidateToken_SignedButNeverIssued(t *testing.T) {
	svc, _, asset := newTokenService(t)
	const ip = "192.0.2.9"

	raw, err := json.Marshal(tokenPayload{
		AssetID:  asset.ID,
		IPHash:   util.SHA256Hex(ip),
		IssuedAt: time.Now().Unix(),
		Nonce:    "00112233445566778899aabbccddeeff",
	})
	require.NoError(t, err)
	forged := base64.RawURLEncoding.EncodeToString(raw) + "." + svc.sign(raw)

	res := svc.ValidateToken(context.Background(), forged, ip)
	assert.False(t, res.OK)
	assert.Equal(t, "unknown_token", res.Detail)
	assert.ErrorIs(t, res.Cause, ErrNotFoundOrExhausted)
}

func TestConsumeToken_SingleUse(t *testing.T) {
	svc, _, asset := newTokenService(t)
	ctx := context.Background()
	const ip = "192.0.2.44"

	token, err := svc.GenerateToken(ctx, asset.ID, 3, ip)
	require.NoError(t, err)

	consumed, err := svc.IsTokenConsumed(ctx, token)
	require.NoError(t, err)
	assert.False(t, consumed)

	ok, err := svc.ConsumeToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ConsumeToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	res := svc.ValidateToken(ctx, token, ip)
	assert.False(t, res.OK)
	assert.Equal(t, PublicInvalidOrExpired, res.Public)
	assert.ErrorIs(t, res.Cause, ErrReplayDetected)

	consumed, err = svc.IsTokenConsumed(ctx, token)
	require.NoError(t, err)
	assert.True(t, consumed)

	_, err = svc.IsTokenConsumed(ctx, "never.issued")
	assert.ErrorIs(t, err, ErrNotFoundOrExhausted)
}

func TestConsumeToken_Concurrent(t *testing.T) {
	svc, _, asset := newTokenService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, asset.ID, 0, "192.0.2.50")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := svc.ConsumeToken(ctx, token); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestConsumeToken_Expired(t *testing.T) {
	svc, _, asset := newTokenService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, asset.ID, 0, "192.0.2.51")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	ok, err := svc.ConsumeToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCleanupExpiredTokens(t *testing.T) {
	svc, _, asset := newTokenService(t)
	ctx := context.Background()

	old, err := svc.GenerateToken(ctx, asset.ID, 0, "192.0.2.60")
	require.NoError(t, err)
	_, err = svc.ConsumeToken(ctx, old)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	fresh, err := svc.GenerateToken(ctx, asset.ID, 0, "192.0.2.60")
	require.NoError(t, err)

	deleted, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	consumed, err := svc.IsTokenConsumed(ctx, fresh)
	require.NoError(t, err)
	assert.False(t, consumed)
}
