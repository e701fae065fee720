package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		RateLimitStore:      RateLimitStoreMemory,
		EnableRateLimit:     true,
		CacheType:           CacheTypeMemory,
		StorageDriver:       StorageDriverLocal,
		StorageLocalRoot:    "./storage",
		DownloadDelivery:    DeliveryStream,
		AssetCatalog:        AssetCatalogDatabase,
		CodeRateLimit:       5,
		DownloadRateLimit:   10,
		DefaultMaxDownloads: 3,
		MaxCodesPerBatch:    100,
		TokenExpiry:         5 * time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name: "valid redis store",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
				c.RedisAddr = "localhost:6379"
			},
		},
		{
			name:     "invalid store - typo",
			mutate:   func(c *Config) { c.RateLimitStore = "reddis" },
			errorMsg: `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name:     "invalid store - empty string",
			mutate:   func(c *Config) { c.RateLimitStore = "" },
			errorMsg: `invalid RATE_LIMIT_STORE value: ""`,
		},
		{
			name:     "redis store without address",
			mutate:   func(c *Config) { c.RateLimitStore = RateLimitStoreRedis },
			errorMsg: `RATE_LIMIT_STORE="redis" requires REDIS_ADDR`,
		},
		{
			name: "redis store without address is fine when rate limiting is off",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
				c.EnableRateLimit = false
			},
		},
		{
			name:     "redis-aside cache without address",
			mutate:   func(c *Config) { c.CacheType = CacheTypeRedisAside },
			errorMsg: `CACHE_TYPE="redis-aside" requires REDIS_ADDR`,
		},
		{
			name:     "unknown cache type",
			mutate:   func(c *Config) { c.CacheType = "memcached" },
			errorMsg: `invalid CACHE_TYPE value: "memcached"`,
		},
		{
			name:     "s3 without bucket",
			mutate:   func(c *Config) { c.StorageDriver = StorageDriverS3 },
			errorMsg: `STORAGE_DRIVER="s3" requires S3_BUCKET`,
		},
		{
			name:     "redirect delivery needs s3",
			mutate:   func(c *Config) { c.DownloadDelivery = DeliveryRedirect },
			errorMsg: `DOWNLOAD_DELIVERY="redirect" requires STORAGE_DRIVER="s3"`,
		},
		{
			name: "redirect delivery with s3",
			mutate: func(c *Config) {
				c.StorageDriver = StorageDriverS3
				c.S3Bucket = "assets"
				c.DownloadDelivery = DeliveryRedirect
			},
		},
		{
			name:     "http catalog without url",
			mutate:   func(c *Config) { c.AssetCatalog = AssetCatalogHTTPAPI },
			errorMsg: `ASSET_CATALOG="http_api" requires ASSET_API_URL`,
		},
		{
			name:     "batch size above ceiling",
			mutate:   func(c *Config) { c.MaxCodesPerBatch = 101 },
			errorMsg: "MAX_CODES_PER_BATCH must be between 1 and 100",
		},
		{
			name:     "zero code limit",
			mutate:   func(c *Config) { c.CodeRateLimit = 0 },
			errorMsg: "CODE_RATE_LIMIT and DOWNLOAD_RATE_LIMIT must be positive",
		},
		{
			name:   "trusted proxies as IP and CIDR",
			mutate: func(c *Config) { c.TrustedProxies = []string{"10.0.0.1", "172.16.0.0/12", "::1"} },
		},
		{
			name:     "trusted proxy hostname",
			mutate:   func(c *Config) { c.TrustedProxies = []string{"proxy.internal"} },
			errorMsg: "invalid TRUSTED_PROXIES entry",
		},
		{
			name:     "negative per-asset code cap",
			mutate:   func(c *Config) { c.MaxCodesPerAsset = -1 },
			errorMsg: "MAX_CODES_PER_ASSET must not be negative",
		},
		{
			name: "production with default secrets",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.CodeHashSecret = defaultCodeSecret
			},
			errorMsg: "CODE_HASH_SECRET must be set in production",
		},
		{
			name: "production without admin token",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.CodeHashSecret = "a"
				c.DownloadTokenSecret = "b"
				c.SessionSecret = "c"
			},
			errorMsg: "ADMIN_TOKEN must be set in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.TokenExpiry)
	assert.Equal(t, 72*time.Hour, cfg.RedownloadWindow)
	assert.Equal(t, 3, cfg.DefaultMaxDownloads)
	assert.Equal(t, 10, cfg.SuspiciousThreshold)
	assert.Equal(t, time.Hour, cfg.SuspiciousWindow)
	assert.Equal(t, 5, cfg.CodeRateLimit)
	assert.Equal(t, 10, cfg.DownloadRateLimit)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitCooldown)
	assert.Equal(t, 90*24*time.Hour, cfg.AuditLogRetention)
	assert.Equal(t, 30*time.Second, cfg.DBInitTimeout)
	assert.Equal(t, 5*time.Second, cfg.RedisConnTimeout)
	assert.Equal(t, 5*time.Second, cfg.ServerShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.AuditShutdownTimeout)
	assert.Equal(t, 1000, cfg.MaxCodesPerAsset)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_EXPIRY", "2m")
	t.Setenv("REDOWNLOAD_WINDOW", "24h")
	t.Setenv("CODE_RATE_LIMIT", "7")
	t.Setenv("ENABLE_RATE_LIMIT", "false")
	t.Setenv("BASE_URL", "https://files.example.com/")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.1, ,172.16.0.0/12 ")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.TokenExpiry)
	assert.Equal(t, 24*time.Hour, cfg.RedownloadWindow)
	assert.Equal(t, 7, cfg.CodeRateLimit)
	assert.False(t, cfg.EnableRateLimit)
	assert.Equal(t, "https://files.example.com", cfg.BaseURL)
	assert.True(t, cfg.IsProduction)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.TrustedProxies)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_EXPIRY", "soon")
	t.Setenv("DOWNLOAD_RATE_LIMIT", "many")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.TokenExpiry)
	assert.Equal(t, 10, cfg.DownloadRateLimit)
}
