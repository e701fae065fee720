package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Cache type constants (cooldown markers, asset lookups, metrics gauges)
const (
	CacheTypeMemory     = "memory"
	CacheTypeRedis      = "redis"
	CacheTypeRedisAside = "redis-aside"
)

// Object storage driver constants
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Download delivery mode constants
const (
	DeliveryStream   = "stream"
	DeliveryRedirect = "redirect"
)

// Asset catalog mode constants
const (
	AssetCatalogDatabase = "database"
	AssetCatalogHTTPAPI  = "http_api"
)

const (
	defaultSessionSecret = "session-secret-change-in-production"
	defaultCodeSecret    = "code-hash-secret-change-in-production"
	defaultTokenSecret   = "download-token-secret-change-in-production"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Peers allowed to set X-Forwarded-For / X-Real-IP. Empty trusts none.
	TrustedProxies []string

	// Session settings (shared with the content application)
	SessionSecret string
	SessionName   string
	SessionMaxAge int // seconds

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Redemption codes
	CodeHashSecret      string
	RedownloadWindow    time.Duration
	DefaultMaxDownloads int
	MaxCodesPerBatch    int
	MaxCodesPerAsset    int // 0 means no cap

	// Download tokens
	DownloadTokenSecret  string
	TokenExpiry          time.Duration
	TokenCleanupInterval time.Duration

	// Audit
	EnableAuditLogging  bool
	AuditLogBufferSize  int
	AuditLogRetention   time.Duration
	SuspiciousThreshold int
	SuspiciousWindow    time.Duration

	// Rate limiting
	EnableRateLimit   bool
	RateLimitStore    string // "memory" or "redis"
	RateLimitWindow   time.Duration
	RateLimitCooldown time.Duration
	CodeRateLimit     int
	DownloadRateLimit int

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Cache
	CacheType       string
	CacheClientTTL  time.Duration
	AssetCacheTTL   time.Duration
	CacheSizePerCon int // MB, redis-aside only

	// Object storage
	StorageDriver    string
	StorageLocalRoot string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
	S3AccessKey      string
	S3SecretKey      string
	S3UsePathStyle   bool
	DownloadDelivery string

	// Asset catalog
	AssetCatalog               string
	AssetAPIURL                string
	AssetAPITimeout            time.Duration
	AssetAPIInsecureSkipVerify bool
	AssetAPIAuthMode           string // "none", "simple", or "hmac"
	AssetAPIAuthSecret         string
	AssetAPIAuthHeader         string
	AssetAPIMaxRetries         int
	AssetAPIRetryDelay         time.Duration
	AssetAPIMaxRetryDelay      time.Duration

	// Admin
	AdminToken string

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Timeouts
	DBInitTimeout         time.Duration
	RedisConnTimeout      time.Duration
	CacheInitTimeout      time.Duration
	ServerShutdownTimeout time.Duration
	AuditShutdownTimeout  time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "assetgate.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		IsProduction: getEnv("ENVIRONMENT", "development") == "production",

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionName:   getEnv("SESSION_NAME", "app_session"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400*7),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		CodeHashSecret:      getEnv("CODE_HASH_SECRET", defaultCodeSecret),
		RedownloadWindow:    getEnvDuration("REDOWNLOAD_WINDOW", 72*time.Hour),
		DefaultMaxDownloads: getEnvInt("DEFAULT_MAX_DOWNLOADS", 3),
		MaxCodesPerBatch:    getEnvInt("MAX_CODES_PER_BATCH", 100),
		MaxCodesPerAsset:    getEnvInt("MAX_CODES_PER_ASSET", 1000),

		DownloadTokenSecret:  getEnv("DOWNLOAD_TOKEN_SECRET", defaultTokenSecret),
		TokenExpiry:          getEnvDuration("TOKEN_EXPIRY", 5*time.Minute),
		TokenCleanupInterval: getEnvDuration("TOKEN_CLEANUP_INTERVAL", 15*time.Minute),

		EnableAuditLogging:  getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize:  getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:   getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),
		SuspiciousThreshold: getEnvInt("SUSPICIOUS_THRESHOLD", 10),
		SuspiciousWindow:    getEnvDuration("SUSPICIOUS_WINDOW", time.Hour),

		EnableRateLimit:   getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:    getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitCooldown: getEnvDuration("RATE_LIMIT_COOLDOWN", 15*time.Minute),
		CodeRateLimit:     getEnvInt("CODE_RATE_LIMIT", 5),
		DownloadRateLimit: getEnvInt("DOWNLOAD_RATE_LIMIT", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CacheType:       getEnv("CACHE_TYPE", CacheTypeMemory),
		CacheClientTTL:  getEnvDuration("CACHE_CLIENT_TTL", 30*time.Second),
		AssetCacheTTL:   getEnvDuration("ASSET_CACHE_TTL", 5*time.Minute),
		CacheSizePerCon: getEnvInt("CACHE_SIZE_PER_CONN", 32),

		StorageDriver:    getEnv("STORAGE_DRIVER", StorageDriverLocal),
		StorageLocalRoot: getEnv("STORAGE_LOCAL_ROOT", "./storage"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3BaseEndpoint:   getEnv("S3_BASE_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle:   getEnvBool("S3_USE_PATH_STYLE", true),
		DownloadDelivery: getEnv("DOWNLOAD_DELIVERY", DeliveryStream),

		AssetCatalog:               getEnv("ASSET_CATALOG", AssetCatalogDatabase),
		AssetAPIURL:                strings.TrimRight(getEnv("ASSET_API_URL", ""), "/"),
		AssetAPITimeout:            getEnvDuration("ASSET_API_TIMEOUT", 10*time.Second),
		AssetAPIInsecureSkipVerify: getEnvBool("ASSET_API_INSECURE_SKIP_VERIFY", false),
		AssetAPIAuthMode:           getEnv("ASSET_API_AUTH_MODE", "none"),
		AssetAPIAuthSecret:         getEnv("ASSET_API_AUTH_SECRET", ""),
		AssetAPIAuthHeader:         getEnv("ASSET_API_AUTH_HEADER", "X-API-Secret"),
		AssetAPIMaxRetries:         getEnvInt("ASSET_API_MAX_RETRIES", 3),
		AssetAPIRetryDelay:         getEnvDuration("ASSET_API_RETRY_DELAY", 1*time.Second),
		AssetAPIMaxRetryDelay:      getEnvDuration("ASSET_API_MAX_RETRY_DELAY", 10*time.Second),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),

		DBInitTimeout:         getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		RedisConnTimeout:      getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),
		CacheInitTimeout:      getEnvDuration("CACHE_INIT_TIMEOUT", 5*time.Second),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		AuditShutdownTimeout:  getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks that enumerated settings hold known values and that
// their dependencies are configured.
func (c *Config) Validate() error {
	if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
		return fmt.Errorf(
			"invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis,
		)
	}
	if c.EnableRateLimit && c.RateLimitStore == RateLimitStoreRedis && c.RedisAddr == "" {
		return errors.New(`RATE_LIMIT_STORE="redis" requires REDIS_ADDR`)
	}

	switch c.CacheType {
	case CacheTypeMemory:
	case CacheTypeRedis, CacheTypeRedisAside:
		if c.RedisAddr == "" {
			return fmt.Errorf("CACHE_TYPE=%q requires REDIS_ADDR", c.CacheType)
		}
	default:
		return fmt.Errorf(
			"invalid CACHE_TYPE value: %q (must be %q, %q or %q)",
			c.CacheType, CacheTypeMemory, CacheTypeRedis, CacheTypeRedisAside,
		)
	}

	switch c.StorageDriver {
	case StorageDriverLocal:
		if c.StorageLocalRoot == "" {
			return errors.New(`STORAGE_DRIVER="local" requires STORAGE_LOCAL_ROOT`)
		}
	case StorageDriverS3:
		if c.S3Bucket == "" {
			return errors.New(`STORAGE_DRIVER="s3" requires S3_BUCKET`)
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER value: %q", c.StorageDriver)
	}

	switch c.DownloadDelivery {
	case DeliveryStream:
	case DeliveryRedirect:
		if c.StorageDriver != StorageDriverS3 {
			return errors.New(`DOWNLOAD_DELIVERY="redirect" requires STORAGE_DRIVER="s3"`)
		}
	default:
		return fmt.Errorf("invalid DOWNLOAD_DELIVERY value: %q", c.DownloadDelivery)
	}

	switch c.AssetCatalog {
	case AssetCatalogDatabase:
	case AssetCatalogHTTPAPI:
		if c.AssetAPIURL == "" {
			return errors.New(`ASSET_CATALOG="http_api" requires ASSET_API_URL`)
		}
	default:
		return fmt.Errorf("invalid ASSET_CATALOG value: %q", c.AssetCatalog)
	}

	if c.CodeRateLimit < 1 || c.DownloadRateLimit < 1 {
		return errors.New("CODE_RATE_LIMIT and DOWNLOAD_RATE_LIMIT must be positive")
	}
	if c.DefaultMaxDownloads < 1 {
		return errors.New("DEFAULT_MAX_DOWNLOADS must be at least 1")
	}
	if c.MaxCodesPerBatch < 1 || c.MaxCodesPerBatch > 100 {
		return errors.New("MAX_CODES_PER_BATCH must be between 1 and 100")
	}
	if c.MaxCodesPerAsset < 0 {
		return errors.New("MAX_CODES_PER_ASSET must not be negative")
	}
	if c.TokenExpiry <= 0 {
		return errors.New("TOKEN_EXPIRY must be positive")
	}

	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry: %q (must be an IP or CIDR)", proxy)
		}
	}

	if c.IsProduction {
		if c.CodeHashSecret == defaultCodeSecret || c.CodeHashSecret == "" {
			return errors.New("CODE_HASH_SECRET must be set in production")
		}
		if c.DownloadTokenSecret == defaultTokenSecret || c.DownloadTokenSecret == "" {
			return errors.New("DOWNLOAD_TOKEN_SECRET must be set in production")
		}
		if c.SessionSecret == defaultSessionSecret || c.SessionSecret == "" {
			return errors.New("SESSION_SECRET must be set in production")
		}
		if c.AdminToken == "" {
			return errors.New("ADMIN_TOKEN must be set in production")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
