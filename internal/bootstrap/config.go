package bootstrap

import (
	"log"

	"github.com/go-authgate/assetgate/internal/config"
)

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	for _, warning := range configWarnings(cfg) {
		log.Printf("WARNING: %s", warning)
	}
}

// configWarnings lists settings that are legal but risky outside production
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.AdminToken == "" {
		warnings = append(warnings, "ADMIN_TOKEN is not set; the admin API is disabled")
	}
	if !cfg.EnableRateLimit {
		warnings = append(warnings, "rate limiting is disabled; redemption codes can be brute-forced")
	}
	if !cfg.EnableAuditLogging {
		warnings = append(warnings, "audit logging is disabled; suspicious activity will not be detected")
	}
	if cfg.RateLimitStore == config.RateLimitStoreMemory && cfg.CacheType != config.CacheTypeMemory {
		warnings = append(warnings, "rate limit counters are per instance while caches are shared")
	}
	return warnings
}
