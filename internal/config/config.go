// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Resolution modes for tenant identification.
const (
	ResolveByHeader = "header"
	ResolveByDomain = "domain"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Tenancy
	TenantHeader     string   // header carrying the tenant ID (header mode)
	TenantResolution string   // "header" or "domain", fixed per deployment
	CentralDomains   []string // hosts reserved for the central app, blocked for tenant routes

	// Quota policy: plan name → max product records. Parsed from PLAN_LIMITS.
	PlanLimits map[string]int

	// SeedNewTenants populates demo products/users into freshly provisioned tenants
	SeedNewTenants bool

	// Billing
	StripeAPIKey string // optional; enables Stripe customer lifecycle per tenant

	// Observability
	OTLPEndpoint string // optional; enables OTLP trace export

	// Rate limiting
	RateLimitRPM int
}

// Defaults
const (
	DefaultPort         = "8080"
	DefaultEnv          = "development"
	DefaultLogLevel     = "info"
	DefaultTenantHeader = "X-Tenant"
	DefaultRateLimit    = 60
)

// DefaultPlanLimits is the stock quota table. Overridable via PLAN_LIMITS,
// e.g. PLAN_LIMITS="free=5,basic=20,premium=50,enterprise=100".
func DefaultPlanLimits() map[string]int {
	return map[string]int{
		"free":       5,
		"basic":      20,
		"premium":    50,
		"enterprise": 100,
	}
}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:      os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		TenantHeader:     getEnv("TENANT_HEADER", DefaultTenantHeader),
		TenantResolution: getEnv("TENANT_RESOLUTION", ResolveByHeader),
		CentralDomains:   splitList(getEnv("CENTRAL_DOMAINS", "localhost,127.0.0.1")),
		SeedNewTenants:   getEnvBool("SEED_NEW_TENANTS", false),
		StripeAPIKey:     os.Getenv("STRIPE_API_KEY"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:     int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}

	limits, err := parsePlanLimits(os.Getenv("PLAN_LIMITS"))
	if err != nil {
		return nil, err
	}
	cfg.PlanLimits = limits

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.TenantResolution != ResolveByHeader && c.TenantResolution != ResolveByDomain {
		return fmt.Errorf("TENANT_RESOLUTION must be %q or %q, got %q",
			ResolveByHeader, ResolveByDomain, c.TenantResolution)
	}
	if c.TenantHeader == "" {
		return fmt.Errorf("TENANT_HEADER must not be empty")
	}
	for plan, limit := range c.PlanLimits {
		if limit < 0 {
			return fmt.Errorf("PLAN_LIMITS: plan %q has negative limit %d", plan, limit)
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// parsePlanLimits parses "free=5,basic=20" into a limit table.
// An empty value yields the default table.
func parsePlanLimits(s string) (map[string]int, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultPlanLimits(), nil
	}
	limits := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("PLAN_LIMITS: malformed entry %q (want plan=limit)", pair)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("PLAN_LIMITS: invalid limit in %q: %w", pair, err)
		}
		limits[strings.ToLower(strings.TrimSpace(name))] = limit
	}
	if len(limits) == 0 {
		return nil, fmt.Errorf("PLAN_LIMITS: no valid entries in %q", s)
	}
	return limits, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
