// Package validation provides input validation helpers for the Strata API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

var (
	// domainRegex accepts DNS names like acme.example.com (no scheme, no port)
	domainRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$|^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	// tenantIDRegex bounds caller-supplied tenant IDs
	tenantIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,62}[a-z0-9]$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidDomain checks if a string looks like a usable DNS name.
func IsValidDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || len(domain) > 253 {
		return false
	}
	return domainRegex.MatchString(domain)
}

// IsValidTenantID checks caller-supplied tenant identifiers:
// 3-64 chars, lowercase alphanumeric with - or _, alphanumeric at both ends.
func IsValidTenantID(id string) bool {
	return tenantIDRegex.MatchString(id)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// NormalizeDomain lowercases a domain and strips whitespace and any port suffix.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host, _, ok := strings.Cut(domain, ":"); ok {
		domain = host
	}
	return domain
}
