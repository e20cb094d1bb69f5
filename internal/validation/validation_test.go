package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDomain(t *testing.T) {
	valid := []string{"acme.example.com", "foo.io", "a-b.example.com", "localhost"}
	for _, d := range valid {
		assert.True(t, IsValidDomain(d), d)
	}

	invalid := []string{"", "-bad.example.com", "http://acme.example.com", "spaces here.com", strings.Repeat("a", 260) + ".com"}
	for _, d := range invalid {
		assert.False(t, IsValidDomain(d), d)
	}
}

func TestIsValidTenantID(t *testing.T) {
	assert.True(t, IsValidTenantID("acme"))
	assert.True(t, IsValidTenantID("acme-corp_2"))
	assert.False(t, IsValidTenantID("ab"))
	assert.False(t, IsValidTenantID("-acme"))
	assert.False(t, IsValidTenantID("acme-"))
	assert.False(t, IsValidTenantID("Acme"))
	assert.False(t, IsValidTenantID("a b"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 100))
	assert.Equal(t, "he", SanitizeString("hello", 2))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 100))
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "acme.example.com", NormalizeDomain(" ACME.Example.Com "))
	assert.Equal(t, "acme.example.com", NormalizeDomain("acme.example.com:8080"))
}
