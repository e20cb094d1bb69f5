package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "TENANT_RESOLUTION", "")
	setEnv(t, "PLAN_LIMITS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ResolveByHeader, cfg.TenantResolution)
	assert.Equal(t, DefaultTenantHeader, cfg.TenantHeader)
	assert.Equal(t, DefaultPlanLimits(), cfg.PlanLimits)
}

func TestLoad_PlanLimitsOverride(t *testing.T) {
	setEnv(t, "PLAN_LIMITS", "free=3, basic=10,Premium=99")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.PlanLimits["free"])
	assert.Equal(t, 10, cfg.PlanLimits["basic"])
	assert.Equal(t, 99, cfg.PlanLimits["premium"])
}

func TestLoad_MalformedPlanLimits(t *testing.T) {
	setEnv(t, "PLAN_LIMITS", "free:5")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "malformed entry")
}

func TestLoad_InvalidResolutionMode(t *testing.T) {
	setEnv(t, "TENANT_RESOLUTION", "path")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "TENANT_RESOLUTION")
}

func TestLoad_CentralDomains(t *testing.T) {
	setEnv(t, "CENTRAL_DOMAINS", "app.example.com, admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"app.example.com", "admin.example.com"}, cfg.CentralDomains)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid",
			config: Config{
				TenantHeader:     "X-Tenant",
				TenantResolution: ResolveByDomain,
				PlanLimits:       map[string]int{"free": 5},
			},
		},
		{
			name: "empty header",
			config: Config{
				TenantResolution: ResolveByHeader,
				PlanLimits:       map[string]int{"free": 5},
			},
			wantErr: "TENANT_HEADER",
		},
		{
			name: "negative limit",
			config: Config{
				TenantHeader:     "X-Tenant",
				TenantResolution: ResolveByHeader,
				PlanLimits:       map[string]int{"free": -1},
			},
			wantErr: "negative limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
