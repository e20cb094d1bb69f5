package tenancy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/strata/internal/config"
	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/metrics"
	"github.com/mbd888/strata/internal/tenant"
	"github.com/mbd888/strata/internal/traces"
	"github.com/mbd888/strata/internal/validation"
)

var (
	// ErrAmbiguous means the header and the request host name different tenants.
	ErrAmbiguous = errors.New("tenancy: ambiguous tenant resolution")

	// ErrCentralDomain means a tenant route was requested on a central-only host.
	ErrCentralDomain = errors.New("tenancy: central domain may not serve tenant routes")
)

// Resolver resolves the owning tenant for incoming requests.
type Resolver struct {
	store          tenant.Store
	storage        Storage
	mode           string
	header         string
	centralDomains map[string]bool
}

// NewResolver builds a resolver from the deployment config.
func NewResolver(store tenant.Store, storage Storage, cfg *config.Config) *Resolver {
	central := make(map[string]bool, len(cfg.CentralDomains))
	for _, d := range cfg.CentralDomains {
		central[validation.NormalizeDomain(d)] = true
	}
	return &Resolver{
		store:          store,
		storage:        storage,
		mode:           cfg.TenantResolution,
		header:         cfg.TenantHeader,
		centralDomains: central,
	}
}

// Middleware resolves the tenant and binds its isolated stores to the request.
// The binding lives in the gin context only and dies with the request, so no
// tenant context ever leaks across requests.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerID := c.GetHeader(r.header)
		host := validation.NormalizeDomain(c.Request.Host)

		var (
			t   *tenant.Tenant
			err error
		)
		switch r.mode {
		case config.ResolveByDomain:
			t, err = r.resolveByDomain(c, host, headerID)
		default:
			t, err = r.resolveByHeader(c, host, headerID)
		}
		if err != nil {
			r.reject(c, err)
			return
		}

		products, err := r.storage.Products(t.ID)
		if err != nil {
			r.rejectStorage(c, t.ID, err)
			return
		}
		users, err := r.storage.Users(t.ID)
		if err != nil {
			r.rejectStorage(c, t.ID, err)
			return
		}

		bind(c, &Context{Tenant: t, Products: products, Users: users})
		ctx := logging.WithTenantID(c.Request.Context(), t.ID)
		ctx, span := traces.StartSpan(ctx, "tenancy.resolve",
			traces.TenantID(t.ID), traces.Plan(string(t.Plan())))
		span.End()
		c.Request = c.Request.WithContext(ctx)

		metrics.TenantResolutionsTotal.WithLabelValues("success").Inc()
		c.Next()
	}
}

func (r *Resolver) resolveByHeader(c *gin.Context, host, headerID string) (*tenant.Tenant, error) {
	if headerID == "" {
		return nil, tenant.ErrNotFound
	}
	t, err := r.store.Get(c.Request.Context(), headerID)
	if err != nil {
		return nil, err
	}

	// A host that maps to a different tenant contradicts the header.
	if !r.centralDomains[host] {
		byHost, hostErr := r.store.GetByDomain(c.Request.Context(), host)
		if hostErr == nil && byHost.ID != t.ID {
			return nil, fmt.Errorf("%w: header names %q, host %q belongs to %q",
				ErrAmbiguous, t.ID, host, byHost.ID)
		}
	}
	return t, nil
}

func (r *Resolver) resolveByDomain(c *gin.Context, host, headerID string) (*tenant.Tenant, error) {
	if r.centralDomains[host] {
		return nil, fmt.Errorf("%w: %s", ErrCentralDomain, host)
	}
	t, err := r.store.GetByDomain(c.Request.Context(), host)
	if err != nil {
		return nil, err
	}
	if headerID != "" && headerID != t.ID {
		return nil, fmt.Errorf("%w: host %q belongs to %q, header names %q",
			ErrAmbiguous, host, t.ID, headerID)
	}
	return t, nil
}

func (r *Resolver) reject(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, ErrAmbiguous):
		metrics.TenantResolutionsTotal.WithLabelValues("ambiguous").Inc()
		logging.L(ctx).Error("ambiguous tenant resolution", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "tenant resolution is ambiguous",
		})
	case errors.Is(err, ErrCentralDomain):
		metrics.TenantResolutionsTotal.WithLabelValues("central_domain").Inc()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status": "error", "data": nil, "message": "tenant routes are not served on this domain",
		})
	case errors.Is(err, tenant.ErrNotFound):
		metrics.TenantResolutionsTotal.WithLabelValues("not_found").Inc()
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"status": "error", "data": nil, "message": "tenant not found",
		})
	default:
		metrics.TenantResolutionsTotal.WithLabelValues("error").Inc()
		logging.L(ctx).Error("tenant resolution failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to resolve tenant",
		})
	}
}

func (r *Resolver) rejectStorage(c *gin.Context, tenantID string, err error) {
	metrics.TenantResolutionsTotal.WithLabelValues("error").Inc()
	logging.L(c.Request.Context()).Error("tenant store unavailable",
		"tenant_id", tenantID, "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"status": "error", "data": nil, "message": "tenant store unavailable",
	})
}

// CurrentTenant handles GET /api/tenant inside a resolved tenant group.
func CurrentTenant(c *gin.Context) {
	tc, ok := FromGin(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "no tenant bound to request",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    tc.Tenant,
		"message": "Tenant retrieved successfully",
	})
}
