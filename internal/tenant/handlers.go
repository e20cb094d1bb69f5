package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/strata/internal/idgen"
	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/validation"
)

// Storage provisions and destroys per-tenant isolated stores.
// Implemented by tenancy storage managers.
type Storage interface {
	Provision(ctx context.Context, tenantID string) error
	Drop(ctx context.Context, tenantID string) error
}

// Billing links tenants to an external billing provider.
type Billing interface {
	CreateCustomer(ctx context.Context, t *Tenant) (customerID string, err error)
	DeleteCustomer(ctx context.Context, customerID string) error
}

// Seeder populates a freshly provisioned tenant store with demo data.
type Seeder interface {
	SeedTenant(ctx context.Context, tenantID string) error
}

// Events receives tenant lifecycle notifications.
type Events interface {
	TenantCreated(t *Tenant)
	TenantDeleted(id string)
}

// Handler provides the central (non-tenant) HTTP endpoints for tenant management.
type Handler struct {
	store   Store
	storage Storage
	billing Billing
	seeder  Seeder
	events  Events
	logger  *slog.Logger
}

// NewHandler creates a new tenant handler.
func NewHandler(store Store, storage Storage) *Handler {
	return &Handler{store: store, storage: storage, logger: slog.Default()}
}

// WithBilling enables billing-customer lifecycle alongside tenants.
func (h *Handler) WithBilling(b Billing) *Handler {
	h.billing = b
	return h
}

// WithSeeder enables demo-data seeding for new tenants.
func (h *Handler) WithSeeder(s Seeder) *Handler {
	h.seeder = s
	return h
}

// WithEvents adds a lifecycle event emitter.
func (h *Handler) WithEvents(e Events) *Handler {
	h.events = e
	return h
}

// WithLogger sets a custom logger.
func (h *Handler) WithLogger(l *slog.Logger) *Handler {
	h.logger = l
	return h
}

// RegisterRoutes sets up the central tenant CRUD routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tenants", h.ListTenants)
	r.POST("/tenants", h.CreateTenant)
	r.GET("/tenants/:id", h.GetTenant)
	r.PUT("/tenants/:id", h.UpdateTenant)
	r.PATCH("/tenants/:id", h.UpdateTenant)
	r.DELETE("/tenants/:id", h.DeleteTenant)
}

// ListTenants handles GET /api/tenants
func (h *Handler) ListTenants(c *gin.Context) {
	tenants, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to list tenants",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    tenants,
		"message": "Tenants retrieved successfully",
	})
}

// CreateTenant handles POST /api/tenants
func (h *Handler) CreateTenant(c *gin.Context) {
	var req struct {
		ID      string         `json:"id"`
		Domain  string         `json:"domain" binding:"required"`
		Domains []string       `json:"domains"`
		Data    map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "domain is required",
		})
		return
	}

	if req.ID != "" && !validation.IsValidTenantID(req.ID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil,
			"message": "id must be 3-64 lowercase alphanumeric/hyphen/underscore, start/end with alphanumeric",
		})
		return
	}

	domains := append([]string{req.Domain}, req.Domains...)
	seen := make(map[string]bool, len(domains))
	for i, d := range domains {
		d = validation.NormalizeDomain(d)
		if !validation.IsValidDomain(d) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "invalid domain: " + domains[i],
			})
			return
		}
		if seen[d] {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "duplicate domain in request: " + d,
			})
			return
		}
		seen[d] = true
		domains[i] = d
	}

	now := time.Now()
	t := &Tenant{
		ID:          req.ID,
		Domains:     domains,
		Data:        req.Data,
		HasDatabase: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.ID == "" {
		t.ID = idgen.New()
	}
	if t.Data == nil {
		t.Data = make(map[string]any)
	}
	if t.Plan() == "" {
		t.SetPlan(PlanFree)
	}
	if !ValidPlan(t.Plan()) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "unknown plan: " + string(t.Plan()),
		})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.Create(ctx, t); err != nil {
		switch {
		case errors.Is(err, ErrIDTaken):
			c.JSON(http.StatusConflict, gin.H{
				"status": "error", "data": nil, "message": "tenant id already taken",
			})
		case errors.Is(err, ErrDomainTaken):
			c.JSON(http.StatusConflict, gin.H{
				"status": "error", "data": nil, "message": "domain already mapped to another tenant",
			})
		default:
			logging.L(ctx).Error("tenant create failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "error", "data": nil, "message": "failed to create tenant",
			})
		}
		return
	}

	if err := h.storage.Provision(ctx, t.ID); err != nil {
		// Roll the registry record back so no half-created tenant is visible.
		logging.L(ctx).Error("tenant store provisioning failed", "tenant_id", t.ID, "error", err)
		_ = h.store.Delete(ctx, t.ID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to provision tenant store",
		})
		return
	}

	if h.billing != nil {
		customerID, err := h.billing.CreateCustomer(ctx, t)
		if err != nil {
			logging.L(ctx).Warn("billing customer creation failed", "tenant_id", t.ID, "error", err)
		} else {
			t.SetStripeCustomerID(customerID)
			t.UpdatedAt = time.Now()
			if err := h.store.Update(ctx, t); err != nil {
				logging.L(ctx).Warn("failed to persist billing customer id", "tenant_id", t.ID, "error", err)
			}
		}
	}

	if h.seeder != nil {
		if err := h.seeder.SeedTenant(ctx, t.ID); err != nil {
			logging.L(ctx).Warn("tenant seeding failed", "tenant_id", t.ID, "error", err)
		}
	}

	if h.events != nil {
		h.events.TenantCreated(t)
	}

	logging.L(ctx).Info("tenant created", "tenant_id", t.ID, "domains", t.Domains, "plan", t.Plan())
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"data":    t,
		"message": "Tenant created successfully",
	})
}

// GetTenant handles GET /api/tenants/:id
func (h *Handler) GetTenant(c *gin.Context) {
	t, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "tenant not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load tenant",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    t,
		"message": "Tenant retrieved successfully",
	})
}

// UpdateTenant handles PUT/PATCH /api/tenants/:id. Merges partial data and
// optionally replaces the domain set.
func (h *Handler) UpdateTenant(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "tenant not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load tenant",
		})
		return
	}

	var req struct {
		Data    map[string]any `json:"data"`
		Domains []string       `json:"domains"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "invalid body",
		})
		return
	}

	if req.Data != nil {
		if rawPlan, ok := req.Data[DataKeyPlan]; ok {
			plan, isString := rawPlan.(string)
			if !isString || !ValidPlan(Plan(plan)) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"status": "error", "data": nil, "message": "unknown plan",
				})
				return
			}
		}
		t.MergeData(req.Data)
	}
	if req.Domains != nil {
		if len(req.Domains) == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "tenant must keep at least one domain",
			})
			return
		}
		normalized := make([]string, 0, len(req.Domains))
		for _, d := range req.Domains {
			d = validation.NormalizeDomain(d)
			if !validation.IsValidDomain(d) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"status": "error", "data": nil, "message": "invalid domain: " + d,
				})
				return
			}
			normalized = append(normalized, d)
		}
		t.Domains = normalized
	}
	t.UpdatedAt = time.Now()

	if err := h.store.Update(ctx, t); err != nil {
		if errors.Is(err, ErrDomainTaken) {
			c.JSON(http.StatusConflict, gin.H{
				"status": "error", "data": nil, "message": "domain already mapped to another tenant",
			})
			return
		}
		logging.L(ctx).Error("tenant update failed", "tenant_id", t.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to update tenant",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    t,
		"message": "Tenant updated successfully",
	})
}

// DeleteTenant handles DELETE /api/tenants/:id. Removes the registry record,
// its domain mappings, and destroys the tenant's isolated store.
func (h *Handler) DeleteTenant(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	t, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "tenant not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load tenant",
		})
		return
	}

	// Irreversible: the tenant's entire isolated store goes with it.
	logging.L(ctx).Warn("destroying tenant and its isolated store", "tenant_id", id, "domains", t.Domains)
	if err := h.storage.Drop(ctx, id); err != nil {
		logging.L(ctx).Error("tenant store destruction failed", "tenant_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to destroy tenant store",
		})
		return
	}

	if h.billing != nil {
		if customerID := t.StripeCustomerID(); customerID != "" {
			if err := h.billing.DeleteCustomer(ctx, customerID); err != nil {
				logging.L(ctx).Warn("billing customer deletion failed", "tenant_id", id, "error", err)
			}
		}
	}

	if err := h.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		logging.L(ctx).Error("tenant registry delete failed", "tenant_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to delete tenant",
		})
		return
	}

	if h.events != nil {
		h.events.TenantDeleted(id)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    nil,
		"message": "Tenant deleted successfully",
	})
}
