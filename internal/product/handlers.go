package product

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/strata/internal/idgen"
	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/pagination"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// StoreSource yields the product store bound to the request's resolved tenant.
// The second return is the tenant ID; ok is false when no tenant is bound.
type StoreSource func(c *gin.Context) (store Store, tenantID string, ok bool)

// Events receives product lifecycle notifications.
type Events interface {
	ProductCreated(tenantID string, p *Product)
}

// Handler provides tenant-scoped product CRUD endpoints.
type Handler struct {
	stores StoreSource
	events Events
}

// NewHandler creates a new product handler.
func NewHandler(stores StoreSource) *Handler {
	return &Handler{stores: stores}
}

// WithEvents adds a lifecycle event emitter.
func (h *Handler) WithEvents(e Events) *Handler {
	h.events = e
	return h
}

// RegisterRoutes sets up product CRUD under a tenant-resolved route group.
// The quota gate middleware guards the create route and is wired by the caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, quotaGate gin.HandlerFunc) {
	r.GET("/products", h.ListProducts)
	r.POST("/products", quotaGate, h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.PATCH("/products/:id", h.UpdateProduct)
	r.DELETE("/products/:id", h.DeleteProduct)
}

func (h *Handler) scoped(c *gin.Context) (Store, string, bool) {
	store, tenantID, ok := h.stores(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "no tenant bound to request",
		})
	}
	return store, tenantID, ok
}

// ListProducts handles GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	store, _, ok := h.scoped(c)
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxPageSize)
		}
	}
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "invalid cursor",
		})
		return
	}

	products, err := store.List(c.Request.Context(), cursor, limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("product list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to list products",
		})
		return
	}

	page, next, hasMore := pagination.ComputePage(products, limit, func(p *Product) (time.Time, string) {
		return p.CreatedAt, p.ID
	})
	if page == nil {
		page = []*Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"products":   page,
			"nextCursor": next,
			"hasMore":    hasMore,
		},
		"message": "Products retrieved successfully",
	})
}

// CreateProduct handles POST /api/products (behind the quota gate)
func (h *Handler) CreateProduct(c *gin.Context) {
	store, tenantID, ok := h.scoped(c)
	if !ok {
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Price       *float64 `json:"price"`
		Description string   `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "invalid body",
		})
		return
	}
	if msg := validateProduct(req.Name, req.Price, true); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": msg,
		})
		return
	}

	now := time.Now()
	p := &Product{
		ID:          idgen.WithPrefix("prod_"),
		Name:        strings.TrimSpace(req.Name),
		Price:       *req.Price,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := store.Create(c.Request.Context(), p); err != nil {
		logging.L(c.Request.Context()).Error("product create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to create product",
		})
		return
	}

	if h.events != nil {
		h.events.ProductCreated(tenantID, p)
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"data":    p,
		"message": "Product created successfully",
	})
}

// GetProduct handles GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	store, _, ok := h.scoped(c)
	if !ok {
		return
	}

	p, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    p,
		"message": "Product retrieved successfully",
	})
}

// UpdateProduct handles PUT/PATCH /api/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	store, _, ok := h.scoped(c)
	if !ok {
		return
	}

	p, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load product",
		})
		return
	}

	var req struct {
		Name        *string  `json:"name"`
		Price       *float64 `json:"price"`
		Description *string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "invalid body",
		})
		return
	}

	name := p.Name
	if req.Name != nil {
		name = *req.Name
	}
	if msg := validateProduct(name, req.Price, false); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": msg,
		})
		return
	}

	p.Name = strings.TrimSpace(name)
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	p.UpdatedAt = time.Now()

	if err := store.Update(c.Request.Context(), p); err != nil {
		logging.L(c.Request.Context()).Error("product update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to update product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    p,
		"message": "Product updated successfully",
	})
}

// DeleteProduct handles DELETE /api/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	store, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to delete product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    nil,
		"message": "Product deleted successfully",
	})
}

// validateProduct applies the resource's field rules.
// requirePrice distinguishes create (price mandatory) from partial update.
func validateProduct(name string, price *float64, requirePrice bool) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "name is required"
	}
	if len(name) > MaxNameLength {
		return "name must be at most 20 characters"
	}
	if requirePrice && price == nil {
		return "price is required"
	}
	if price != nil && *price < 0 {
		return "price must be non-negative"
	}
	return ""
}
