package user

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/strata/internal/idgen"
	"github.com/mbd888/strata/internal/logging"
)

// StoreSource yields the user store bound to the request's resolved tenant.
type StoreSource func(c *gin.Context) (store Store, tenantID string, ok bool)

// Handler provides tenant-scoped user CRUD endpoints.
type Handler struct {
	stores StoreSource
}

// NewHandler creates a new user handler.
func NewHandler(stores StoreSource) *Handler {
	return &Handler{stores: stores}
}

// RegisterRoutes sets up user CRUD under a tenant-resolved route group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.ListUsers)
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUser)
	r.PUT("/users/:id", h.UpdateUser)
	r.PATCH("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
}

func (h *Handler) scoped(c *gin.Context) (Store, bool) {
	store, _, ok := h.stores(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "no tenant bound to request",
		})
	}
	return store, ok
}

// ListUsers handles GET /api/users
func (h *Handler) ListUsers(c *gin.Context) {
	store, ok := h.scoped(c)
	if !ok {
		return
	}

	users, err := store.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("user list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to list users",
		})
		return
	}
	if users == nil {
		users = []*User{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    users,
		"message": "Users retrieved successfully",
	})
}

// CreateUser handles POST /api/users
func (h *Handler) CreateUser(c *gin.Context) {
	store, ok := h.scoped(c)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "invalid body",
		})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Name == "":
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "name is required",
		})
		return
	case !isValidEmail(req.Email):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "a valid email is required",
		})
		return
	case len(req.Password) < 8:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "password must be at least 8 characters",
		})
		return
	}

	now := time.Now()
	u := &User{
		ID:           idgen.WithPrefix("usr_"),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: HashPassword(req.Password),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "email already registered",
			})
			return
		}
		logging.L(c.Request.Context()).Error("user create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to create user",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"data":    u,
		"message": "User created successfully",
	})
}

// GetUser handles GET /api/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	store, ok := h.scoped(c)
	if !ok {
		return
	}

	u, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "user not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load user",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    u,
		"message": "User retrieved successfully",
	})
}

// UpdateUser handles PUT/PATCH /api/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	store, ok := h.scoped(c)
	if !ok {
		return
	}

	u, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "user not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to load user",
		})
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error", "data": nil, "message": "invalid body",
		})
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "name must not be empty",
			})
			return
		}
		u.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !isValidEmail(email) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "a valid email is required",
			})
			return
		}
		u.Email = strings.ToLower(email)
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "password must be at least 8 characters",
			})
			return
		}
		u.PasswordHash = HashPassword(*req.Password)
	}
	u.UpdatedAt = time.Now()

	if err := store.Update(c.Request.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status": "error", "data": nil, "message": "email already registered",
			})
			return
		}
		logging.L(c.Request.Context()).Error("user update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to update user",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    u,
		"message": "User updated successfully",
	})
}

// DeleteUser handles DELETE /api/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	store, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status": "error", "data": nil, "message": "user not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "data": nil, "message": "failed to delete user",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    nil,
		"message": "User deleted successfully",
	})
}

func isValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}
