// Package tenancy resolves the owning tenant of each request and binds its
// isolated stores for the duration of that request.
package tenancy

import (
	"github.com/gin-gonic/gin"
	"github.com/mbd888/strata/internal/product"
	"github.com/mbd888/strata/internal/tenant"
	"github.com/mbd888/strata/internal/user"
)

const contextKey = "tenancy.context"

// Context carries the resolved tenant and its isolated stores for one request.
// It lives in the gin context only, so concurrent requests for different
// tenants never see each other's stores.
type Context struct {
	Tenant   *tenant.Tenant
	Products product.Store
	Users    user.Store
}

func bind(c *gin.Context, tc *Context) {
	c.Set(contextKey, tc)
}

// FromGin returns the tenant context bound to the request, if any.
func FromGin(c *gin.Context) (*Context, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	tc, ok := v.(*Context)
	return tc, ok
}
