// Package quota enforces per-plan product limits for tenants.
package quota

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/metrics"
	"github.com/mbd888/strata/internal/tenant"
)

// ErrUnknownPlan is returned when a tenant's plan has no configured limit.
var ErrUnknownPlan = errors.New("quota: unknown plan")

// ExceededError is returned when a tenant is at or over its product limit.
type ExceededError struct {
	Plan  tenant.Plan
	Limit int
	Count int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota: plan %q allows %d products, tenant has %d", e.Plan, e.Limit, e.Count)
}

// Counter reports how many products a tenant currently holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Policy maps plans to their maximum product count.
type Policy struct {
	limits map[tenant.Plan]int
}

// NewPolicy builds a policy from a plan-to-limit map.
func NewPolicy(limits map[tenant.Plan]int) *Policy {
	cp := make(map[tenant.Plan]int, len(limits))
	for plan, limit := range limits {
		cp[plan] = limit
	}
	return &Policy{limits: cp}
}

// Limit returns the configured limit for a plan.
func (p *Policy) Limit(plan tenant.Plan) (int, bool) {
	limit, ok := p.limits[plan]
	return limit, ok
}

// Evaluate checks whether the tenant may create one more product.
// The current count is compared against the plan limit before any
// insert happens, so a tenant at its limit is rejected.
func (p *Policy) Evaluate(ctx context.Context, t *tenant.Tenant, counter Counter) error {
	plan := t.Plan()
	limit, ok := p.limits[plan]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	count, err := counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting products: %w", err)
	}
	if count >= limit {
		return &ExceededError{Plan: plan, Limit: limit, Count: count}
	}
	return nil
}

// Source yields the tenant and product counter bound to the request.
type Source func(c *gin.Context) (*tenant.Tenant, Counter, bool)

// Events receives quota rejection notifications. May be nil.
type Events interface {
	QuotaExceeded(tenantID string, plan tenant.Plan, limit, count int)
}

// Middleware gates product creation on the tenant's plan limit.
func Middleware(policy *Policy, source Source, events Events) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, counter, ok := source(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status": "error", "data": nil, "message": "no tenant bound to request",
			})
			return
		}

		err := policy.Evaluate(c.Request.Context(), t, counter)
		if err == nil {
			c.Next()
			return
		}

		var exceeded *ExceededError
		switch {
		case errors.As(err, &exceeded):
			metrics.QuotaRejectionsTotal.WithLabelValues(string(exceeded.Plan)).Inc()
			if events != nil {
				events.QuotaExceeded(t.ID, exceeded.Plan, exceeded.Limit, exceeded.Count)
			}
			logging.L(c.Request.Context()).Info("product quota exceeded",
				"plan", string(exceeded.Plan), "limit", exceeded.Limit, "count", exceeded.Count)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status": "error",
				"data": gin.H{
					"plan":  exceeded.Plan,
					"limit": exceeded.Limit,
					"count": exceeded.Count,
				},
				"message": fmt.Sprintf("product limit reached: plan %q allows %d products", exceeded.Plan, exceeded.Limit),
			})
		case errors.Is(err, ErrUnknownPlan):
			logging.L(c.Request.Context()).Error("tenant has unknown plan", "plan", string(t.Plan()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status": "error", "data": nil, "message": "tenant plan is not recognized",
			})
		default:
			logging.L(c.Request.Context()).Error("quota evaluation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status": "error", "data": nil, "message": "failed to evaluate product quota",
			})
		}
	}
}
