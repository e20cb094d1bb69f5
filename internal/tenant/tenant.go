// Package tenant provides the central tenant registry for the Strata platform.
package tenant

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound    = errors.New("tenant: not found")
	ErrIDTaken     = errors.New("tenant: id already taken")
	ErrDomainTaken = errors.New("tenant: domain already mapped to another tenant")
)

// Plan identifies the subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// KnownPlans is the fixed plan enumeration. Quota limits per plan live in
// the quota policy table and are configured separately.
var KnownPlans = map[Plan]bool{
	PlanFree:       true,
	PlanBasic:      true,
	PlanPremium:    true,
	PlanEnterprise: true,
}

// ValidPlan returns true if the plan name is recognised.
func ValidPlan(p Plan) bool {
	return KnownPlans[p]
}

// Data keys with well-known meaning inside the open metadata mapping.
const (
	DataKeyPlan             = "plan"
	DataKeyStripeCustomerID = "stripeCustomerId"
)

// Tenant represents an isolated customer account. Domains map requests to the
// tenant; Data is an open metadata mapping that must carry the "plan" key.
type Tenant struct {
	ID          string         `json:"id"`
	Domains     []string       `json:"domains"`
	Data        map[string]any `json:"data"`
	HasDatabase bool           `json:"hasDatabase"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Plan returns the tenant's subscription tier from the data mapping.
func (t *Tenant) Plan() Plan {
	if s, ok := t.Data[DataKeyPlan].(string); ok {
		return Plan(s)
	}
	return ""
}

// SetPlan stores the subscription tier in the data mapping.
func (t *Tenant) SetPlan(p Plan) {
	if t.Data == nil {
		t.Data = make(map[string]any)
	}
	t.Data[DataKeyPlan] = string(p)
}

// StripeCustomerID returns the linked billing customer, if any.
func (t *Tenant) StripeCustomerID() string {
	if s, ok := t.Data[DataKeyStripeCustomerID].(string); ok {
		return s
	}
	return ""
}

// SetStripeCustomerID links a billing customer to the tenant.
func (t *Tenant) SetStripeCustomerID(id string) {
	if t.Data == nil {
		t.Data = make(map[string]any)
	}
	t.Data[DataKeyStripeCustomerID] = id
}

// MergeData merges partial metadata into the tenant's data mapping.
// Existing keys are overwritten; keys absent from partial are preserved.
func (t *Tenant) MergeData(partial map[string]any) {
	if t.Data == nil {
		t.Data = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		t.Data[k] = v
	}
}

// HasDomain reports whether the tenant owns the given domain.
func (t *Tenant) HasDomain(domain string) bool {
	for _, d := range t.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores never hand out shared mutable state.
func (t *Tenant) Clone() *Tenant {
	cp := *t
	cp.Domains = append([]string(nil), t.Domains...)
	cp.Data = make(map[string]any, len(t.Data))
	for k, v := range t.Data {
		cp.Data[k] = v
	}
	return &cp
}
