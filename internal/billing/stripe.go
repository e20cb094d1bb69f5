// Package billing links tenants to Stripe customers.
package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/tenant"
)

// StripeBilling creates and deletes Stripe customers alongside tenants.
// Implements tenant.Billing.
type StripeBilling struct {
	api *client.API
}

// NewStripeBilling creates a billing client with the given API key.
func NewStripeBilling(apiKey string) *StripeBilling {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeBilling{api: api}
}

// CreateCustomer registers a Stripe customer for the tenant and returns its ID.
func (b *StripeBilling) CreateCustomer(ctx context.Context, t *tenant.Tenant) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(t.ID),
	}
	params.AddMetadata("tenant_id", t.ID)
	params.AddMetadata("plan", string(t.Plan()))

	cust, err := b.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("creating stripe customer for tenant %s: %w", t.ID, err)
	}

	logging.L(ctx).Info("stripe customer created", "tenant_id", t.ID, "customer_id", cust.ID)
	return cust.ID, nil
}

// DeleteCustomer removes the tenant's Stripe customer.
func (b *StripeBilling) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{Params: stripe.Params{Context: ctx}}
	if _, err := b.api.Customers.Del(customerID, params); err != nil {
		return fmt.Errorf("deleting stripe customer %s: %w", customerID, err)
	}
	logging.L(ctx).Info("stripe customer deleted", "customer_id", customerID)
	return nil
}
