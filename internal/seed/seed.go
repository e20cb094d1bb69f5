// Package seed populates freshly provisioned tenant stores with demo data.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/strata/internal/idgen"
	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/product"
	"github.com/mbd888/strata/internal/user"
)

// Storage hands out the stores bound to a tenant. Satisfied by the tenancy
// storage managers.
type Storage interface {
	Products(tenantID string) (product.Store, error)
	Users(tenantID string) (user.Store, error)
}

// Seeder inserts a demo catalogue and demo users into a tenant's stores.
type Seeder struct {
	storage Storage
}

// New creates a seeder over the given storage.
func New(storage Storage) *Seeder {
	return &Seeder{storage: storage}
}

type demoProduct struct {
	name        string
	price       float64
	description string
}

var demoProducts = []demoProduct{
	{"Laptop Dell Inspiron", 899.99, "High-performance laptop for work and entertainment"},
	{"Mouse MX Master 3", 99.99, "Ergonomic wireless precision mouse"},
	{"Mechanical Keyboard", 149.99, "Mechanical keyboard with customizable RGB lighting"},
	{"Monitor LG 27in 4K", 449.99, "4K UHD monitor with IPS panel"},
	{"Webcam HD 1080p", 79.99, "High-definition webcam for video calls"},
	{"Sony WH-1000XM5", 399.99, "Premium noise-cancelling headphones"},
	{"SSD Samsung 1TB", 129.99, "High-speed solid state drive"},
	{"Hub USB-C 7 in 1", 49.99, "Multiport USB-C adapter"},
	{"Blue Yeti Mic", 129.99, "Professional USB microphone for streaming and podcasts"},
	{"Laptop Stand", 39.99, "Height-adjustable ergonomic laptop stand"},
}

type demoUser struct {
	name     string
	email    string
	password string
}

var demoUsers = []demoUser{
	{"Admin User", "admin@tenant.local", "password123"},
	{"Regular User", "user@tenant.local", "password123"},
}

// SeedTenant inserts the demo catalogue and users into the tenant's stores.
// Implements tenant.Seeder.
func (s *Seeder) SeedTenant(ctx context.Context, tenantID string) error {
	products, err := s.storage.Products(tenantID)
	if err != nil {
		return fmt.Errorf("seeding tenant %s: %w", tenantID, err)
	}
	users, err := s.storage.Users(tenantID)
	if err != nil {
		return fmt.Errorf("seeding tenant %s: %w", tenantID, err)
	}

	now := time.Now()
	for i, dp := range demoProducts {
		p := &product.Product{
			ID:          idgen.WithPrefix("prod_"),
			Name:        dp.name,
			Price:       dp.price,
			Description: dp.description,
			CreatedAt:   now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:   now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("seeding product %q for tenant %s: %w", dp.name, tenantID, err)
		}
	}

	for _, du := range demoUsers {
		u := &user.User{
			ID:           idgen.WithPrefix("usr_"),
			Name:         du.name,
			Email:        du.email,
			PasswordHash: user.HashPassword(du.password),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seeding user %q for tenant %s: %w", du.email, tenantID, err)
		}
	}

	logging.L(ctx).Info("tenant seeded",
		"tenant_id", tenantID,
		"products", len(demoProducts),
		"users", len(demoUsers))
	return nil
}
