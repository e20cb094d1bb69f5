//go:build integration

package tenancy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mbd888/strata/internal/product"
	"github.com/mbd888/strata/internal/testutil"
	"github.com/mbd888/strata/internal/user"
)

func newProduct(id, name string, price float64) *product.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &product.Product{
		ID:        id,
		Name:      name,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresStorage_ProvisionAndIsolation(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	storage := NewPostgresStorage(db)
	ctx := context.Background()

	for _, id := range []string{"acme", "globex"} {
		if err := storage.Provision(ctx, id); err != nil {
			t.Fatalf("provision %s: %v", id, err)
		}
	}
	// Provision is idempotent.
	if err := storage.Provision(ctx, "acme"); err != nil {
		t.Fatalf("re-provision: %v", err)
	}

	acme, err := storage.Products("acme")
	if err != nil {
		t.Fatalf("acme products: %v", err)
	}
	globex, err := storage.Products("globex")
	if err != nil {
		t.Fatalf("globex products: %v", err)
	}

	if err := acme.Create(ctx, newProduct("prod_1", "Widget", 9.99)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := globex.Get(ctx, "prod_1"); !errors.Is(err, product.ErrNotFound) {
		t.Errorf("acme product visible in globex schema: %v", err)
	}
	acmeCount, err := acme.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	globexCount, err := globex.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if acmeCount != 1 || globexCount != 0 {
		t.Errorf("counts = %d/%d, want 1/0", acmeCount, globexCount)
	}
}

func TestPostgresStorage_ProductCRUDAndPagination(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	storage := NewPostgresStorage(db)
	ctx := context.Background()

	if err := storage.Provision(ctx, "acme"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	store, err := storage.Products("acme")
	if err != nil {
		t.Fatalf("products: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		p := newProduct(fmt.Sprintf("prod_%03d", i+1), "Item", float64(i))
		p.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		p.UpdatedAt = p.CreatedAt
		if err := store.Create(ctx, p); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	// limit+1 fetch for has_more detection
	page, err := store.List(ctx, nil, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 4 {
		t.Fatalf("page len = %d, want limit+1 = 4", len(page))
	}

	got, err := store.Get(ctx, "prod_001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Price = 42.5
	got.UpdatedAt = time.Now().UTC()
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	fresh, err := store.Get(ctx, "prod_001")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if fresh.Price != 42.5 {
		t.Errorf("price = %v, want 42.5", fresh.Price)
	}

	if err := store.Delete(ctx, "prod_001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "prod_001"); !errors.Is(err, product.ErrNotFound) {
		t.Errorf("second delete: %v, want ErrNotFound", err)
	}
}

func TestPostgresStorage_UserEmailUnique(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	storage := NewPostgresStorage(db)
	ctx := context.Background()

	if err := storage.Provision(ctx, "acme"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	store, err := storage.Users("acme")
	if err != nil {
		t.Fatalf("users: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	mk := func(id string) *user.User {
		return &user.User{
			ID: id, Name: "Ada", Email: "ada@example.com",
			PasswordHash: user.HashPassword("password123"),
			CreatedAt:    now, UpdatedAt: now,
		}
	}
	if err := store.Create(ctx, mk("usr_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, mk("usr_2")); !errors.Is(err, user.ErrEmailTaken) {
		t.Errorf("duplicate email: %v, want ErrEmailTaken", err)
	}
}

func TestPostgresStorage_Drop(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	storage := NewPostgresStorage(db)
	ctx := context.Background()

	if err := storage.Provision(ctx, "acme"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	store, _ := storage.Products("acme")
	if err := store.Create(ctx, newProduct("prod_1", "Widget", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := storage.Drop(ctx, "acme"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := storage.Drop(ctx, "acme"); !errors.Is(err, ErrNotProvisioned) {
		t.Errorf("second drop: %v, want ErrNotProvisioned", err)
	}

	// Re-provisioning yields an empty schema.
	if err := storage.Provision(ctx, "acme"); err != nil {
		t.Fatalf("re-provision: %v", err)
	}
	store, _ = storage.Products("acme")
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count after re-provision = %d, want 0", count)
	}
}
