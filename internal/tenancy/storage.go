package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/mbd888/strata/internal/logging"
	"github.com/mbd888/strata/internal/metrics"
	"github.com/mbd888/strata/internal/product"
	"github.com/mbd888/strata/internal/user"
)

// ErrNotProvisioned is returned when a tenant's isolated store does not exist.
var ErrNotProvisioned = errors.New("tenancy: tenant store not provisioned")

// Storage manages the lifecycle of per-tenant isolated stores and hands out
// the stores bound to a given tenant.
type Storage interface {
	Provision(ctx context.Context, tenantID string) error
	Drop(ctx context.Context, tenantID string) error
	Products(tenantID string) (product.Store, error)
	Users(tenantID string) (user.Store, error)
}

// MemoryStorage keeps one in-memory store pair per tenant.
type MemoryStorage struct {
	mu      sync.RWMutex
	tenants map[string]*memoryStores
}

type memoryStores struct {
	products *product.MemoryStore
	users    *user.MemoryStore
}

// NewMemoryStorage creates an empty in-memory storage manager.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tenants: make(map[string]*memoryStores)}
}

// Provision creates the tenant's store pair. Idempotent.
func (s *MemoryStorage) Provision(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; ok {
		return nil
	}
	s.tenants[tenantID] = &memoryStores{
		products: product.NewMemoryStore(),
		users:    user.NewMemoryStore(),
	}
	metrics.ProvisionedTenants.Inc()
	return nil
}

// Drop discards the tenant's stores and everything in them.
func (s *MemoryStorage) Drop(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return ErrNotProvisioned
	}
	delete(s.tenants, tenantID)
	metrics.ProvisionedTenants.Dec()
	return nil
}

func (s *MemoryStorage) get(tenantID string) (*memoryStores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.tenants[tenantID]
	if !ok {
		return nil, ErrNotProvisioned
	}
	return st, nil
}

// Products returns the tenant's product store.
func (s *MemoryStorage) Products(tenantID string) (product.Store, error) {
	st, err := s.get(tenantID)
	if err != nil {
		return nil, err
	}
	return st.products, nil
}

// Users returns the tenant's user store.
func (s *MemoryStorage) Users(tenantID string) (user.Store, error) {
	st, err := s.get(tenantID)
	if err != nil {
		return nil, err
	}
	return st.users, nil
}

// PostgresStorage gives each tenant its own schema in a shared database.
// The central registry lives in public; tenant data never does.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a schema-per-tenant storage manager.
func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// SchemaName returns the schema holding a tenant's data.
func SchemaName(tenantID string) string {
	return "tenant_" + tenantID
}

// Provision creates the tenant schema and its tables. Idempotent.
func (s *PostgresStorage) Provision(ctx context.Context, tenantID string) error {
	schema := pq.QuoteIdentifier(SchemaName(tenantID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning provision tx: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS products_created_at_idx ON %s.products (created_at, id)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT users_email_key UNIQUE (email)
		)`, schema),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("provisioning schema for tenant %s: %w", tenantID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing provision tx: %w", err)
	}

	metrics.ProvisionedTenants.Inc()
	logging.L(ctx).Info("tenant schema provisioned", "tenant_id", tenantID, "schema", SchemaName(tenantID))
	return nil
}

// Drop destroys the tenant schema and all data in it.
func (s *PostgresStorage) Drop(ctx context.Context, tenantID string) error {
	schema := pq.QuoteIdentifier(SchemaName(tenantID))

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		SchemaName(tenantID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking schema for tenant %s: %w", tenantID, err)
	}
	if !exists {
		return ErrNotProvisioned
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA %s CASCADE`, schema)); err != nil {
		return fmt.Errorf("dropping schema for tenant %s: %w", tenantID, err)
	}

	metrics.ProvisionedTenants.Dec()
	logging.L(ctx).Warn("tenant schema dropped", "tenant_id", tenantID, "schema", SchemaName(tenantID))
	return nil
}

// Products returns a product store bound to the tenant's schema.
func (s *PostgresStorage) Products(tenantID string) (product.Store, error) {
	return product.NewPostgresStore(s.db, SchemaName(tenantID)), nil
}

// Users returns a user store bound to the tenant's schema.
func (s *PostgresStorage) Users(tenantID string) (user.Store, error) {
	return user.NewPostgresStore(s.db, SchemaName(tenantID)), nil
}
