package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists tenants in the central PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed tenant registry.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, t *Tenant) error {
	dataJSON, err := json.Marshal(t.Data)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tenants (id, data, has_database, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, dataJSON, t.HasDatabase, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}

	for _, d := range t.Domains {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO domains (domain, tenant_id, created_at)
			VALUES ($1, $2, $3)`,
			d, t.ID, t.CreatedAt,
		)
		if err != nil {
			return mapUniqueViolation(err)
		}
	}

	return tx.Commit()
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT t.id, t.data, t.has_database, t.created_at, t.updated_at,
		       COALESCE(array_agg(d.domain ORDER BY d.created_at, d.domain)
		                FILTER (WHERE d.domain IS NOT NULL), '{}')
		FROM tenants t
		LEFT JOIN domains d ON d.tenant_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`, id))
}

func (p *PostgresStore) GetByDomain(ctx context.Context, domain string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT t.id, t.data, t.has_database, t.created_at, t.updated_at,
		       COALESCE(array_agg(d.domain ORDER BY d.created_at, d.domain)
		                FILTER (WHERE d.domain IS NOT NULL), '{}')
		FROM tenants t
		LEFT JOIN domains d ON d.tenant_id = t.id
		WHERE t.id = (SELECT tenant_id FROM domains WHERE domain = $1)
		GROUP BY t.id`, domain))
}

func (p *PostgresStore) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.id, t.data, t.has_database, t.created_at, t.updated_at,
		       COALESCE(array_agg(d.domain ORDER BY d.created_at, d.domain)
		                FILTER (WHERE d.domain IS NOT NULL), '{}')
		FROM tenants t
		LEFT JOIN domains d ON d.tenant_id = t.id
		GROUP BY t.id
		ORDER BY t.created_at`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenantRow(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, t *Tenant) error {
	dataJSON, err := json.Marshal(t.Data)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE tenants SET data = $1, has_database = $2, updated_at = $3
		WHERE id = $4`,
		dataJSON, t.HasDatabase, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	// Replace the domain set. The unique constraint still guards against
	// claiming a domain owned by another tenant.
	if _, err := tx.ExecContext(ctx, `DELETE FROM domains WHERE tenant_id = $1`, t.ID); err != nil {
		return err
	}
	for _, d := range t.Domains {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO domains (domain, tenant_id, created_at)
			VALUES ($1, $2, $3)`,
			d, t.ID, t.UpdatedAt,
		)
		if err != nil {
			return mapUniqueViolation(err)
		}
	}

	return tx.Commit()
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	// Domain mappings go with the tenant via ON DELETE CASCADE.
	result, err := p.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanTenant(row *sql.Row) (*Tenant, error) {
	t, err := scanTenantRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func scanTenantRow(row rowScanner) (*Tenant, error) {
	t := &Tenant{}
	var (
		dataJSON []byte
		domains  pq.StringArray
	)
	if err := row.Scan(&t.ID, &dataJSON, &t.HasDatabase, &t.CreatedAt, &t.UpdatedAt, &domains); err != nil {
		return nil, err
	}
	t.Domains = []string(domains)
	t.Data = make(map[string]any)
	if len(dataJSON) > 0 {
		_ = json.Unmarshal(dataJSON, &t.Data)
	}
	return t, nil
}

// mapUniqueViolation turns Postgres unique-constraint errors into the
// registry's sentinel errors. Constraint names come from the migrations.
func mapUniqueViolation(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return err
	}
	if strings.Contains(pqErr.Constraint, "domain") {
		return ErrDomainTaken
	}
	return ErrIDTaken
}

// Migrate creates the central registry tables (used in dev/test; prod uses
// migration files).
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id           TEXT PRIMARY KEY,
			data         JSONB NOT NULL DEFAULT '{}',
			has_database BOOLEAN NOT NULL DEFAULT TRUE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS domains (
			domain     TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_domains_tenant ON domains(tenant_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate tenants: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
