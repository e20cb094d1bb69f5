package product

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/mbd888/strata/internal/pagination"
)

// PostgresStore persists products in one tenant's isolated schema.
// The schema is created by the tenancy storage manager at provision time.
type PostgresStore struct {
	db    *sql.DB
	table string // schema-qualified, pre-quoted table name
}

// NewPostgresStore creates a product store bound to a tenant schema.
func NewPostgresStore(db *sql.DB, schema string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		table: pq.QuoteIdentifier(schema) + ".products",
	}
}

func (p *PostgresStore) Create(ctx context.Context, prod *Product) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, name, price, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, p.table),
		prod.ID, prod.Name, prod.Price, prod.Description, prod.CreatedAt, prod.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Product, error) {
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, price, description, created_at, updated_at
		FROM %s WHERE id = $1`, p.table), id)
	return scanProduct(row)
}

func (p *PostgresStore) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*Product, error) {
	query := fmt.Sprintf(`
		SELECT id, name, price, description, created_at, updated_at
		FROM %s`, p.table)
	var args []any
	if cursor != nil {
		query += ` WHERE (created_at, id) > ($1, $2)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY created_at, id`
	if limit > 0 {
		// limit+1 so the handler can compute has_more
		query += fmt.Sprintf(` LIMIT %d`, limit+1)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []*Product
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, prod)
	}
	return products, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, prod *Product) error {
	result, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET name = $1, price = $2, description = $3, updated_at = $4
		WHERE id = $5`, p.table),
		prod.Name, prod.Price, prod.Description, prod.UpdatedAt, prod.ID,
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
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.table), id)
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

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table)).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	prod := &Product{}
	var description sql.NullString
	err := row.Scan(&prod.ID, &prod.Name, &prod.Price, &description, &prod.CreatedAt, &prod.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if description.Valid {
		prod.Description = description.String
	}
	return prod, nil
}

var _ Store = (*PostgresStore)(nil)
