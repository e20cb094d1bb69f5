package user

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists users in one tenant's isolated schema.
type PostgresStore struct {
	db    *sql.DB
	table string // schema-qualified, pre-quoted table name
}

// NewPostgresStore creates a user store bound to a tenant schema.
func NewPostgresStore(db *sql.DB, schema string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		table: pq.QuoteIdentifier(schema) + ".users",
	}
}

func (p *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, p.table),
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM %s WHERE id = $1`, p.table), id)
	return scanUser(row)
}

func (p *PostgresStore) List(ctx context.Context) ([]*User, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM %s ORDER BY created_at, id`, p.table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, u *User) error {
	result, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET name = $1, email = $2, password_hash = $3, updated_at = $4
		WHERE id = $5`, p.table),
		u.Name, strings.ToLower(u.Email), u.PasswordHash, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return mapUniqueViolation(err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func mapUniqueViolation(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
