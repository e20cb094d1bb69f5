package tenant

import "context"

// Store persists tenant records and their domain mappings.
// Implementations must enforce tenant ID and domain uniqueness atomically
// (unique constraints, not read-then-write checks).
type Store interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	Delete(ctx context.Context, id string) error
}
