package product

import (
	"context"

	"github.com/mbd888/strata/internal/pagination"
)

// Store persists products inside one tenant's isolated store.
// A Store instance is bound to a single tenant; the tenancy layer hands the
// right instance to each request.
type Store interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
