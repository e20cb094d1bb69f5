// Package product provides the tenant-scoped product resource.
package product

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound = errors.New("product: not found")
)

// MaxNameLength bounds the product name.
const MaxNameLength = 20

// Product is a record owned by exactly one tenant's isolated store.
// It is never visible across tenant boundaries.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
