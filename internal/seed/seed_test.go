package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/strata/internal/tenancy"
)

func TestSeedTenant(t *testing.T) {
	storage := tenancy.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, storage.Provision(ctx, "acme"))

	s := New(storage)
	require.NoError(t, s.SeedTenant(ctx, "acme"))

	products, err := storage.Products("acme")
	require.NoError(t, err)
	count, err := products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	users, err := storage.Users("acme")
	require.NoError(t, err)
	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, u := range list {
		assert.NotEmpty(t, u.PasswordHash)
		assert.NotEmpty(t, u.Email)
	}
}

func TestSeedTenant_NotProvisioned(t *testing.T) {
	s := New(tenancy.NewMemoryStorage())
	err := s.SeedTenant(context.Background(), "ghost")
	assert.ErrorIs(t, err, tenancy.ErrNotProvisioned)
}
