package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenant(id string, domains ...string) *Tenant {
	t := &Tenant{ID: id, Domains: domains, Data: map[string]any{}}
	t.SetPlan(PlanFree)
	return t
}

func TestPlanAccessors(t *testing.T) {
	tn := &Tenant{}
	assert.Equal(t, Plan(""), tn.Plan())

	tn.SetPlan(PlanPremium)
	assert.Equal(t, PlanPremium, tn.Plan())

	assert.True(t, ValidPlan(PlanEnterprise))
	assert.False(t, ValidPlan(Plan("gold")))
}

func TestStripeCustomerID(t *testing.T) {
	tn := &Tenant{}
	assert.Empty(t, tn.StripeCustomerID())

	tn.SetStripeCustomerID("cus_123")
	assert.Equal(t, "cus_123", tn.StripeCustomerID())
}

func TestMergeData(t *testing.T) {
	tn := newTenant("acme")
	tn.Data["color"] = "blue"

	tn.MergeData(map[string]any{"color": "red", "size": "large"})

	assert.Equal(t, "red", tn.Data["color"])
	assert.Equal(t, "large", tn.Data["size"])
	assert.Equal(t, string(PlanFree), tn.Data[DataKeyPlan])
}

func TestClone_Independent(t *testing.T) {
	tn := newTenant("acme", "acme.example.com")
	cp := tn.Clone()

	cp.Domains[0] = "other.example.com"
	cp.Data["k"] = "v"

	assert.Equal(t, "acme.example.com", tn.Domains[0])
	assert.NotContains(t, tn.Data, "k")
}

// ---------------------------------------------------------------------------
// Memory store
// ---------------------------------------------------------------------------

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "acme.example.com")))

	got, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ID)
	assert.Equal(t, []string{"acme.example.com"}, got.Domains)
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "acme.example.com")))

	err := store.Create(ctx, newTenant("acme", "other.example.com"))
	assert.ErrorIs(t, err, ErrIDTaken)

	// Registry unchanged: the duplicate's domain was not claimed
	_, err = store.GetByDomain(ctx, "other.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DuplicateDomain(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "shared.example.com")))

	err := store.Create(ctx, newTenant("globex", "shared.example.com"))
	assert.ErrorIs(t, err, ErrDomainTaken)

	_, err = store.Get(ctx, "globex")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetByDomain(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "a.example.com", "b.example.com")))

	for _, d := range []string{"a.example.com", "b.example.com"} {
		got, err := store.GetByDomain(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, "acme", got.ID)
	}

	_, err := store.GetByDomain(ctx, "c.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateRemapsDomains(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "old.example.com")))

	tn, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	tn.Domains = []string{"new.example.com"}
	require.NoError(t, store.Update(ctx, tn))

	_, err = store.GetByDomain(ctx, "old.example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := store.GetByDomain(ctx, "new.example.com")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ID)
}

func TestMemoryStore_UpdateRejectsForeignDomain(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "acme.example.com")))
	require.NoError(t, store.Create(ctx, newTenant("globex", "globex.example.com")))

	tn, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	tn.Domains = append(tn.Domains, "globex.example.com")

	err = store.Update(ctx, tn)
	assert.ErrorIs(t, err, ErrDomainTaken)

	// acme's original mapping is intact
	got, err := store.GetByDomain(ctx, "acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ID)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "acme.example.com")))
	require.NoError(t, store.Delete(ctx, "acme"))

	_, err := store.Get(ctx, "acme")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetByDomain(ctx, "acme.example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "acme"), ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "acme.example.com")))
	require.NoError(t, store.Create(ctx, newTenant("globex", "globex.example.com")))

	tenants, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTenant("acme", "acme.example.com")))

	got, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	got.Data["mutated"] = true

	fresh, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.NotContains(t, fresh.Data, "mutated")
}
