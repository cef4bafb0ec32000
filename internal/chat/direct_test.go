package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansar30/pulse/internal/models"
)

func TestFindOrCreateDirectIsIdempotent(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tenant := uuid.New()
	alice := fx.store.addUser(tenant, "alice", models.TenantMember)
	bob := fx.store.addUser(tenant, "bob", models.TenantMember)

	first, err := fx.direct.FindOrCreate(ctx, tenant, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChannelDirect, first.Type)

	// Same pair in either order resolves to the same channel.
	again, err := fx.direct.FindOrCreate(ctx, tenant, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestDirectChannelHasExactlyTwoMembers(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tenant := uuid.New()
	alice := fx.store.addUser(tenant, "alice", models.TenantMember)
	bob := fx.store.addUser(tenant, "bob", models.TenantMember)

	dm, err := fx.direct.FindOrCreate(ctx, tenant, alice.ID, bob.ID)
	require.NoError(t, err)

	got, err := fx.directory.Get(ctx, tenant, dm.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 2)
	for _, m := range got.Members {
		// No OWNER distinction in a DM.
		assert.Equal(t, models.RoleMember, m.Role)
	}
}

func TestFindOrCreateDirectRejectsCrossTenant(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()
	carol := fx.store.addUser(tenantA, "carol", models.TenantMember)
	dave := fx.store.addUser(tenantB, "dave", models.TenantMember)

	_, err := fx.direct.FindOrCreate(ctx, tenantA, carol.ID, dave.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFindOrCreateDirectRejectsSelf(t *testing.T) {
	fx := newFixture()
	tenant := uuid.New()
	alice := fx.store.addUser(tenant, "alice", models.TenantMember)

	_, err := fx.direct.FindOrCreate(context.Background(), tenant, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrInvalid)
}

// TestFindOrCreateDirectUnderRace drives concurrent resolutions of the
// same pair through the store's uniqueness guard: every call must succeed
// and every call must land on the same single channel — the loser of the
// insert race recovers by lookup.
func TestFindOrCreateDirectUnderRace(t *testing.T) {
	fx := newFixture()
	tenant := uuid.New()
	alice := fx.store.addUser(tenant, "alice", models.TenantMember)
	bob := fx.store.addUser(tenant, "bob", models.TenantMember)

	const callers = 16
	results := make([]uuid.UUID, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			ch, err := fx.direct.FindOrCreate(context.Background(), tenant, a, b)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = ch.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	for _, id := range results[1:] {
		assert.Equal(t, results[0], id)
	}

	dms, err := fx.directory.ListDirect(context.Background(), tenant, alice.ID)
	require.NoError(t, err)
	assert.Len(t, dms, 1, "exactly one DIRECT channel for the pair")
}
