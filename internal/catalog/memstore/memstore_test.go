package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogdns/internal/catalog"
)

func TestStore_UpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := New()

	spec := catalog.Spec{
		Name:        "Example.Test.",
		Address:     "203.0.113.7",
		MailHost:    "mail.{domain}",
		MXPriority:  10,
		Nameservers: []string{"ns1.host.test"},
	}

	result, err := store.Upsert(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, catalog.Created, result)

	d, err := store.Get(ctx, "example.test")
	require.NoError(t, err)
	assert.Equal(t, "example.test", d.Name)
	assert.Equal(t, catalog.Pending, d.Lifecycle.State)
	assert.True(t, d.Enabled)
	assert.NotEmpty(t, d.ID)

	spec.Address = "203.0.113.9"
	result, err = store.Upsert(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, catalog.Updated, result)

	d2, err := store.Get(ctx, "example.test")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", d2.Address)
	assert.Equal(t, d.ID, d2.ID)
	assert.Equal(t, catalog.Pending, d2.Lifecycle.State, "upsert must never touch lifecycle")
}

func TestStore_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := New()
	spec := catalog.Spec{Name: "example.test", Address: "203.0.113.7"}

	_, err := store.Upsert(ctx, spec)
	require.NoError(t, err)
	before, err := store.Get(ctx, "example.test")
	require.NoError(t, err)

	_, err = store.Upsert(ctx, spec)
	require.NoError(t, err)
	after, err := store.Get(ctx, "example.test")
	require.NoError(t, err)

	assert.Equal(t, before.Lifecycle, after.Lifecycle)
	assert.Equal(t, before.Address, after.Address)
}

func TestStore_UpsertRejectsInvalidAddress(t *testing.T) {
	store := New()
	_, err := store.Upsert(context.Background(), catalog.Spec{Name: "example.test", Address: "not-an-ip"})
	assert.ErrorIs(t, err, catalog.ErrInvalidAddress)
}

func TestStore_GetNotFound(t *testing.T) {
	store := New()
	_, err := store.Get(context.Background(), "missing.test")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, _ = store.Upsert(ctx, catalog.Spec{Name: "example.test", Address: "203.0.113.7"})

	result, err := store.Delete(ctx, "example.test")
	require.NoError(t, err)
	assert.Equal(t, catalog.Existed, result)

	result, err = store.Delete(ctx, "example.test")
	require.NoError(t, err)
	assert.Equal(t, catalog.Absent, result)
}

func TestStore_ListActiveExcludesDisabledKillSwitch(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, _ = store.Upsert(ctx, catalog.Spec{Name: "a.test", Address: "203.0.113.1"})
	_, _ = store.Upsert(ctx, catalog.Spec{Name: "b.test", Address: "203.0.113.2"})
	require.NoError(t, store.SetEnabled(ctx, "b.test", false))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, "a.test", active[0].Name)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_SetLifecycleReturnsPreviousAndRejectsEmptyNameservers(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, _ = store.Upsert(ctx, catalog.Spec{Name: "example.test", Address: "203.0.113.7", Nameservers: []string{"ns1.host.test"}})

	now := time.Now().UTC()
	previous, err := store.SetLifecycle(ctx, "example.test", catalog.Lifecycle{State: catalog.Verified, Timestamp: now}, &now)
	require.NoError(t, err)
	assert.Equal(t, catalog.Pending, previous.State)

	d, err := store.Get(ctx, "example.test")
	require.NoError(t, err)
	assert.Equal(t, catalog.Verified, d.Lifecycle.State)
	assert.Equal(t, &now, d.LastVerifiedAt)

	// A fixture attempting to push a row to Verified with no
	// nameservers must be rejected at the store boundary.
	_, _ = store.Upsert(ctx, catalog.Spec{Name: "bare.test", Address: "203.0.113.8"})
	_, err = store.SetLifecycle(ctx, "bare.test", catalog.Lifecycle{State: catalog.Verified, Timestamp: now}, &now)
	assert.ErrorIs(t, err, catalog.ErrNameserversMissing)
}
