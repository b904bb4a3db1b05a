package zonecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogdns/internal/catalog"
	"catalogdns/internal/catalog/memstore"
)

func verifiedSpec(name string) catalog.Spec {
	return catalog.Spec{
		Name:        name,
		Address:     "203.0.113.7",
		MailHost:    "mail.{domain}",
		MXPriority:  10,
		Nameservers: []string{"ns1.host.test", "ns2.host.test"},
	}
}

func setupVerified(t *testing.T, store catalog.Store, name string) {
	t.Helper()
	ctx := context.Background()
	_, err := store.Upsert(ctx, verifiedSpec(name))
	require.NoError(t, err)
	_, err = store.SetLifecycle(ctx, name, catalog.Lifecycle{State: catalog.Verified, Timestamp: time.Now()}, ptr(time.Now()))
	require.NoError(t, err)
}

func ptr(t time.Time) *time.Time { return &t }

func TestCache_ReloadAllThenLookupApex(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "example.test")

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))

	entry, zone, ok := cache.Lookup("example.test")
	assert.True(t, ok)
	assert.Equal(t, "example.test", zone)
	assert.Equal(t, "mail.example.test", entry.MailHostExpanded)
}

func TestCache_LookupSubdomainReturnsApexZone(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "example.test")

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))

	_, zone, ok := cache.Lookup("www.example.test")
	assert.True(t, ok)
	assert.Equal(t, "example.test", zone)
}

func TestCache_LookupMissNoManagedSuffix(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "example.test")

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))

	_, _, ok := cache.Lookup("unmanaged.test")
	assert.False(t, ok)
}

func TestCache_PendingDomainIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, err := store.Upsert(ctx, verifiedSpec("pending.test"))
	require.NoError(t, err)

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))

	_, _, ok := cache.Lookup("pending.test")
	assert.False(t, ok, "a Pending domain must not be answerable")
}

func TestCache_RefreshAddsAndRemoves(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "example.test")

	cache := New()
	require.NoError(t, cache.Refresh(ctx, store, "example.test"))

	_, _, ok := cache.Lookup("example.test")
	assert.True(t, ok)

	_, err := store.Delete(ctx, "example.test")
	require.NoError(t, err)
	require.NoError(t, cache.Refresh(ctx, store, "example.test"))

	_, _, ok = cache.Lookup("example.test")
	assert.False(t, ok)
}

func TestCache_InvalidateWithoutStoreRead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "example.test")

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))
	cache.Invalidate("example.test")

	_, _, ok := cache.Lookup("example.test")
	assert.False(t, ok)
}

func TestCache_ReloadAllIsIdempotentOnQuiescentStore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "a.test")
	setupVerified(t, store, "b.test")

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))
	firstLen := cache.Len()
	require.NoError(t, cache.ReloadAll(ctx, store))
	assert.Equal(t, firstLen, cache.Len())
}

func TestCache_DoesNotConfuseSimilarLabelPrefixes(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setupVerified(t, store, "te.test")

	cache := New()
	require.NoError(t, cache.ReloadAll(ctx, store))

	// "test.test" is not a subdomain of "te.test" even though the
	// reversed byte keys ("test.te" vs "test.test") share a long
	// common byte prefix that is not a label boundary.
	_, _, ok := cache.Lookup("test.test")
	assert.False(t, ok)
}
