package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalogdns/internal/catalog"
	"catalogdns/internal/catalog/memstore"
	"catalogdns/internal/monitoring"
	"catalogdns/internal/verifier"
	"catalogdns/internal/zonecache"
)

func newTestService(t *testing.T) (*Service, catalog.Store, *zonecache.Cache) {
	t.Helper()
	store := memstore.New()
	cache := zonecache.New()
	log := zap.NewNop()

	v := verifier.New(verifier.Config{
		Interval:       time.Minute,
		LookupTimeout:  time.Second,
		MaxRetries:     1,
		GracePeriod:    72 * time.Hour,
		MaxConcurrency: 4,
		Resolvers:      []string{"127.0.0.1:1"},
	}, store, cache, log)

	health := monitoring.NewHealthChecker(store, cache, log)

	return New(store, cache, v, health, log), store, cache
}

func TestService_AddCreatesAndRefreshesCache(t *testing.T) {
	ctx := context.Background()
	svc, _, cache := newTestService(t)

	d, result, err := svc.Add(ctx, AddRequest{
		Name:        "example.test",
		Address:     "203.0.113.7",
		MailHost:    "mail.example.test",
		MXPriority:  10,
		Nameservers: []string{"ns1.host.test"},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.Created, result)
	assert.Equal(t, "example.test", d.Name)
	assert.Equal(t, catalog.Pending, d.Lifecycle.State)

	// Pending domains are not answerable, so the cache must not hold an
	// entry for it yet.
	_, _, ok := cache.Lookup("example.test")
	assert.False(t, ok)
}

func TestService_AddThenUpdateReportsUpdated(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, result, err := svc.Add(ctx, AddRequest{Name: "example.test", Address: "203.0.113.7"})
	require.NoError(t, err)
	assert.Equal(t, catalog.Created, result)

	_, result, err = svc.Add(ctx, AddRequest{Name: "example.test", Address: "203.0.113.9"})
	require.NoError(t, err)
	assert.Equal(t, catalog.Updated, result)
}

func TestService_AddRejectsInvalidAddress(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, _, err := svc.Add(ctx, AddRequest{Name: "example.test", Address: "not-an-ip"})
	assert.Error(t, err)
	assert.True(t, catalog.IsValidationError(err))
}

func TestService_DeleteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc, store, cache := newTestService(t)

	_, _, err := svc.Add(ctx, AddRequest{Name: "example.test", Address: "203.0.113.7", Nameservers: []string{"ns1.host.test"}})
	require.NoError(t, err)

	_, err = store.SetLifecycle(ctx, "example.test", catalog.Lifecycle{State: catalog.Verified, Timestamp: time.Now().UTC()}, nil)
	require.NoError(t, err)
	require.NoError(t, cache.Refresh(ctx, store, "example.test"))

	_, _, ok := cache.Lookup("example.test")
	require.True(t, ok)

	result, err := svc.Delete(ctx, "example.test")
	require.NoError(t, err)
	assert.Equal(t, catalog.Existed, result)

	_, _, ok = cache.Lookup("example.test")
	assert.False(t, ok)
}

func TestService_DeleteReportsAbsentForUnknownDomain(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	result, err := svc.Delete(ctx, "missing.test")
	require.NoError(t, err)
	assert.Equal(t, catalog.Absent, result)
}

func TestService_StatsCountsByLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	_, _, err := svc.Add(ctx, AddRequest{Name: "pending.test", Address: "203.0.113.1"})
	require.NoError(t, err)

	_, _, err = svc.Add(ctx, AddRequest{Name: "verified.test", Address: "203.0.113.2", Nameservers: []string{"ns1.host.test"}})
	require.NoError(t, err)
	_, err = store.SetLifecycle(ctx, "verified.test", catalog.Lifecycle{State: catalog.Verified, Timestamp: time.Now().UTC()}, nil)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Verified)
	assert.Equal(t, 2, stats.TotalDomains)
}

func TestService_ListReturnsEveryDomain(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, _, err := svc.Add(ctx, AddRequest{Name: "one.test", Address: "203.0.113.1"})
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, AddRequest{Name: "two.test", Address: "203.0.113.2"})
	require.NoError(t, err)

	domains, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, domains, 2)
}
