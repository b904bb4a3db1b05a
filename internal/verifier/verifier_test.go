package verifier

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"catalogdns/internal/catalog"
)

// sortedNames gives deterministic ordering when asserting observed/
// configured sets in table-driven cases below.
func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestNextLifecycle_PendingMatchPromotesToVerified(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test", "ns2.h.test"})
	observed := configuredSet([]string{"ns2.h.test", "ns1.h.test"})

	next, lastVerifiedAt := nextLifecycle(catalog.Lifecycle{State: catalog.Pending}, observed, nil, configured, now, time.Hour)
	assert.Equal(t, catalog.Verified, next.State)
	assert.Equal(t, &now, lastVerifiedAt)
}

func TestNextLifecycle_PendingMismatchStaysPending(t *testing.T) {
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"other.h.test"})

	next, lastVerifiedAt := nextLifecycle(catalog.Lifecycle{State: catalog.Pending}, observed, nil, configured, time.Now(), time.Hour)
	assert.Equal(t, catalog.Pending, next.State)
	assert.Nil(t, lastVerifiedAt)
}

func TestNextLifecycle_VerifiedMismatchDemotesToGrace(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"drifted.h.test"})

	current := catalog.Lifecycle{State: catalog.Verified, Timestamp: now.Add(-time.Hour)}
	next, lastVerifiedAt := nextLifecycle(current, observed, nil, configured, now, 72*time.Hour)
	assert.Equal(t, catalog.Grace, next.State)
	assert.Equal(t, now, next.Timestamp)
	assert.Nil(t, lastVerifiedAt)
}

func TestNextLifecycle_VerifiedQueryErrorNeverDemotes(t *testing.T) {
	current := catalog.Lifecycle{State: catalog.Verified, Timestamp: time.Now()}
	next, lastVerifiedAt := nextLifecycle(current, nil, assertErr, nil, time.Now(), time.Hour)
	assert.Equal(t, current, next)
	assert.Nil(t, lastVerifiedAt)
}

func TestNextLifecycle_GraceMatchReturnsToVerifiedAndClearsSince(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"ns1.h.test"})

	current := catalog.Lifecycle{State: catalog.Grace, Timestamp: now.Add(-time.Hour)}
	next, lastVerifiedAt := nextLifecycle(current, observed, nil, configured, now, 72*time.Hour)
	assert.Equal(t, catalog.Verified, next.State)
	assert.Equal(t, now, next.Timestamp)
	assert.Equal(t, &now, lastVerifiedAt)
}

func TestNextLifecycle_GraceMismatchWithinWindowStays(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"drifted.h.test"})

	since := now.Add(-time.Hour)
	current := catalog.Lifecycle{State: catalog.Grace, Timestamp: since}
	next, _ := nextLifecycle(current, observed, nil, configured, now, 72*time.Hour)
	assert.Equal(t, catalog.Grace, next.State)
	assert.Equal(t, since, next.Timestamp)
}

func TestNextLifecycle_GraceExpiryDisables(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"drifted.h.test"})

	since := now.Add(-73 * time.Hour)
	current := catalog.Lifecycle{State: catalog.Grace, Timestamp: since}
	next, _ := nextLifecycle(current, observed, nil, configured, now, 72*time.Hour)
	assert.Equal(t, catalog.Disabled, next.State)
}

func TestNextLifecycle_ZeroGracePeriodDisablesImmediately(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"drifted.h.test"})

	current := catalog.Lifecycle{State: catalog.Grace, Timestamp: now}
	next, _ := nextLifecycle(current, observed, nil, configured, now, 0)
	assert.Equal(t, catalog.Disabled, next.State)
}

func TestNextLifecycle_DisabledNeverSelfReEnables(t *testing.T) {
	now := time.Now().UTC()
	configured := configuredSet([]string{"ns1.h.test"})
	observed := configuredSet([]string{"ns1.h.test"})

	current := catalog.Lifecycle{State: catalog.Disabled, Timestamp: now.Add(-time.Hour)}
	next, _ := nextLifecycle(current, observed, nil, configured, now, 72*time.Hour)
	assert.Equal(t, current, next)
}

func TestSetsEqual_SubsetIsNotSufficient(t *testing.T) {
	configured := configuredSet([]string{"ns1.h.test", "ns2.h.test"})
	observed := configuredSet([]string{"ns1.h.test"})
	assert.False(t, setsEqual(observed, configured))
}

func TestConfiguredSet_CanonicalizesCase(t *testing.T) {
	set := configuredSet([]string{"NS1.H.Test."})
	assert.Equal(t, []string{"ns1.h.test"}, sortedNames(set))
}

var assertErr = errAlwaysFails{}

type errAlwaysFails struct{}

func (errAlwaysFails) Error() string { return "lookup failed" }
