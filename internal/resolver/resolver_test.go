package resolver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogdns/internal/catalog"
	"catalogdns/internal/catalog/memstore"
	"catalogdns/internal/zonecache"
)

func buildCache(t *testing.T, spec catalog.Spec, state catalog.LifecycleState) *zonecache.Cache {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	_, err := store.Upsert(ctx, spec)
	require.NoError(t, err)
	if state != catalog.Pending {
		now := time.Now().UTC()
		_, err = store.SetLifecycle(ctx, spec.Name, catalog.Lifecycle{State: state, Timestamp: now}, &now)
		require.NoError(t, err)
	}
	cache := zonecache.New()
	require.NoError(t, cache.ReloadAll(ctx, store))
	return cache
}

func question(name string, qtype uint16) *dns.Msg {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), qtype)
	return req
}

// Scenario 1: Apex A.
func TestRespond_ApexA(t *testing.T) {
	cache := buildCache(t, catalog.Spec{
		Name: "example.test", Address: "203.0.113.7",
		Nameservers: []string{"ns1.h.test", "ns2.h.test"},
	}, catalog.Verified)

	r := New(cache, 300)
	req := question("example.test", dns.TypeA)
	resp := r.Respond(req, false)

	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
	assert.True(t, resp.Authoritative)
	require.Len(t, resp.Answer, 1)
	a, ok := resp.Answer[0].(*dns.A)
	require.True(t, ok)
	assert.Equal(t, "example.test.", a.Hdr.Name)
	assert.Equal(t, uint32(300), a.Hdr.Ttl)
	assert.Equal(t, "203.0.113.7", a.A.String())
}

// Scenario 2: Subdomain NXDOMAIN.
func TestRespond_SubdomainNXDOMAIN(t *testing.T) {
	cache := buildCache(t, catalog.Spec{
		Name: "example.test", Address: "203.0.113.7",
		Nameservers: []string{"ns1.h.test", "ns2.h.test"},
	}, catalog.Verified)

	r := New(cache, 300)
	req := question("www.example.test", dns.TypeA)
	resp := r.Respond(req, false)

	assert.Equal(t, dns.RcodeNameError, resp.Rcode)
	assert.True(t, resp.Authoritative)
	assert.Empty(t, resp.Answer)
	require.Len(t, resp.Ns, 1)
	_, ok := resp.Ns[0].(*dns.SOA)
	assert.True(t, ok)
}

// Scenario 3: MX with template.
func TestRespond_MXWithTemplate(t *testing.T) {
	cache := buildCache(t, catalog.Spec{
		Name: "example.test", Address: "203.0.113.7",
		MailHost: "mail.{domain}", MXPriority: 10,
		Nameservers: []string{"ns1.h.test"},
	}, catalog.Verified)

	r := New(cache, 300)
	req := question("example.test", dns.TypeMX)
	resp := r.Respond(req, false)

	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
	require.Len(t, resp.Answer, 1)
	mx, ok := resp.Answer[0].(*dns.MX)
	require.True(t, ok)
	assert.Equal(t, uint16(10), mx.Preference)
	assert.Equal(t, "mail.example.test.", mx.Mx)
}

// Scenario 4: Pending domain is REFUSED.
func TestRespond_PendingDomainRefused(t *testing.T) {
	cache := buildCache(t, catalog.Spec{Name: "new.test", Address: "203.0.113.9"}, catalog.Pending)

	r := New(cache, 300)
	req := question("new.test", dns.TypeA)
	resp := r.Respond(req, false)

	assert.Equal(t, dns.RcodeRefused, resp.Rcode)
	assert.False(t, resp.Authoritative)
}

// Scenario 5: Grace still answers authoritatively; Disabled answers REFUSED.
func TestRespond_GraceStillAnswersThenDisabledRefuses(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, err := store.Upsert(ctx, catalog.Spec{
		Name: "ex.test", Address: "203.0.113.1", Nameservers: []string{"ns1.h.test"},
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = store.SetLifecycle(ctx, "ex.test", catalog.Lifecycle{State: catalog.Verified, Timestamp: now}, &now)
	require.NoError(t, err)

	graceStart := now
	_, err = store.SetLifecycle(ctx, "ex.test", catalog.Lifecycle{State: catalog.Grace, Timestamp: graceStart}, nil)
	require.NoError(t, err)

	cache := zonecache.New()
	require.NoError(t, cache.ReloadAll(ctx, store))
	r := New(cache, 300)

	resp := r.Respond(question("ex.test", dns.TypeA), false)
	assert.Equal(t, dns.RcodeSuccess, resp.Rcode, "still answerable during Grace")

	_, err = store.SetLifecycle(ctx, "ex.test", catalog.Lifecycle{State: catalog.Disabled, Timestamp: graceStart.Add(73 * time.Hour)}, nil)
	require.NoError(t, err)
	require.NoError(t, cache.Refresh(ctx, store, "ex.test"))

	resp = r.Respond(question("ex.test", dns.TypeA), false)
	assert.Equal(t, dns.RcodeRefused, resp.Rcode, "Disabled must answer REFUSED")
}

// Scenario 6: UDP truncation with an artificially large NS set; TCP gets the full set.
func TestRespond_UDPTruncationThenTCPFull(t *testing.T) {
	nameservers := make([]string, 20)
	for i := range nameservers {
		nameservers[i] = fmt.Sprintf("ns%02d.example-hosting-nameservers-%02d.test", i, i)
	}
	cache := buildCache(t, catalog.Spec{
		Name: "z.test", Address: "203.0.113.5", Nameservers: nameservers,
	}, catalog.Verified)

	r := New(cache, 300)

	udpResp := r.Respond(question("z.test", dns.TypeNS), false)
	packed, err := udpResp.Pack()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(packed), maxUDPSize)
	assert.True(t, udpResp.Truncated)
	assert.Less(t, len(udpResp.Answer), 20)

	tcpResp := r.Respond(question("z.test", dns.TypeNS), true)
	assert.False(t, tcpResp.Truncated)
	assert.Len(t, tcpResp.Answer, 20)
}

func TestRespond_FORMERROnMultiQuestion(t *testing.T) {
	cache := buildCache(t, catalog.Spec{Name: "example.test", Address: "203.0.113.7", Nameservers: []string{"ns1.h.test"}}, catalog.Verified)
	r := New(cache, 300)

	req := question("example.test", dns.TypeA)
	req.Question = append(req.Question, req.Question[0])
	resp := r.Respond(req, false)
	assert.Equal(t, dns.RcodeFormatError, resp.Rcode)
}

func TestRespond_REFUSEDForUnmanagedSuffix(t *testing.T) {
	cache := buildCache(t, catalog.Spec{Name: "example.test", Address: "203.0.113.7", Nameservers: []string{"ns1.h.test"}}, catalog.Verified)
	r := New(cache, 300)

	resp := r.Respond(question("unmanaged.test", dns.TypeA), false)
	assert.Equal(t, dns.RcodeRefused, resp.Rcode)
}
