// Package resolver is the stateless Responder: it turns one inbound DNS
// message into one outgoing DNS message by consulting the Zone Cache and
// nothing else. It performs no I/O beyond that lookup, so it never blocks
// the query path on the Catalogue Store.
package resolver

import (
	"net"
	"sync"

	"github.com/miekg/dns"

	"catalogdns/internal/zonecache"
)

// SOA policy constants, fixed per the response-construction rules.
const (
	soaRefresh = 3600
	soaRetry   = 600
	soaExpire  = 604800
)

// maxUDPSize is the wire-size ceiling this core advertises; EDNS0 is not
// supported, so every UDP response is bounded at the classic 512 bytes.
const maxUDPSize = 512

var msgPool = sync.Pool{
	New: func() interface{} { return new(dns.Msg) },
}

func getMsg() *dns.Msg { return msgPool.Get().(*dns.Msg) }

func putMsg(m *dns.Msg) {
	m.Id = 0
	m.Response = false
	m.Opcode = 0
	m.Authoritative = false
	m.Truncated = false
	m.RecursionDesired = false
	m.RecursionAvailable = false
	m.Rcode = 0
	m.Compress = false
	m.Question = m.Question[:0]
	m.Answer = m.Answer[:0]
	m.Ns = m.Ns[:0]
	m.Extra = m.Extra[:0]
	msgPool.Put(m)
}

// Responder answers DNS queries against a Zone Cache snapshot.
type Responder struct {
	cache *zonecache.Cache
	ttl   uint32
}

// New returns a Responder reading from cache and stamping ttl on every
// synthesized record.
func New(cache *zonecache.Cache, ttl uint32) *Responder {
	return &Responder{cache: cache, ttl: ttl}
}

// Respond implements the eight steps of the response-construction rules.
// tcp indicates whether the query arrived over a stream transport, which
// disables 512-byte truncation. The caller owns the returned message and
// must call Release once it has been written to the wire.
func (r *Responder) Respond(req *dns.Msg, tcp bool) *dns.Msg {
	resp := getMsg()
	resp.SetReply(req)
	resp.Compress = true
	resp.RecursionAvailable = false

	// 1. Header validation.
	if req.Response || len(req.Question) != 1 {
		resp.Rcode = dns.RcodeFormatError
		return resp
	}
	if req.Opcode != dns.OpcodeQuery {
		resp.Rcode = dns.RcodeNotImplemented
		return resp
	}
	q := req.Question[0]
	if q.Qclass != dns.ClassINET {
		resp.Rcode = dns.RcodeFormatError
		return resp
	}

	// 2. Zone match.
	entry, zone, ok := r.cache.Lookup(q.Name)
	if !ok {
		resp.Rcode = dns.RcodeRefused
		return resp
	}

	// 3. Authority.
	resp.Authoritative = true

	qname := dns.CanonicalName(q.Name)

	// 4. Name policy: subdomain of a managed zone gets NXDOMAIN + SOA.
	if qname != dns.Fqdn(zone) {
		resp.Rcode = dns.RcodeNameError
		resp.Ns = append(resp.Ns, soaRecord(entry, zone, r.ttl))
		return truncateIfNeeded(resp, tcp)
	}

	// 5. Type dispatch for qname == zone.
	switch q.Qtype {
	case dns.TypeA:
		resp.Answer = append(resp.Answer, aRecord(entry, zone, r.ttl))
	case dns.TypeMX:
		mx := mxRecord(entry, zone, r.ttl)
		resp.Answer = append(resp.Answer, mx)
		if glue := mailGlue(entry, zone, r.ttl); glue != nil {
			resp.Extra = append(resp.Extra, glue)
		}
	case dns.TypeNS:
		resp.Answer = append(resp.Answer, nsRecords(entry, zone, r.ttl)...)
	case dns.TypeSOA:
		resp.Answer = append(resp.Answer, soaRecord(entry, zone, r.ttl))
	case dns.TypeANY:
		resp.Answer = append(resp.Answer, aRecord(entry, zone, r.ttl))
		resp.Answer = append(resp.Answer, mxRecord(entry, zone, r.ttl))
		resp.Answer = append(resp.Answer, nsRecords(entry, zone, r.ttl)...)
		resp.Answer = append(resp.Answer, soaRecord(entry, zone, r.ttl))
	default:
		// CNAME and anything else: NODATA, NOERROR with SOA in authority.
		resp.Ns = append(resp.Ns, soaRecord(entry, zone, r.ttl))
	}

	return truncateIfNeeded(resp, tcp)
}

// Release returns resp to the pool. Callers must not touch resp afterward.
func (r *Responder) Release(resp *dns.Msg) { putMsg(resp) }

func aRecord(e zonecache.Entry, zone string, ttl uint32) dns.RR {
	return &dns.A{
		Hdr: dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   parseIPv4(e.Address),
	}
}

func mxRecord(e zonecache.Entry, zone string, ttl uint32) *dns.MX {
	return &dns.MX{
		Hdr:        dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: ttl},
		Preference: e.MXPriority,
		Mx:         dns.Fqdn(e.MailHostExpanded),
	}
}

// mailGlue supplies an A record for mail_host_expanded only when it is the
// zone apex itself. A subdomain of the zone is not resolvable from this
// cache (subdomain lookups return NXDOMAIN), so there is no address this
// function could answer for it other than a guess.
func mailGlue(e zonecache.Entry, zone string, ttl uint32) dns.RR {
	host := dns.CanonicalName(e.MailHostExpanded)
	if host != dns.Fqdn(zone) {
		return nil
	}
	return &dns.A{
		Hdr: dns.RR_Header{Name: host, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   parseIPv4(e.Address),
	}
}

func nsRecords(e zonecache.Entry, zone string, ttl uint32) []dns.RR {
	out := make([]dns.RR, 0, len(e.Nameservers))
	for _, ns := range e.Nameservers {
		out = append(out, &dns.NS{
			Hdr: dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: ttl},
			Ns:  dns.Fqdn(ns),
		})
	}
	return out
}

// soaRecord constructs the SOA record per the fixed policy constants; the
// mailbox is a conventional hostmaster@<zone> encoded per RFC1035 (the
// at-sign's dot replaced by a literal dot, so "hostmaster.<zone>.").
func soaRecord(e zonecache.Entry, zone string, ttl uint32) *dns.SOA {
	mname := dns.Fqdn(zone)
	if len(e.Nameservers) > 0 {
		mname = dns.Fqdn(e.Nameservers[0])
	}
	return &dns.SOA{
		Hdr:     dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: ttl},
		Ns:      mname,
		Mbox:    dns.Fqdn("hostmaster." + zone),
		Serial:  uint32(e.UpdatedAtUnix),
		Refresh: soaRefresh,
		Retry:   soaRetry,
		Expire:  soaExpire,
		Minttl:  ttl,
	}
}

func parseIPv4(addr string) net.IP {
	return net.ParseIP(addr).To4()
}

// truncateIfNeeded enforces the 512-byte UDP ceiling by dropping whole
// trailing answer RRs until the packed message fits; TCP is never
// truncated. Authority/additional sections are dropped first, then
// answers, in that order, since a negative/NODATA response's SOA matters
// less than a positive answer staying intact when both can't fit.
func truncateIfNeeded(resp *dns.Msg, tcp bool) *dns.Msg {
	if tcp {
		return resp
	}
	packed, err := resp.Pack()
	if err != nil || len(packed) <= maxUDPSize {
		return resp
	}

	resp.Truncated = true
	for len(resp.Extra) > 0 {
		resp.Extra = resp.Extra[:len(resp.Extra)-1]
		if packed, err = resp.Pack(); err == nil && len(packed) <= maxUDPSize {
			return resp
		}
	}
	for len(resp.Ns) > 0 {
		resp.Ns = resp.Ns[:len(resp.Ns)-1]
		if packed, err = resp.Pack(); err == nil && len(packed) <= maxUDPSize {
			return resp
		}
	}
	for len(resp.Answer) > 0 {
		resp.Answer = resp.Answer[:len(resp.Answer)-1]
		if packed, err = resp.Pack(); err == nil && len(packed) <= maxUDPSize {
			return resp
		}
	}
	return resp
}
