// Package zonecache is the in-memory, read-mostly index the query path
// reads without touching the Catalogue Store. It is a
// github.com/hashicorp/go-immutable-radix tree, the same library
// DNSCrypt-dnscrypt-proxy uses for its allow/block prefix sets, keyed
// by the reversed-label form of the canonicalised domain name so that
// tree locality matches zone locality (a zone and all its subdomains
// sort together). The tree pointer lives behind a single
// atomic.Pointer; writers build a new snapshot and swap it in, so
// readers never block on a writer and never observe a torn entry.
package zonecache

import (
	"context"
	"strings"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"

	"catalogdns/internal/catalog"
)

// Entry is the derived projection the Responder reads: it holds no
// lifecycle beyond Answerable.
type Entry struct {
	Name              string
	Address           string
	MailHostExpanded  string
	MXPriority        uint16
	Nameservers       []string
	Answerable        bool
	UpdatedAtUnix     int64
}

// Cache holds the current snapshot behind a single atomic pointer.
// Readers call Load once per query and never block on a writer.
type Cache struct {
	tree atomic.Pointer[iradix.Tree]
}

// New returns an empty Cache.
func New() *Cache {
	c := &Cache{}
	c.tree.Store(iradix.New())
	return c
}

// reverseKey turns "www.example.test" into the byte key for
// "test.example.www" — joining labels in reverse order — so that a
// suffix match on the original name becomes a prefix match on the key.
func reverseKey(name string) []byte {
	labels := strings.Split(name, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return []byte(strings.Join(labels, "."))
}

// Lookup returns the entry for the longest managed suffix of qname,
// along with that suffix's canonical name, or ok=false if qname falls
// under no managed zone.
//
// A raw iradix.LongestPrefix on the reversed key would answer the
// byte-level question, not the label-level one: it can return a match
// that splits a label in half (zone "te.test" is a byte-prefix of
// reversed "test.test" but not a real label suffix of it), and because
// LongestPrefix returns only the single longest candidate, there is no
// way to fall back to a shorter, valid match once the longest one is
// rejected. So this walks the label suffixes explicitly — at most a
// handful of exact Get calls, each against an immutable snapshot with
// no locking — from the full name down to the apex, returning on the
// first managed zone found.
func (c *Cache) Lookup(qname string) (entry Entry, zone string, ok bool) {
	qname = catalog.CanonicalizeName(qname)
	tree := c.tree.Load()

	labels := strings.Split(qname, ".")
	for start := 0; start < len(labels); start++ {
		candidate := strings.Join(labels[start:], ".")
		value, found := tree.Get(reverseKey(candidate))
		if found {
			e := value.(Entry)
			return e, e.Name, true
		}
	}
	return Entry{}, "", false
}

// Refresh reloads one entry from store for name, removing it from the
// cache if the store returns catalog.ErrNotFound or the row is not
// answerable.
func (c *Cache) Refresh(ctx context.Context, store catalog.Store, name string) error {
	name = catalog.CanonicalizeName(name)

	d, err := store.Get(ctx, name)
	if err != nil {
		if err == catalog.ErrNotFound {
			c.Invalidate(name)
			return nil
		}
		return err
	}

	if !d.Answerable() {
		c.Invalidate(name)
		return nil
	}

	entry := entryFromDomain(d)
	key := reverseKey(name)

	for {
		old := c.tree.Load()
		txn := old.Txn()
		txn.Insert(key, entry)
		updated := txn.Commit()
		if c.tree.CompareAndSwap(old, updated) {
			return nil
		}
	}
}

// Invalidate removes name without reading the store.
func (c *Cache) Invalidate(name string) {
	name = catalog.CanonicalizeName(name)
	key := reverseKey(name)

	for {
		old := c.tree.Load()
		txn := old.Txn()
		txn.Delete(key)
		updated := txn.Commit()
		if c.tree.CompareAndSwap(old, updated) {
			return
		}
	}
}

// ReloadAll builds an entirely new tree from store.ListActive and swaps
// it into place in a single atomic store. Two consecutive calls against
// a quiescent store yield identical snapshots.
func (c *Cache) ReloadAll(ctx context.Context, store catalog.Store) error {
	domains, err := store.ListActive(ctx)
	if err != nil {
		return err
	}

	fresh := iradix.New()
	txn := fresh.Txn()
	for _, d := range domains {
		if !d.Answerable() {
			continue
		}
		txn.Insert(reverseKey(d.Name), entryFromDomain(d))
	}
	c.tree.Store(txn.Commit())
	return nil
}

// Len reports the number of answerable zones currently cached, for stats reporting.
func (c *Cache) Len() int {
	return c.tree.Load().Len()
}

func entryFromDomain(d *catalog.Domain) Entry {
	return Entry{
		Name:             d.Name,
		Address:          d.Address,
		MailHostExpanded: expandMailHost(d.MailHost, d.Name),
		MXPriority:       d.MXPriority,
		Nameservers:      append([]string(nil), d.Nameservers...),
		Answerable:       d.Answerable(),
		UpdatedAtUnix:    d.UpdatedAt.Unix(),
	}
}

// expandMailHost substitutes the single recognised "{domain}" placeholder.
func expandMailHost(template, domain string) string {
	return strings.ReplaceAll(template, "{domain}", domain)
}
