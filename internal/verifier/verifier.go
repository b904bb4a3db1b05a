// Package verifier runs the periodic NS-delegation check that drives
// the domain lifecycle state machine (Pending -> Verified -> Grace ->
// Disabled). It owns every write to catalog.Domain.Lifecycle; no other
// component demotes or promotes a domain.
package verifier

import (
	"context"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"catalogdns/internal/catalog"
	"catalogdns/internal/pool"
	"catalogdns/internal/zonecache"
)

// Config controls tick period, per-domain lookup bounds, and the grace window.
type Config struct {
	Interval       time.Duration
	LookupTimeout  time.Duration
	MaxRetries     int
	GracePeriod    time.Duration
	MaxConcurrency int64
	Resolvers      []string // recursive resolver addresses queried for NS, "host:port"
}

// Verifier ticks on its own timer and mutates the Catalogue Store.
type Verifier struct {
	cfg   Config
	store catalog.Store
	cache *zonecache.Cache
	log   *zap.Logger
	dns   *dns.Client
}

// New returns a Verifier ready to Run.
func New(cfg Config, store catalog.Store, cache *zonecache.Cache, log *zap.Logger) *Verifier {
	return &Verifier{
		cfg:   cfg,
		store: store,
		cache: cache,
		log:   log,
		dns:   &dns.Client{Timeout: cfg.LookupTimeout},
	}
}

// Run blocks, ticking every cfg.Interval until ctx is cancelled. Each tick
// runs at most one at a time; Run never starts a second tick while the
// previous one is still in flight.
func (v *Verifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.cfg.Interval)
	defer ticker.Stop()

	v.log.Info("verifier started", zap.Duration("interval", v.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			v.log.Info("verifier stopped")
			return nil
		case <-ticker.C:
			v.tick(ctx)
		}
	}
}

// tick enumerates enabled domains and checks each on a fixed worker
// pool, bounded by cfg.MaxConcurrency. One domain's failure never
// blocks another's.
func (v *Verifier) tick(ctx context.Context) {
	domains, err := v.store.ListActive(ctx)
	if err != nil {
		v.log.Warn("verifier: failed to list active domains", zap.Error(err))
		return
	}

	limit := int(v.cfg.MaxConcurrency)
	if limit <= 0 {
		limit = 16
	}

	workers := pool.NewWorkerPool(limit, len(domains))
	workers.Start(ctx)
	for _, d := range domains {
		d := d
		workers.Submit(func() { v.checkOne(ctx, d) })
	}
	workers.Stop()
}

// ForceVerify checks a single domain out-of-band and waits for its
// transition to settle, per the admin force_verify operation.
func (v *Verifier) ForceVerify(ctx context.Context, name string) error {
	d, err := v.store.Get(ctx, name)
	if err != nil {
		return err
	}
	v.checkOne(ctx, d)
	return nil
}

func (v *Verifier) checkOne(ctx context.Context, d *catalog.Domain) {
	observed, err := v.lookupNS(ctx, d.Name)
	now := time.Now().UTC()

	next, lastVerifiedAt := nextLifecycle(d.Lifecycle, observed, err, configuredSet(d.Nameservers), now, v.cfg.GracePeriod)
	if next == d.Lifecycle {
		return
	}

	previous, setErr := v.store.SetLifecycle(ctx, d.Name, next, lastVerifiedAt)
	if setErr != nil {
		v.log.Warn("verifier: failed to persist lifecycle transition",
			zap.String("domain", d.Name), zap.Error(setErr))
		return
	}

	v.log.Info("verifier: lifecycle transition",
		zap.String("domain", d.Name),
		zap.String("from", previous.State.String()),
		zap.String("to", next.State.String()))

	switch next.State {
	case catalog.Disabled:
		v.cache.Invalidate(d.Name)
	default:
		if err := v.cache.Refresh(ctx, v.store, d.Name); err != nil {
			v.log.Warn("verifier: cache refresh failed", zap.String("domain", d.Name), zap.Error(err))
		}
	}
}

// nextLifecycle applies the transition table from the state-machine
// design: errors never demote, a returning match from Grace clears
// since and returns directly to Verified, and Grace only expires to
// Disabled once the continuous mismatch window reaches gracePeriod.
func nextLifecycle(current catalog.Lifecycle, observed map[string]struct{}, lookupErr error, configured map[string]struct{}, now time.Time, gracePeriod time.Duration) (catalog.Lifecycle, *time.Time) {
	if lookupErr != nil {
		return current, nil
	}

	match := setsEqual(observed, configured)

	switch current.State {
	case catalog.Pending:
		if match {
			return catalog.Lifecycle{State: catalog.Verified, Timestamp: now}, &now
		}
		return current, nil

	case catalog.Verified:
		if match {
			return catalog.Lifecycle{State: catalog.Verified, Timestamp: now}, &now
		}
		if gracePeriod <= 0 {
			return catalog.Lifecycle{State: catalog.Disabled, Timestamp: now}, nil
		}
		return catalog.Lifecycle{State: catalog.Grace, Timestamp: now}, nil

	case catalog.Grace:
		if match {
			return catalog.Lifecycle{State: catalog.Verified, Timestamp: now}, &now
		}
		if now.Sub(current.Timestamp) >= gracePeriod {
			return catalog.Lifecycle{State: catalog.Disabled, Timestamp: now}, nil
		}
		return current, nil

	default: // Disabled: re-enable is an admin action, never the verifier.
		return current, nil
	}
}

func configuredSet(nameservers []string) map[string]struct{} {
	out := make(map[string]struct{}, len(nameservers))
	for _, ns := range nameservers {
		out[catalog.CanonicalizeName(ns)] = struct{}{}
	}
	return out
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// lookupNS issues an NS query for name against the configured recursive
// resolvers, retrying up to cfg.MaxRetries times and returning the set of
// lowercased, canonicalized nameserver names observed.
func (v *Verifier) lookupNS(ctx context.Context, name string) (map[string]struct{}, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeNS)
	msg.RecursionDesired = true

	var lastErr error
	attempts := v.cfg.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		for _, resolver := range v.resolvers() {
			lookupCtx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
			resp, _, err := v.dns.ExchangeContext(lookupCtx, msg, resolver)
			cancel()
			if err != nil {
				lastErr = err
				continue
			}
			return observedNames(resp), nil
		}
	}
	if lastErr == nil {
		lastErr = context.DeadlineExceeded
	}
	return nil, lastErr
}

func (v *Verifier) resolvers() []string {
	if len(v.cfg.Resolvers) > 0 {
		return v.cfg.Resolvers
	}
	return []string{"8.8.8.8:53"}
}

func observedNames(resp *dns.Msg) map[string]struct{} {
	out := make(map[string]struct{}, len(resp.Answer))
	for _, rr := range resp.Answer {
		ns, ok := rr.(*dns.NS)
		if !ok {
			continue
		}
		out[catalog.CanonicalizeName(ns.Ns)] = struct{}{}
	}
	return out
}

