// Package admin implements the operations behind the administrative
// surface: health, stats, list, add, delete, force_verify. It is the
// only component besides the Synchroniser and Verifier
// allowed to mutate the Catalogue Store; every write here refreshes
// the Zone Cache before returning, so a caller's next query for the
// same name observes the change (read-your-writes).
package admin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalogdns/internal/catalog"
	"catalogdns/internal/monitoring"
	"catalogdns/internal/verifier"
	"catalogdns/internal/zonecache"
)

// Service is the backend for every administrative operation.
type Service struct {
	store    catalog.Store
	cache    *zonecache.Cache
	verifier *verifier.Verifier
	health   *monitoring.HealthChecker
	log      *zap.Logger
}

// New returns a Service wired to the running process's catalogue, cache
// and verifier.
func New(store catalog.Store, cache *zonecache.Cache, v *verifier.Verifier, health *monitoring.HealthChecker, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, verifier: v, health: health, log: log}
}

// AddRequest is the input to Add: the deployment-policy fields (address,
// mail host, nameservers, MX priority) are supplied by the caller rather
// than defaulted, since an admin-created domain has no upstream record
// to source them from.
type AddRequest struct {
	Name        string
	Address     string
	MailHost    string
	MXPriority  uint16
	Nameservers []string
	Discord     bool
	Description *string
	Tags        []string
}

// Add upserts a domain through the Catalogue Store and refreshes the
// Zone Cache before returning.
func (s *Service) Add(ctx context.Context, req AddRequest) (*catalog.Domain, catalog.UpsertResult, error) {
	spec := catalog.Spec{
		Name:        req.Name,
		Address:     req.Address,
		MailHost:    req.MailHost,
		MXPriority:  req.MXPriority,
		Nameservers: req.Nameservers,
		Discord:     req.Discord,
		Description: req.Description,
		Tags:        req.Tags,
	}

	result, err := s.store.Upsert(ctx, spec)
	if err != nil {
		return nil, 0, fmt.Errorf("admin: add: %w", err)
	}

	name := catalog.CanonicalizeName(req.Name)
	if err := s.cache.Refresh(ctx, s.store, name); err != nil {
		s.log.Warn("admin: cache refresh after add failed", zap.String("domain", name), zap.Error(err))
	}

	d, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, result, fmt.Errorf("admin: add: re-read: %w", err)
	}
	return d, result, nil
}

// Delete removes a domain and invalidates its cache entry.
func (s *Service) Delete(ctx context.Context, name string) (catalog.DeleteResult, error) {
	result, err := s.store.Delete(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("admin: delete: %w", err)
	}
	s.cache.Invalidate(name)
	return result, nil
}

// Get returns a single domain by name.
func (s *Service) Get(ctx context.Context, name string) (*catalog.Domain, error) {
	return s.store.Get(ctx, name)
}

// List returns every catalogued domain, active or not.
func (s *Service) List(ctx context.Context) ([]*catalog.Domain, error) {
	return s.store.ListAll(ctx)
}

// ForceVerify triggers an out-of-band verification of a single domain
// and blocks until its transition (if any) has settled.
func (s *Service) ForceVerify(ctx context.Context, name string) (*catalog.Domain, error) {
	if err := s.verifier.ForceVerify(ctx, name); err != nil {
		return nil, fmt.Errorf("admin: force_verify: %w", err)
	}
	return s.store.Get(ctx, name)
}

// Stats is the counts-per-lifecycle and cache-size snapshot returned by
// the `stats` operation.
type Stats struct {
	Pending       int       `json:"pending"`
	Verified      int       `json:"verified"`
	Grace         int       `json:"grace"`
	Disabled      int       `json:"disabled"`
	TotalDomains  int       `json:"total_domains"`
	ZoneCacheSize int       `json:"zone_cache_size"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Stats enumerates every catalogued domain and counts them by lifecycle
// state. It also reports the zone cache's current size, which may lag
// the store briefly between a mutation and its cache refresh.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	domains, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin: stats: %w", err)
	}

	stats := &Stats{ZoneCacheSize: s.cache.Len(), GeneratedAt: time.Now().UTC()}
	for _, d := range domains {
		switch d.Lifecycle.State {
		case catalog.Pending:
			stats.Pending++
		case catalog.Verified:
			stats.Verified++
		case catalog.Grace:
			stats.Grace++
		case catalog.Disabled:
			stats.Disabled++
		}
	}
	stats.TotalDomains = len(domains)
	return stats, nil
}

// Health runs the process's diagnostic probes.
func (s *Service) Health(ctx context.Context) *monitoring.HealthReport {
	return s.health.CheckHealth(ctx)
}
