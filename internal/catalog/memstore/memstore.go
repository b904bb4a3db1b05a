// Package memstore is an in-memory implementation of catalog.Store used
// for tests and for a dependency-free dev mode.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"catalogdns/internal/catalog"
)

// Store holds every managed domain in a map guarded by a single mutex.
// The catalogue is expected to stay small (tens of thousands of rows at
// most), so a map plus mutex outperforms anything more elaborate here.
type Store struct {
	mu      sync.RWMutex
	domains map[string]*catalog.Domain
}

// New returns an empty Store.
func New() *Store {
	return &Store{domains: make(map[string]*catalog.Domain)}
}

func (s *Store) Upsert(ctx context.Context, spec catalog.Spec) (catalog.UpsertResult, error) {
	if err := catalog.ValidateSpec(spec); err != nil {
		return 0, err
	}
	name := catalog.CanonicalizeName(spec.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.domains[name]
	if !ok {
		d := &catalog.Domain{
			ID:          uuid.NewString(),
			Name:        name,
			Address:     spec.Address,
			MailHost:    spec.MailHost,
			MXPriority:  spec.MXPriority,
			Nameservers: append([]string(nil), spec.Nameservers...),
			Lifecycle:   catalog.Lifecycle{State: catalog.Pending},
			Enabled:     true,
			Discord:     spec.Discord,
			Description: spec.Description,
			Tags:        append([]string(nil), spec.Tags...),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.domains[name] = d
		return catalog.Created, nil
	}

	// Only upstream-sourced fields are touched; Lifecycle is owned by the Verifier.
	existing.Address = spec.Address
	existing.MailHost = spec.MailHost
	existing.MXPriority = spec.MXPriority
	existing.Nameservers = append([]string(nil), spec.Nameservers...)
	existing.Discord = spec.Discord
	existing.Description = spec.Description
	existing.Tags = append([]string(nil), spec.Tags...)
	existing.UpdatedAt = now
	return catalog.Updated, nil
}

func (s *Store) Delete(ctx context.Context, name string) (catalog.DeleteResult, error) {
	name = catalog.CanonicalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[name]; !ok {
		return catalog.Absent, nil
	}
	delete(s.domains, name)
	return catalog.Existed, nil
}

func (s *Store) Get(ctx context.Context, name string) (*catalog.Domain, error) {
	name = catalog.CanonicalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[name]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (s *Store) ListActive(ctx context.Context) ([]*catalog.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*catalog.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		if !d.Enabled {
			continue
		}
		clone := *d
		out = append(out, &clone)
	}
	return out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*catalog.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*catalog.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		clone := *d
		out = append(out, &clone)
	}
	return out, nil
}

func (s *Store) SetEnabled(ctx context.Context, name string, enabled bool) error {
	name = catalog.CanonicalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[name]
	if !ok {
		return catalog.ErrNotFound
	}
	d.Enabled = enabled
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetLifecycle(ctx context.Context, name string, next catalog.Lifecycle, lastVerifiedAt *time.Time) (catalog.Lifecycle, error) {
	name = catalog.CanonicalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[name]
	if !ok {
		return catalog.Lifecycle{}, catalog.ErrNotFound
	}
	if err := catalog.ValidateNameservers(d.Nameservers, next.State); err != nil {
		return catalog.Lifecycle{}, err
	}

	previous := d.Lifecycle
	d.Lifecycle = next
	if lastVerifiedAt != nil {
		d.LastVerifiedAt = lastVerifiedAt
	}
	d.UpdatedAt = time.Now().UTC()
	return previous, nil
}
