// Package sync is the Synchroniser: a periodic loop that reconciles the
// local catalogue against the upstream control-plane's canonical domain
// list. It owns every upstream-sourced field on catalog.Domain; it never
// touches Lifecycle, which belongs to the Verifier.
package synchroniser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"catalogdns/internal/catalog"
	"catalogdns/internal/config"
	"catalogdns/internal/upstream"
	"catalogdns/internal/zonecache"
)

// Synchroniser ticks on its own timer, independent of the Verifier.
type Synchroniser struct {
	interval time.Duration
	zone     config.ZoneDefaultsConfig
	upstream *upstream.Client
	store    catalog.Store
	cache    *zonecache.Cache
	log      *zap.Logger
}

// New returns a Synchroniser ready to Run.
func New(interval time.Duration, zone config.ZoneDefaultsConfig, client *upstream.Client, store catalog.Store, cache *zonecache.Cache, log *zap.Logger) *Synchroniser {
	return &Synchroniser{
		interval: interval,
		zone:     zone,
		upstream: client,
		store:    store,
		cache:    cache,
		log:      log,
	}
}

// Run blocks, ticking every interval until ctx is cancelled.
func (s *Synchroniser) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("synchroniser started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("synchroniser stopped")
			return nil
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				s.log.Warn("synchroniser: tick failed", zap.Error(err))
			}
		}
	}
}

// tick fetches the upstream set, reconciles the local catalogue against
// it, and reloads the Zone Cache. A failed fetch makes no local
// mutations: the function returns before touching the store.
func (s *Synchroniser) tick(ctx context.Context) error {
	records, err := s.upstream.Fetch(ctx)
	if err != nil {
		return err
	}
	if !s.upstream.Configured() {
		return nil
	}

	active := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if !rec.Active {
			continue
		}
		name := catalog.CanonicalizeName(rec.Domain)
		active[name] = struct{}{}

		spec := s.specFor(rec)
		if _, err := s.store.Upsert(ctx, spec); err != nil {
			s.log.Warn("synchroniser: upsert failed", zap.String("domain", name), zap.Error(err))
			continue
		}
	}

	existing, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, d := range existing {
		if _, ok := active[d.Name]; ok {
			continue
		}
		if !d.Enabled {
			continue
		}
		// Absent or inactive upstream: disable rather than delete, to
		// preserve lifecycle history.
		if err := s.store.SetEnabled(ctx, d.Name, false); err != nil {
			s.log.Warn("synchroniser: disable failed", zap.String("domain", d.Name), zap.Error(err))
			continue
		}
		s.cache.Invalidate(d.Name)
	}

	return s.cache.ReloadAll(ctx, s.store)
}

// specFor derives the DNS attributes the upstream record itself never
// carries (apex address, mail-host template, MX priority, nameservers)
// from deployment-wide policy, choosing the discord-flagged pool when the
// record asks for it.
func (s *Synchroniser) specFor(rec upstream.Record) catalog.Spec {
	address := s.zone.DefaultAddress
	mailHost := s.zone.MailHostTemplate
	if rec.Discord {
		address = s.zone.DiscordAddress
		if s.zone.DiscordMailHostSuffix != "" {
			mailHost = mailHost + "." + s.zone.DiscordMailHostSuffix
		}
	}

	return catalog.Spec{
		Name:        catalog.CanonicalizeName(rec.Domain),
		Address:     address,
		MailHost:    mailHost,
		MXPriority:  s.zone.MXPriority,
		Nameservers: append([]string(nil), s.zone.Nameservers...),
		Discord:     rec.Discord,
	}
}
