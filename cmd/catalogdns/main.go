// Command catalogdns runs the authoritative DNS server: the UDP/TCP
// responder, the background Verifier and Synchroniser, and the
// administrative HTTP surface, all sharing one Catalogue Store and
// Zone Cache.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"catalogdns/internal/admin"
	"catalogdns/internal/catalog"
	"catalogdns/internal/catalog/memstore"
	"catalogdns/internal/catalog/sqlstore"
	"catalogdns/internal/config"
	"catalogdns/internal/health"
	"catalogdns/internal/listener"
	"catalogdns/internal/logger"
	"catalogdns/internal/monitoring"
	"catalogdns/internal/resolver"
	synchroniser "catalogdns/internal/sync"
	httptransport "catalogdns/internal/transport/http"
	"catalogdns/internal/upstream"
	"catalogdns/internal/verifier"
	"catalogdns/internal/zonecache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.FilePath,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting catalogdns",
		zap.String("dns_bind_addr", cfg.DNS.BindAddr),
		zap.String("admin_bind_addr", cfg.Admin.BindAddr),
		zap.String("catalogue_driver", cfg.Catalogue.Driver),
	)

	store, err := openCatalogue(cfg.Catalogue, log)
	if err != nil {
		log.Fatal("failed to open catalogue store", zap.Error(err))
	}

	cache := zonecache.New()

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := cache.ReloadAll(warmCtx, store); err != nil {
		log.Fatal("failed to warm zone cache", zap.Error(err))
	}
	warmCancel()
	log.Info("zone cache warmed", zap.Int("zones", cache.Len()))

	resp := resolver.New(cache, cfg.DNS.TTL)
	dnsListener := listener.New(cfg.DNS.BindAddr, cfg.DNS.ReadTimeout, resp, log)

	v := verifier.New(verifier.Config{
		Interval:       cfg.Verifier.Interval,
		LookupTimeout:  cfg.Verifier.LookupTimeout,
		MaxRetries:     cfg.Verifier.MaxRetries,
		GracePeriod:    cfg.Verifier.GracePeriod,
		MaxConcurrency: cfg.Verifier.MaxConcurrency,
		Resolvers:      cfg.Verifier.Resolvers,
	}, store, cache, log)

	upstreamClient := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout)
	syncer := synchroniser.New(cfg.Upstream.PollInterval, cfg.Zone, upstreamClient, store, cache, log)

	metrics := monitoring.New()
	healthChecker := monitoring.NewHealthChecker(store, cache, log)
	alertManager := monitoring.NewAlertManager(log)
	alertManager.AddReceiver(monitoring.NewLogAlertReceiver(log))
	alertManager.AddRule(monitoring.HighMemoryUsageRule(512.0))
	alertManager.AddRule(monitoring.CatalogueUnreachableRule(store))

	livenessChecker := health.New(store)
	adminService := admin.New(store, cache, v, healthChecker, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:  cfg,
		Admin:   adminService,
		Health:  livenessChecker,
		Metrics: metrics,
		Logger:  log,
	})

	adminServer := &http.Server{
		Addr:              cfg.Admin.BindAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting DNS UDP listener", zap.String("address", cfg.DNS.BindAddr))
		if err := dnsListener.ListenAndServeUDP(); err != nil {
			log.Error("DNS UDP listener error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting DNS TCP listener", zap.String("address", cfg.DNS.BindAddr))
		if err := dnsListener.ListenAndServeTCP(); err != nil {
			log.Error("DNS TCP listener error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting admin HTTP server", zap.String("address", cfg.Admin.BindAddr))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting verifier loop", zap.Duration("interval", cfg.Verifier.Interval))
		return v.Run(groupCtx)
	})

	group.Go(func() error {
		if !upstreamClient.Configured() {
			log.Info("upstream not configured, synchroniser disabled")
			return nil
		}
		log.Info("starting synchroniser loop", zap.Duration("interval", cfg.Upstream.PollInterval))
		return syncer.Run(groupCtx)
	})

	group.Go(func() error {
		log.Info("starting alert monitoring")
		alertManager.StartMonitoring(groupCtx, 1*time.Minute)
		return nil
	})

	group.Go(func() error {
		healthChecker.StartPeriodicHealthCheck(groupCtx, 30*time.Second)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := dnsListener.Shutdown(shutdownCtx); err != nil {
			log.Error("DNS listener shutdown error", zap.Error(err))
		}
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error("admin HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("catalogdns exited with error", zap.Error(err))
	}

	log.Info("catalogdns exited cleanly")
}

// openCatalogue opens the Catalogue Store driver named in cfg, defaulting
// to the in-memory store when no driver is configured — useful for local
// development and the test fixtures.
func openCatalogue(cfg config.CatalogueConfig, log *zap.Logger) (catalog.Store, error) {
	switch cfg.Driver {
	case "postgres":
		log.Info("using postgres catalogue store")
		return sqlstore.New(sqlstore.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	default:
		log.Info("using in-memory catalogue store (development mode)")
		return memstore.New(), nil
	}
}
