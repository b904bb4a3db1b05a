package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"catalogdns/internal/catalog"
	"catalogdns/internal/zonecache"
)

// HealthStatus is the severity of a single HealthCheck or the worst
// HealthCheck in a HealthReport.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the result of one named probe.
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthReport aggregates every probe into one overall status, returned
// by the admin surface's `health` operation.
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    time.Duration `json:"uptime"`
	Checks    []HealthCheck `json:"checks"`
}

// HealthChecker runs the probes behind the admin `health` operation:
// catalogue reachability, zone cache size, and process memory —
// distinct from internal/health's liveness/readiness HTTP probe, which
// exists for orchestrator kill decisions rather than an operator's
// diagnostic view.
type HealthChecker struct {
	store     catalog.Store
	cache     *zonecache.Cache
	logger    *zap.Logger
	startTime time.Time
}

// NewHealthChecker returns a HealthChecker reading store and cache.
func NewHealthChecker(store catalog.Store, cache *zonecache.Cache, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		store:     store,
		cache:     cache,
		logger:    logger,
		startTime: time.Now(),
	}
}

// CheckHealth runs every probe and rolls them up into one report.
func (hc *HealthChecker) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Timestamp: time.Now(),
		Uptime:    time.Since(hc.startTime),
		Checks:    make([]HealthCheck, 0, 3),
	}

	checks := []func(context.Context) HealthCheck{
		hc.checkCatalogue,
		hc.checkZoneCache,
		hc.checkMemory,
	}

	overall := HealthStatusHealthy
	for _, check := range checks {
		result := check(ctx)
		report.Checks = append(report.Checks, result)
		switch result.Status {
		case HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall != HealthStatusUnhealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	report.Status = overall
	return report
}

func (hc *HealthChecker) checkCatalogue(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "catalogue", LastChecked: start}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := hc.store.ListActive(ctx); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("catalogue store unreachable: %v", err)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = "catalogue store reachable"
	}

	check.Duration = time.Since(start)
	return check
}

func (hc *HealthChecker) checkZoneCache(_ context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "zone_cache", LastChecked: start}

	size := hc.cache.Len()
	check.Status = HealthStatusHealthy
	check.Message = fmt.Sprintf("%d answerable zones cached", size)

	check.Duration = time.Since(start)
	return check
}

func (hc *HealthChecker) checkMemory(_ context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "memory", LastChecked: start}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usageMB := float64(m.Alloc) / 1024 / 1024

	const degradedAboveMB = 1024.0
	if usageMB > degradedAboveMB {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("heap usage %.1f MB", usageMB)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = fmt.Sprintf("heap usage %.1f MB", usageMB)
	}

	check.Duration = time.Since(start)
	return check
}

// IsHealthy reports whether the latest report is fully healthy.
func (hc *HealthChecker) IsHealthy(ctx context.Context) bool {
	return hc.CheckHealth(ctx).Status == HealthStatusHealthy
}

// StartPeriodicHealthCheck logs the health report on every tick until ctx is cancelled.
func (hc *HealthChecker) StartPeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := hc.CheckHealth(ctx)
			switch report.Status {
			case HealthStatusUnhealthy:
				hc.logger.Error("health check failed", zap.String("status", string(report.Status)))
			case HealthStatusDegraded:
				hc.logger.Warn("health check degraded", zap.String("status", string(report.Status)))
			default:
				hc.logger.Debug("health check passed", zap.String("status", string(report.Status)))
			}
		}
	}
}
