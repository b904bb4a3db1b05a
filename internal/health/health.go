// Package health exposes the liveness/readiness HTTP probe an
// orchestrator (Kubernetes or similar) polls to decide whether to
// restart or stop routing to this process.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"

	"catalogdns/internal/catalog"
)

// Checker wraps a healthcheck.Handler registered with the probes this
// process needs: catalogue reachability for readiness, and for liveness
// only a goroutine-count ceiling of 10000 (the query path never touches
// the store, so a slow catalogue should not kill the listener).
type Checker struct {
	handler healthcheck.Handler
	store   catalog.Store
}

// New returns a Checker with its probes registered.
func New(store catalog.Store) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
	}

	c.handler.AddReadinessCheck("catalogue", c.catalogueCheck)
	c.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	return c
}

func (c *Checker) catalogueCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := c.store.ListActive(ctx)
	return err
}

// Handler returns the http.Handler serving /live and /ready.
func (c *Checker) Handler() http.Handler {
	return c.handler
}
