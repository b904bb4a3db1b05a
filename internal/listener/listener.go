// Package listener runs the UDP and TCP front doors that drive the
// Responder, grounded on github.com/miekg/dns's own dns.Server rather
// than hand-rolled socket loops — the same library the catalogue's
// query path already depends on for wire-format handling.
package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"catalogdns/internal/resolver"
)

// Listener owns one UDP and one TCP dns.Server sharing a single Responder.
type Listener struct {
	udp *dns.Server
	tcp *dns.Server
	log *zap.Logger
}

// New binds addr (format "host:port") for both transports. readTimeout
// bounds how long a TCP connection may sit idle between queries; the UDP
// transport has no connection state and so no idle timeout.
func New(addr string, readTimeout time.Duration, resp *resolver.Responder, log *zap.Logger) *Listener {
	udpHandler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		serve(w, r, resp, false, log)
	})
	tcpHandler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		serve(w, r, resp, true, log)
	})

	return &Listener{
		udp: &dns.Server{Addr: addr, Net: "udp", Handler: udpHandler, UDPSize: 512},
		tcp: &dns.Server{Addr: addr, Net: "tcp", Handler: tcpHandler, ReadTimeout: readTimeout, IdleTimeout: func() time.Duration { return readTimeout }},
		log: log,
	}
}

func serve(w dns.ResponseWriter, r *dns.Msg, resp *resolver.Responder, tcp bool, log *zap.Logger) {
	reply := resp.Respond(r, tcp)
	defer resp.Release(reply)

	if err := w.WriteMsg(reply); err != nil {
		log.Warn("failed to write DNS response", zap.Error(err), zap.Bool("tcp", tcp))
	}
}

// ListenAndServeUDP blocks serving UDP queries until the server is shut down.
func (l *Listener) ListenAndServeUDP() error {
	if err := l.udp.ListenAndServe(); err != nil {
		return fmt.Errorf("listener: udp: %w", err)
	}
	return nil
}

// ListenAndServeTCP blocks serving TCP queries until the server is shut down.
func (l *Listener) ListenAndServeTCP() error {
	if err := l.tcp.ListenAndServe(); err != nil {
		return fmt.Errorf("listener: tcp: %w", err)
	}
	return nil
}

// Shutdown stops both transports, letting in-flight queries drain within
// the context deadline before the underlying listeners are closed.
func (l *Listener) Shutdown(ctx context.Context) error {
	udpErr := l.udp.ShutdownContext(ctx)
	tcpErr := l.tcp.ShutdownContext(ctx)
	if udpErr != nil {
		return fmt.Errorf("listener: udp shutdown: %w", udpErr)
	}
	if tcpErr != nil {
		return fmt.Errorf("listener: tcp shutdown: %w", tcpErr)
	}
	return nil
}
