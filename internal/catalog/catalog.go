// Package catalog defines the Domain entity and the durable Catalogue
// Store interface that sits at the bottom of the dependency graph: the
// zone cache, responder, verifier, synchroniser and admin surface all
// build on it.
package catalog

import (
	"context"
	"errors"
	"time"
)

// LifecycleState is the discriminant of a domain's verification
// lifecycle. It is always paired with a single timestamp (see
// Lifecycle) rather than encoded as a tuple of booleans.
type LifecycleState int

const (
	// Pending domains have never had a matching NS check.
	Pending LifecycleState = iota
	// Verified domains last matched their configured nameservers.
	Verified
	// Grace domains have drifted and are serving on borrowed time.
	Grace
	// Disabled domains are no longer answerable; re-enabling is an admin action.
	Disabled
)

func (s LifecycleState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Verified:
		return "verified"
	case Grace:
		return "grace"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Lifecycle is a tagged variant: the State discriminant plus the single
// timestamp that state carries (Verified.At, Grace.Since, Disabled.At).
// Pending carries no timestamp. Keeping this as one struct rather than
// a handful of independent booleans is deliberate — see DESIGN.md.
type Lifecycle struct {
	State LifecycleState
	// Timestamp is the "at" for Verified/Disabled or the "since" for
	// Grace. It is the zero time for Pending.
	Timestamp time.Time
}

// Domain is one managed zone.
type Domain struct {
	// ID is a surrogate UUID key, stable across name-canonicalisation edge cases.
	ID string

	Name        string   // canonical, lowercase, no trailing dot
	Address     string   // apex A target, IPv4
	MailHost    string   // may contain the literal "{domain}" placeholder
	MXPriority  uint16
	Nameservers []string // ordered; ties broken by order

	Lifecycle       Lifecycle
	Enabled         bool
	LastVerifiedAt  *time.Time

	// Discord selects an alternate hosting profile: a different apex IP
	// pool and mail-host template fragment. Additive to MailHost's
	// {domain} substitution, not a replacement for it.
	Discord     bool
	Description *string
	Tags        []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Answerable reports whether a domain is allowed to be served: enabled
// and in a lifecycle that has ever passed verification.
func (d *Domain) Answerable() bool {
	return d.Enabled && (d.Lifecycle.State == Verified || d.Lifecycle.State == Grace)
}

// UpsertResult reports whether an upsert created a new row or updated an existing one.
type UpsertResult int

const (
	Created UpsertResult = iota
	Updated
)

// DeleteResult reports whether a delete found a row to remove.
type DeleteResult int

const (
	Existed DeleteResult = iota
	Absent
)

var (
	// ErrNotFound is returned by Get when no row matches the name.
	ErrNotFound = errors.New("catalog: domain not found")
	// ErrInvalidDomain is a general invalid-domain sentinel. The stores do
	// not return it; they report the specific errors from validation.go.
	ErrInvalidDomain = errors.New("catalog: invalid domain")
)

// Spec is the subset of Domain fields a caller supplies to Upsert; the
// store computes ID, timestamps and Lifecycle transitions itself.
type Spec struct {
	Name        string
	Address     string
	MailHost    string
	MXPriority  uint16
	Nameservers []string
	Discord     bool
	Description *string
	Tags        []string
}

// Store is the durable, transactional mapping of domain name to Domain
// record and lifecycle state. All methods must be safe for concurrent
// use by the Synchroniser, Verifier and Admin surface at once; a single
// writer transaction spans at most one domain.
type Store interface {
	// Upsert is idempotent on Name (already lowercased by the caller's
	// validation layer, but implementations re-normalise defensively).
	// Only upstream-sourced fields are touched on update; Lifecycle is
	// left untouched (it is owned by the Verifier).
	Upsert(ctx context.Context, spec Spec) (UpsertResult, error)

	// Delete removes a domain by name.
	Delete(ctx context.Context, name string) (DeleteResult, error)

	// Get returns ErrNotFound if no row matches.
	Get(ctx context.Context, name string) (*Domain, error)

	// ListActive returns every domain with Enabled = true.
	ListActive(ctx context.Context) ([]*Domain, error)

	// ListAll returns every domain regardless of Enabled, for the admin listing.
	ListAll(ctx context.Context) ([]*Domain, error)

	// SetEnabled flips the independent admin/sync kill-switch.
	SetEnabled(ctx context.Context, name string, enabled bool) error

	// SetLifecycle is conditional on the current row: it runs inside a
	// single-row transaction and returns the previous lifecycle read
	// inside that transaction, never a stale cached value, so callers
	// can make correct transition decisions.
	SetLifecycle(ctx context.Context, name string, next Lifecycle, lastVerifiedAt *time.Time) (Lifecycle, error)
}
