package catalog

import (
	"errors"
	"net"
	"regexp"
	"strings"
)

// Validation errors for the invariants in §3.
var (
	ErrEmptyName          = errors.New("catalog: name must not be empty")
	ErrNameTooLong        = errors.New("catalog: name exceeds 253 characters")
	ErrInvalidNameFormat  = errors.New("catalog: name is not a valid domain label sequence")
	ErrInvalidAddress     = errors.New("catalog: address is not a valid IPv4 address")
	ErrNameserversMissing = errors.New("catalog: nameservers must be non-empty outside Pending")
	ErrMXPriorityZero     = errors.New("catalog: mx_priority must be non-zero")
)

const maxNameLength = 253

// domainLabelRegex matches a single DNS label: alphanumeric, interior
// hyphens allowed, 1-63 characters.
var domainLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// CanonicalizeName lowercases and strips a single trailing dot, per §3's
// "name is unique and canonicalised (lowercase, ASCII, no trailing dot)
// before storage" invariant.
func CanonicalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".")
	return strings.ToLower(name)
}

// ValidateName checks that name, once canonicalised, is a well-formed
// label sequence within length limits.
func ValidateName(name string) error {
	name = CanonicalizeName(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	for _, label := range strings.Split(name, ".") {
		if !domainLabelRegex.MatchString(label) {
			return ErrInvalidNameFormat
		}
	}
	return nil
}

// ValidateAddress checks that address is a syntactically valid IPv4 address.
func ValidateAddress(address string) error {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		return ErrInvalidAddress
	}
	return nil
}

// ValidateNameservers rejects an empty nameserver list for any lifecycle
// state other than Pending; a Pending domain may carry nameservers or
// none. Callers pass the lifecycle state the nameservers would apply to.
func ValidateNameservers(nameservers []string, state LifecycleState) error {
	if state != Pending && len(nameservers) == 0 {
		return ErrNameserversMissing
	}
	for i := range nameservers {
		nameservers[i] = CanonicalizeName(nameservers[i])
		if err := ValidateName(nameservers[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSpec checks the name and address of a spec. The
// lifecycle-dependent nameserver rule is not checked here: the stores
// apply it in SetLifecycle against the state being entered. Upsert does
// not check nameservers, so it does not reject an empty list on a row
// that is already outside Pending.
func ValidateSpec(spec Spec) error {
	if err := ValidateName(spec.Name); err != nil {
		return err
	}
	if err := ValidateAddress(spec.Address); err != nil {
		return err
	}
	return nil
}

// IsValidationError reports whether err is one of the §3 invariant
// violations above, as opposed to a store/transport failure — callers
// use this to decide between a 400 and a 500 response.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyName),
		errors.Is(err, ErrNameTooLong),
		errors.Is(err, ErrInvalidNameFormat),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrNameserversMissing),
		errors.Is(err, ErrMXPriorityZero),
		errors.Is(err, ErrInvalidDomain):
		return true
	default:
		return false
	}
}
