package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainAnswerable(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		state    LifecycleState
		expected bool
	}{
		{"pending is not answerable", true, Pending, false},
		{"verified and enabled is answerable", true, Verified, true},
		{"grace and enabled is answerable", true, Grace, true},
		{"disabled is never answerable", true, Disabled, false},
		{"verified but disabled kill-switch is not answerable", false, Verified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Domain{Enabled: tt.enabled, Lifecycle: Lifecycle{State: tt.state}}
			assert.Equal(t, tt.expected, d.Answerable())
		})
	}
}

func TestLifecycleStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "verified", Verified.String())
	assert.Equal(t, "grace", Grace.String())
	assert.Equal(t, "disabled", Disabled.String())
}

func TestLifecycleCarriesSingleTimestamp(t *testing.T) {
	now := time.Now()
	l := Lifecycle{State: Grace, Timestamp: now}
	assert.Equal(t, now, l.Timestamp)
	assert.Equal(t, Grace, l.State)
}
