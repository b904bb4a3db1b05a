package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Example.TEST", "example.test"},
		{"strips trailing dot", "example.test.", "example.test"},
		{"trims whitespace", "  example.test  ", "example.test"},
		{"no trailing dot is a no-op", "example.test", "example.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalizeName(tt.input))
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
	}{
		{"valid apex", "example.test", nil},
		{"valid with trailing dot", "example.test.", nil},
		{"valid subdomain", "www.example.test", nil},
		{"empty", "", ErrEmptyName},
		{"label too long", "a-very-long-label-that-exceeds-the-sixty-three-character-limit-set-by-rfc1035x.test", ErrInvalidNameFormat},
		{"leading hyphen", "-example.test", ErrInvalidNameFormat},
		{"double dot", "example..test", ErrInvalidNameFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid IPv4", "203.0.113.7", false},
		{"IPv6 rejected", "2001:db8::1", true},
		{"not an IP", "not-an-ip", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNameservers(t *testing.T) {
	t.Run("empty allowed when pending", func(t *testing.T) {
		err := ValidateNameservers(nil, Pending)
		assert.NoError(t, err)
	})

	t.Run("empty rejected when verified", func(t *testing.T) {
		err := ValidateNameservers(nil, Verified)
		assert.ErrorIs(t, err, ErrNameserversMissing)
	})

	t.Run("canonicalises in place", func(t *testing.T) {
		ns := []string{"NS1.Host.Test."}
		err := ValidateNameservers(ns, Verified)
		assert.NoError(t, err)
		assert.Equal(t, "ns1.host.test", ns[0])
	})
}

func TestValidateSpec(t *testing.T) {
	valid := Spec{Name: "example.test", Address: "203.0.113.7"}
	assert.NoError(t, ValidateSpec(valid))

	invalidAddr := Spec{Name: "example.test", Address: "not-an-ip"}
	assert.ErrorIs(t, ValidateSpec(invalidAddr), ErrInvalidAddress)
}
