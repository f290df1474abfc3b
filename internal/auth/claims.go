package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is a permission granted to a token holder
type Capability string

const (
	CapabilityManageOptions Capability = "manage_options"
	CapabilityEditPosts     Capability = "edit_posts"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")

	// ErrUnknownCapability is returned for a capability this service does not grant
	ErrUnknownCapability = errors.New("unknown capability")
)

var knownCapabilities = map[Capability]struct{}{
	CapabilityManageOptions: {},
	CapabilityEditPosts:     {},
}

// Claims is the token payload
type Claims struct {
	jwt.RegisteredClaims
	Name         string   `json:"name,omitempty"`
	Capabilities []string `json:"caps"`
}

// ParsedClaims is the validated identity of a caller
type ParsedClaims struct {
	Subject      string
	Name         string
	Capabilities []Capability
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// HasCapability reports whether the caller holds cap
func (p *ParsedClaims) HasCapability(cap Capability) bool {
	for _, c := range p.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// CapabilityStrings returns the capabilities for logging
func (p *ParsedClaims) CapabilityStrings() []string {
	out := make([]string, len(p.Capabilities))
	for i, c := range p.Capabilities {
		out[i] = string(c)
	}
	return out
}

func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	caps := make([]Capability, 0, len(claims.Capabilities))
	for _, raw := range claims.Capabilities {
		c := Capability(raw)
		if _, ok := knownCapabilities[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, raw)
		}
		caps = append(caps, c)
	}

	parsed := &ParsedClaims{
		Subject:      claims.Subject,
		Name:         claims.Name,
		Capabilities: caps,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}
