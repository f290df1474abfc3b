package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrNotConfigured is returned when no signing secret is set
	ErrNotConfigured = errors.New("authentication not configured")
)

// Config holds configuration for Validator
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	// Leeway tolerates clock skew on exp, nbf and iat
	Leeway time.Duration
}

// Validator validates HS256 tokens signed with a shared secret
type Validator struct {
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
	now      func() time.Time
}

// NewValidator creates a new Validator
func NewValidator(config Config) *Validator {
	if config.Leeway == 0 {
		config.Leeway = 30 * time.Second
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &Validator{
		secret:   []byte(config.Secret),
		issuer:   config.Issuer,
		audience: config.Audience,
		parser:   jwt.NewParser(opts...),
		now:      time.Now,
	}
}

// ValidateToken validates a token and returns the parsed claims
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*ParsedClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	parsed, err := parseClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return parsed, nil
}

// IssueToken signs a token for subject. It backs the editor-monitor CLI and
// local development; production tokens come from the identity provider.
func (v *Validator) IssueToken(subject string, caps []Capability, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNotConfigured
	}

	now := v.now()
	raw := make([]string, len(caps))
	for i, c := range caps {
		raw[i] = string(c)
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Capabilities: raw,
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
