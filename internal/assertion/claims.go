package assertion

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var _ jwt.Claims = (*Claims)(nil)

// Claims is the claim set of a self-signed client assertion. Field order is
// the order of the encoded payload.
type Claims struct {
	Issuer    string           `json:"iss"`
	Subject   string           `json:"sub"`
	Audience  string           `json:"aud"`
	Scope     []string         `json:"scope,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

// BuildClaims assembles the claim set from a resolved configuration. The
// subject is always the issuer.
func BuildClaims(cfg Config) (Claims, error) {
	if cfg.Issuer == "" {
		return Claims{}, fmt.Errorf("%w: issuer must not be empty", ErrConfiguration)
	}
	if cfg.Audience == "" {
		return Claims{}, fmt.Errorf("%w: audience must not be empty", ErrConfiguration)
	}
	return Claims{
		Issuer:   cfg.Issuer,
		Subject:  cfg.Issuer,
		Audience: cfg.Audience,
		Scope:    cfg.Scopes(),
	}, nil
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error) { return c.Issuer, nil }
func (c Claims) GetSubject() (string, error) { return c.Subject, nil }

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}
