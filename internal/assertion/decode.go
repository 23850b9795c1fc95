package assertion

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// DecodedToken is the unverified content of a compact JWT. Payload is the
// decoded payload segment, byte for byte.
type DecodedToken struct {
	Header  map[string]any
	Claims  Claims
	Payload json.RawMessage
}

// Decode splits and decodes raw without checking its signature. It is only
// used on tokens this process just signed, so any failure is ErrInternal.
func Decode(raw string) (*DecodedToken, error) {
	parser := jwt.NewParser()

	var claims Claims
	token, parts, err := parser.ParseUnverified(raw, &claims)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWT: %w", ErrInternal, err)
	}
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWT payload: %w", ErrInternal, err)
	}

	return &DecodedToken{
		Header:  token.Header,
		Claims:  claims,
		Payload: payload,
	}, nil
}

// Match reports an ErrInternal unless d carries exactly the algorithm and
// claims the signer embedded into signed.
func (d *DecodedToken) Match(signed *SignedToken) error {
	if alg, _ := d.Header["alg"].(string); alg != signed.Algorithm {
		return fmt.Errorf("%w: decoded algorithm %q, signed with %q", ErrInternal, alg, signed.Algorithm)
	}
	got, want := d.Claims, signed.Claims
	if got.Issuer != want.Issuer || got.Subject != want.Subject || got.Audience != want.Audience ||
		!slices.Equal(got.Scope, want.Scope) ||
		!sameTime(got.IssuedAt, want.IssuedAt) || !sameTime(got.ExpiresAt, want.ExpiresAt) {
		return fmt.Errorf("%w: decoded claims differ from signed claims", ErrInternal)
	}
	return nil
}

func sameTime(a, b *jwt.NumericDate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Unix() == b.Unix()
}
