package assertion

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DinoChiesa/Apigee-Sample-Jwt-Bearer-Token-Exchange/internal/key"
)

type SigningOptions struct {
	// Algorithm is a JWS algorithm name, RS256 when empty. It is not checked
	// against the key until signing.
	Algorithm string

	// Lifespan is the time from iat to exp, see ParseLifespan.
	Lifespan string
}

func (o SigningOptions) withDefaults() SigningOptions {
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Lifespan == "" {
		o.Lifespan = DefaultLifespan
	}
	return o
}

// SignedToken is a compact JWT together with the exact claims it carries.
type SignedToken struct {
	Raw       string
	Algorithm string
	Claims    Claims
}

type Signer struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewSigner(logger *slog.Logger) *Signer {
	return &Signer{
		logger: logger,
		now:    time.Now,
	}
}

// Sign stamps iat and exp onto claims and signs them with the PEM encoded
// RSA private key. Every failure wraps ErrSigning.
func (s *Signer) Sign(claims Claims, keyPEM []byte, opts SigningOptions) (*SignedToken, error) {
	opts = opts.withDefaults()
	logger := s.logger.With(slog.String("algorithm", opts.Algorithm), slog.String("lifespan", opts.Lifespan))

	lifespan, err := ParseLifespan(opts.Lifespan)
	if err != nil {
		return nil, err
	}

	method := jwt.GetSigningMethod(opts.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrSigning, opts.Algorithm)
	}

	privateKey, err := key.DecodeRSAPrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	issuedAt := s.now().Truncate(time.Second)
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(lifespan))

	raw, err := jwt.NewWithClaims(method, claims).SignedString(privateKey)
	if err != nil {
		if errors.Is(err, jwt.ErrInvalidKeyType) {
			return nil, fmt.Errorf("%w: algorithm %s cannot be used with an RSA key: %w", ErrSigning, opts.Algorithm, err)
		}
		return nil, fmt.Errorf("%w: failed to sign JWT: %w", ErrSigning, err)
	}

	logger.Debug("signed JWT", slog.Time("iat", issuedAt), slog.Time("exp", claims.ExpiresAt.Time))

	return &SignedToken{
		Raw:       raw,
		Algorithm: method.Alg(),
		Claims:    claims,
	}, nil
}
