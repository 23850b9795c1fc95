package assertion

import (
	"fmt"
	"strings"
)

const (
	DefaultAlgorithm = "RS256"
	DefaultLifespan  = "299s"

	// OAuthProxyName is the base path of the token-exchange proxy on the gateway.
	OAuthProxyName = "jwt-bearer-oauth"
)

// Config is the fully explicit input of one invocation. ClientID and
// GatewayHost carry the environment fallbacks so nothing below the command
// reads the process environment.
type Config struct {
	PrivateKey string
	Issuer     string
	Audience   string
	Algorithm  string
	Lifespan   string
	Scope      string

	ClientID    string
	GatewayHost string
}

// Resolve fills in issuer, audience, algorithm and lifespan defaults. The
// returned notices describe the issuer and audience defaults taken.
func (c Config) Resolve() (Config, []string, error) {
	var notices []string

	if c.Issuer == "" {
		if c.ClientID == "" {
			return c, notices, ErrMissingIssuer
		}
		c.Issuer = c.ClientID
		notices = append(notices, fmt.Sprintf("using default value for issuer...%s", c.Issuer))
	}

	if c.Audience == "" {
		c.Audience = DefaultAudience(c.GatewayHost)
		notices = append(notices, fmt.Sprintf("using default audience of %s", c.Audience))
	}

	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.Lifespan == "" {
		c.Lifespan = DefaultLifespan
	}
	return c, notices, nil
}

// DefaultAudience is the token endpoint of the OAuth proxy on host. An empty
// host still yields a URL; getting the host right is up to the caller.
func DefaultAudience(host string) string {
	return fmt.Sprintf("https://%s/%s", host, OAuthProxyName)
}

// SigningOptions returns the signing half of the configuration.
func (c Config) SigningOptions() SigningOptions {
	return SigningOptions{
		Algorithm: c.Algorithm,
		Lifespan:  c.Lifespan,
	}
}

// Scopes splits the comma separated scope list. An empty list yields nil so
// the claim is left out.
func (c Config) Scopes() []string {
	if c.Scope == "" {
		return nil
	}
	return strings.Split(c.Scope, ",")
}
