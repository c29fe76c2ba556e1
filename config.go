package authentic

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds auth options. Host applications implement it; see
// SimpleConfig for a plain struct version.
type Config interface {
	GetPrivateKey() string
	GetPublicKey() string
	GetTokenExpiration() int
	GetChangeTokenTTL() string
	GetIssuer() string
	GetAudience() []string
}

// SimpleConfig is a plain-struct Config implementation.
type SimpleConfig struct {
	PrivateKey      string
	PublicKey       string
	TokenExpiration int
	ChangeTokenTTL  string
	Issuer          string
	Audience        []string
}

var _ Config = SimpleConfig{}

func (c SimpleConfig) GetPrivateKey() string     { return c.PrivateKey }
func (c SimpleConfig) GetPublicKey() string      { return c.PublicKey }
func (c SimpleConfig) GetTokenExpiration() int   { return c.TokenExpiration }
func (c SimpleConfig) GetChangeTokenTTL() string { return c.ChangeTokenTTL }
func (c SimpleConfig) GetIssuer() string         { return c.Issuer }
func (c SimpleConfig) GetAudience() []string     { return c.Audience }

// New wires a full Auther from configuration: a credential component
// over store, and an RS256 token service from the configured keys.
func New(cfg Config, store UserStore, opts ...AutherOption) (*Auther, error) {
	tokens, err := NewTokenService(
		[]byte(cfg.GetPrivateKey()),
		[]byte(cfg.GetPublicKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		nil,
	)
	if err != nil {
		return nil, err
	}

	credOpts := []CredentialsOption{}
	if pattern := cfg.GetChangeTokenTTL(); pattern != "" {
		if ttl, err := time.ParseDuration(pattern); err == nil {
			credOpts = append(credOpts, WithChangeTokenTTL(ttl))
		}
	}

	creds := NewCredentials(store, credOpts...)

	return NewAuthenticator(creds, tokens, opts...), nil
}
