package authentic

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenExpiration is the bearer token lifetime in hours (30 days)
const DefaultTokenExpiration = 30 * 24

// TokenService issues and validates RS256-signed bearer tokens. It
// holds no mutable state beyond the configured keys, so a single
// instance is safe for unsynchronized concurrent use.
type TokenService struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	publicPEM       string
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

var _ TokenIssuer = (*TokenService)(nil)

// NewTokenService creates a TokenService from PEM-encoded key material.
// publicKeyPEM may be empty, in which case the public key is derived
// from the private key. tokenExpiration is in hours; zero or negative
// selects the 30 day default.
func NewTokenService(privateKeyPEM, publicKeyPEM []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) (*TokenService, error) {
	if logger == nil {
		logger = defLogger{}
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse RSA private key")
	}

	var publicKey *rsa.PublicKey
	var publicPEM string

	if len(publicKeyPEM) > 0 {
		publicKey, err = jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse RSA public key")
		}
		publicPEM = string(publicKeyPEM)
	} else {
		publicKey = &privateKey.PublicKey
		publicPEM, err = encodePublicKeyPEM(publicKey)
		if err != nil {
			return nil, err
		}
	}

	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	return &TokenService{
		privateKey:      privateKey,
		publicKey:       publicKey,
		publicPEM:       publicPEM,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}, nil
}

// PublicKey exposes the verification key for clients that validate
// tokens on their own.
func (ts *TokenService) PublicKey() *rsa.PublicKey {
	return ts.publicKey
}

// PublicKeyPEM returns the PEM encoding of the verification key.
func (ts *TokenService) PublicKeyPEM() string {
	return ts.publicPEM
}

// Issue mints a bearer token for email.
func (ts *TokenService) Issue(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", ErrNoEmptyString
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   email,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		UserEmail: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(ts.privateKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a token string, returning structured
// claims. Only the configured RSA signature algorithm is accepted, so
// tokens minted with the public key as an HMAC secret are rejected.
func (ts *TokenService) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.publicKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func encodePublicKeyPEM(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to marshal public key")
	}

	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}
