package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/pkg/id"
)

// Issuer is stamped on every operator token and required on verification.
const Issuer = "notify-dapp"

// Claims identifies an operator and the channel they may send for.
// An empty Channel grants every channel the service holds a key for.
type Claims struct {
	Operator string `json:"operator"`
	Channel  string `json:"channel,omitempty"`
	jwt.RegisteredClaims
}

// CanSendFor reports whether the token covers channel.
func (c *Claims) CanSendFor(channel string) bool {
	return c.Channel == "" || strings.EqualFold(c.Channel, channel)
}

// Provider mints and checks RS256 operator tokens.
type Provider struct {
	signKey   *rsa.PrivateKey
	verifyKey *rsa.PublicKey
	ttl       time.Duration
	parser    *jwt.Parser
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	signKey, err := loadPEM(cfg.JWTPrivateKeyPath, "private", jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, err
	}
	verifyKey, err := loadPEM(cfg.JWTPublicKeyPath, "public", jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, err
	}
	return &Provider{
		signKey:   signKey,
		verifyKey: verifyKey,
		ttl:       cfg.JWTExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func loadPEM[K any](path, kind string, parse func([]byte) (K, error)) (K, error) {
	var zero K
	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read %s key: %w", kind, err)
	}
	key, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("parse %s key: %w", kind, err)
	}
	return key, nil
}

// Sign issues a token for operator, scoped to channel unless channel is empty.
func (p *Provider) Sign(operator, channel string) (string, error) {
	now := time.Now()
	claims := Claims{
		Operator: operator,
		Channel:  channel,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.New(),
			Issuer:    Issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.signKey)
}

func (p *Provider) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := p.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.verifyKey, nil
	}); err != nil {
		return nil, err
	}
	if claims.Operator == "" {
		return nil, errors.New("token has no operator")
	}
	return claims, nil
}
