package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const maxLeeway = 2 * time.Minute

var (
	// ErrInvalidTTL is returned by [NewManager] for a non-positive token lifetime.
	ErrInvalidTTL = errors.New("jwt: invalid ttl")
	// ErrInvalidLeeway is returned by [NewManager] for a negative leeway or one above two minutes.
	ErrInvalidLeeway = errors.New("jwt: invalid leeway")
	// ErrMissingSecret is returned by [NewManager] when no signing secret is set.
	ErrMissingSecret = errors.New("jwt: missing signing secret")
)

// Config holds the HS256 signing parameters of a [Manager].
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Manager issues and validates api tokens on the server side. Clients never hold the
// secret; they only read claims through [Inspect].
type Manager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
	issuer string
	now    func() time.Time
}

// TokenClaims is the claim set carried by an api token.
type TokenClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.TTL <= 0:
		return nil, ErrInvalidTTL
	case cfg.Leeway < 0 || cfg.Leeway > maxLeeway:
		return nil, ErrInvalidLeeway
	case len(cfg.Secret) == 0:
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Manager{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    cfg.TTL,
		parser: jwt.NewParser(opts...),
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// Issue signs a fresh token for the account uid. Each token carries a unique jti so a
// server can revoke it individually.
func (m *Manager) Issue(uid, email string) (string, error) {
	issued := m.now()
	claims := TokenClaims{
		UID:   uid,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, algorithm, issuer and expiry of raw. Errors wrap the
// golang-jwt sentinels, so callers can match jwt.ErrTokenExpired with errors.Is.
func (m *Manager) Parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
