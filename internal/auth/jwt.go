package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the identity snapshot embedded in an access token at issuance.
// It proves who the bearer is; entitlement is re-checked against the store.
type Claims struct {
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	Subscribed            bool       `json:"subscribed"`
	SubscriptionStartedAt *time.Time `json:"subscription_started_at"`
	jwt.RegisteredClaims
}

type Manager struct {
	settings Settings
	parser   *jwt.Parser
}

func NewManager(settings Settings) *Manager {
	return &Manager{
		settings: settings,
		// expiry is checked by Verify after the signature, with a strict "now > exp" rule
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{settings.Algorithm()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

func (m *Manager) TTL() time.Duration {
	return m.settings.ttl
}

// Issue signs claims with expires_at = now + ttl. Registered claims supplied by
// the caller are replaced.
func (m *Manager) Issue(claims Claims, now time.Time) (string, time.Time, error) {
	now = now.UTC()
	expiresAt := now.Add(m.settings.ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Email,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(m.settings.method, claims)

	raw, err := token.SignedString(m.settings.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return raw, claims.ExpiresAt.Time, nil
}

// Verify checks the signature first, then expiry. A malformed or tampered token
// is always ErrInvalidToken, never ErrExpiredToken.
func (m *Manager) Verify(raw string, now time.Time) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	token, err := m.parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.settings.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ExpiresAt == nil || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	if now.After(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}

	// NumericDate decodes into time.Local
	claims.ExpiresAt.Time = claims.ExpiresAt.Time.UTC()
	if claims.IssuedAt != nil {
		claims.IssuedAt.Time = claims.IssuedAt.Time.UTC()
	}

	return claims, nil
}
