package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret          = errors.New("signing secret is empty")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrNonPositiveTTL       = errors.New("token ttl must be positive")
)

// Settings is the process-wide signing configuration. It is built once at
// startup and never mutated afterwards.
type Settings struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
}

func NewSettings(secret, algorithm string, ttl time.Duration) (Settings, error) {
	if secret == "" {
		return Settings{}, ErrEmptySecret
	}
	if ttl <= 0 {
		return Settings{}, ErrNonPositiveTTL
	}

	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return Settings{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	// copy so callers cannot mutate the key behind our back
	key := make([]byte, len(secret))
	copy(key, secret)

	return Settings{secret: key, method: method, ttl: ttl}, nil
}

func (s Settings) Algorithm() string {
	if s.method == nil {
		return ""
	}
	return s.method.Alg()
}

func (s Settings) TTL() time.Duration {
	return s.ttl
}
