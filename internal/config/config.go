package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/waktsa/elearning/internal/auth"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrInvalidTTL       = errors.New("JWT_ACCESS_TTL_MINUTES must be a positive integer")
)

type Config struct {
	Env         string
	Port        int
	StoreDriver string
	DBURL       string

	JWT          auth.Settings
	CookieSecure bool

	AdminEmail    string
	AdminPassword string
	AdminName     string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CourseCacheTTL time.Duration

	CORSAllowedOrigins []string
	OTLPEndpoint       string
	TraceSampleRatio   float64
	LoginRatePerMinute int
	ReceiptWorkers     int
}

// Load reads an optional .env file, then the process environment.
// A config without a usable signing secret is an error: the API must not start.
func Load() (Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	ttlMinutes, err := strconv.Atoi(getEnv("JWT_ACCESS_TTL_MINUTES", "30"))
	if err != nil || ttlMinutes <= 0 {
		return Config{}, ErrInvalidTTL
	}

	settings, err := auth.NewSettings(
		os.Getenv("JWT_SECRET"),
		getEnv("JWT_ALGORITHM", "HS256"),
		time.Duration(ttlMinutes)*time.Minute,
	)
	if err != nil {
		if errors.Is(err, auth.ErrEmptySecret) {
			return Config{}, ErrMissingJWTSecret
		}
		return Config{}, fmt.Errorf("jwt settings: %w", err)
	}

	cfg := Config{
		Env:         env,
		Port:        getEnvInt("PORT", 8080),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DBURL:       getEnv("DB_URL", buildDBURL()),

		JWT:          settings,
		CookieSecure: getEnvBool("COOKIE_SECURE", env != "dev" && env != "test"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		CourseCacheTTL: time.Duration(getEnvInt("COURSE_CACHE_TTL_SECONDS", 30)) * time.Second,

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio:   getEnvRatio("OTEL_TRACES_SAMPLER_ARG", 1),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 20),
		ReceiptWorkers:     getEnvInt("RECEIPT_WORKERS", 2),
	}

	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "memory" {
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "elearning")
	pass := getEnv("DB_PASSWORD", "elearning")
	name := getEnv("DB_NAME", "elearning")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

// getEnvRatio accepts values in [0, 1] and falls back otherwise.
func getEnvRatio(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 || v > 1 {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
