package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Tenant     TenantConfig
	RateLimit  RateLimitConfig
	Gatekeeper GatekeeperConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLHours   int
	TokenMaxAgeHours      int
	CookieName            string
	BcryptCost            int
	VerifySignatureAtEdge bool
}

// TenantConfig drives subdomain tenant detection.
type TenantConfig struct {
	BaseDomains        []string
	ReservedSubdomains []string
	PreviewSuffixes    []string
}

// RateLimitConfig selects the limiter backend and its sweep cadence.
type RateLimitConfig struct {
	Backend              string
	RedisPrefix          string
	SweepIntervalSeconds int
	BlockMultiplier      int
}

// GatekeeperConfig holds the request gatekeeper path policy.
type GatekeeperConfig struct {
	PublicPaths              []string
	ProtectedPaths           []string
	LoginRedirectPaths       []string
	AdminRoles               []string
	DefaultAllowUnclassified bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "portal-gateway"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "0.1.0"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env != "production",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("JWT_SECRET", getEnv("NEXTAUTH_SECRET", "dev-secret")),
			AccessTokenTTLHours:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_HOURS", 30*24),
			TokenMaxAgeHours:      getEnvAsInt("AUTH_TOKEN_MAX_AGE_HOURS", 30*24),
			CookieName:            getEnv("AUTH_COOKIE_NAME", "accessToken"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			VerifySignatureAtEdge: getEnvAsBool("AUTH_GATEKEEPER_VERIFY_SIGNATURE", true),
		},
		Tenant: TenantConfig{
			BaseDomains:        getEnvAsList("TENANT_BASE_DOMAINS", []string{"amaxoft.com", "localhost", "vercel.app"}),
			ReservedSubdomains: getEnvAsList("TENANT_RESERVED_SUBDOMAINS", []string{"www", "admin", "api", "app", "mail", "ftp"}),
			PreviewSuffixes:    getEnvAsList("TENANT_PREVIEW_SUFFIXES", []string{".vercel.app"}),
		},
		RateLimit: RateLimitConfig{
			Backend:              getEnv("RATE_LIMIT_BACKEND", "memory"),
			RedisPrefix:          getEnv("RATE_LIMIT_REDIS_PREFIX", "portal:"),
			SweepIntervalSeconds: getEnvAsInt("RATE_LIMIT_SWEEP_INTERVAL_SECONDS", 300),
			BlockMultiplier:      getEnvAsInt("RATE_LIMIT_BLOCK_MULTIPLIER", 2),
		},
		Gatekeeper: GatekeeperConfig{
			PublicPaths:              getEnvAsList("GATEKEEPER_PUBLIC_PATHS", nil),
			ProtectedPaths:           getEnvAsList("GATEKEEPER_PROTECTED_PATHS", nil),
			LoginRedirectPaths:       getEnvAsList("GATEKEEPER_LOGIN_REDIRECT_PATHS", nil),
			AdminRoles:               getEnvAsList("GATEKEEPER_ADMIN_ROLES", nil),
			DefaultAllowUnclassified: getEnvAsBool("AUTH_DEFAULT_ALLOW_UNCLASSIFIED", true),
		},
	}

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL is the lifetime stamped on freshly issued access tokens.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLHours) * time.Hour
}

// TokenMaxAge bounds how long after issuance a token is still honored.
func (a AuthConfig) TokenMaxAge() time.Duration {
	return time.Duration(a.TokenMaxAgeHours) * time.Hour
}

// SweepInterval returns how often the in-memory limiter drops stale entries.
func (r RateLimitConfig) SweepInterval() time.Duration {
	if r.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.SweepIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
