package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-multi-auth/internal/model"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	OAuthBaseURL           string
	OAuthTimeout           time.Duration
	OAuthAutoCreateClients bool

	CacheDriver    string
	RedisURL       string
	ClientCacheTTL time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	// TrustProxyHeaders makes the rate limiter key on X-Forwarded-For.
	TrustProxyHeaders bool

	ManagerDefaultRole      string
	ManagerDefaultAbilities []model.Ability
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("SERVER_PORT", "8080")
	abilities, err := parseAbilities(getEnv("MANAGER_DEFAULT_ABILITIES", "manage:all"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:              port,
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AccessTokenTTL:          getDuration("ACCESS_TOKEN_TTL", 15*24*time.Hour),
		RefreshTokenTTL:         getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		OAuthBaseURL:            strings.TrimRight(getEnv("OAUTH_BASE_URL", "http://127.0.0.1:"+port), "/"),
		OAuthTimeout:            getDuration("OAUTH_TIMEOUT", 10*time.Second),
		OAuthAutoCreateClients:  getBool("OAUTH_AUTO_CREATE_CLIENTS", false),
		CacheDriver:             strings.ToLower(getEnv("CACHE_DRIVER", CacheDriverMemory)),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		ClientCacheTTL:          getDuration("CLIENT_CACHE_TTL", 5*time.Minute),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		TrustProxyHeaders:       getBool("TRUST_PROXY_HEADERS", false),
		ManagerDefaultRole:      getEnv("MANAGER_DEFAULT_ROLE", "admin"),
		ManagerDefaultAbilities: abilities,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive")
	}

	if c.OAuthTimeout <= 0 {
		return fmt.Errorf("OAUTH_TIMEOUT must be positive")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	switch c.CacheDriver {
	case CacheDriverMemory:
	case CacheDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.CacheDriver)
	}

	return nil
}

// parseAbilities reads "action:subject" pairs separated by commas.
func parseAbilities(raw string) ([]model.Ability, error) {
	parts := splitCSV(raw)
	out := make([]model.Ability, 0, len(parts))
	for _, part := range parts {
		action, subject, ok := strings.Cut(part, ":")
		action, subject = strings.TrimSpace(action), strings.TrimSpace(subject)
		if !ok || action == "" || subject == "" {
			return nil, fmt.Errorf("invalid MANAGER_DEFAULT_ABILITIES entry %q", part)
		}
		out = append(out, model.Ability{Action: action, Subject: subject})
	}
	return out, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
