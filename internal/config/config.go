package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to constructors; flow logic never reads the environment.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Events   EventsConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret              string
	AccessTokenExpiry      time.Duration
	RefreshTokenExpiry     time.Duration
	SessionExpiry          time.Duration
	ResetTokenExpiry       time.Duration
	LockoutThreshold       int
	BcryptCost             int
	LoginRateLimitCount    int
	LoginRateLimitWindow   time.Duration
	SessionCleanupInterval time.Duration
	TimingDelayBaseMs      int
	TimingDelayRandomMs    int
}

// EventsConfig configures the side-channel publisher. Publishing is disabled when RedisAddr is empty.
type EventsConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ChannelPrefix string
}

type AdminConfig struct {
	Username string
	Email    string
	Password string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "sessionauth"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:              jwtSecret,
			AccessTokenExpiry:      getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
			RefreshTokenExpiry:     getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			SessionExpiry:          getEnvAsDuration("SESSION_EXPIRY", 24*time.Hour),
			ResetTokenExpiry:       getEnvAsDuration("RESET_TOKEN_EXPIRY", 1*time.Hour),
			LockoutThreshold:       getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			BcryptCost:             getEnvAsInt("BCRYPT_COST", 10),
			LoginRateLimitCount:    getEnvAsInt("LOGIN_RATE_LIMIT_COUNT", 10),
			LoginRateLimitWindow:   getEnvAsDuration("LOGIN_RATE_LIMIT_WINDOW", 1*time.Minute),
			SessionCleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 1*time.Hour),
			TimingDelayBaseMs:      getEnvAsInt("TIMING_DELAY_BASE_MS", 0),
			TimingDelayRandomMs:    getEnvAsInt("TIMING_DELAY_RANDOM_MS", 0),
		},
		Events: EventsConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			ChannelPrefix: getEnv("EVENTS_CHANNEL_PREFIX", "users"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.LockoutThreshold < 1 {
		return nil, fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1 (got %d)", cfg.Auth.LockoutThreshold)
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// IsProduction reports whether the service runs with production settings
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
