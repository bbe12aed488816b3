package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/quocanhngo/publicchat/internal/matching"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Match      MatchConfig
	PublicChat PublicChatConfig
}

type AppConfig struct {
	Env         string
	Port        string
	LogLevel    string
	StoreDriver string
}

// IsProduction reports whether the app runs in production mode
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	ProfileCacheTTL time.Duration
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// MatchConfig tunes recommendation scoring
type MatchConfig struct {
	MaxDistanceKM float64
	Weights       matching.Weights
	MaxFeatures   int
}

// PublicChatConfig holds creation defaults and membership limits
type PublicChatConfig struct {
	DefaultMaxMembers int
	DefaultDuration   time.Duration
	MaxActivePerUser  int
	EnforceActiveCap  bool
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "publicchat"),
			Password: getEnv("DB_PASSWORD", "publicchat"),
			Name:     getEnv("DB_NAME", "publicchat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", 10*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Match: MatchConfig{
			MaxDistanceKM: getEnvFloat("MATCH_MAX_DISTANCE_KM", matching.DefaultMaxDistanceKM),
			Weights: matching.Weights{
				Interest: getEnvFloat("MATCH_WEIGHT_INTEREST", matching.DefaultWeights.Interest),
				Location: getEnvFloat("MATCH_WEIGHT_LOCATION", matching.DefaultWeights.Location),
				Time:     getEnvFloat("MATCH_WEIGHT_TIME", matching.DefaultWeights.Time),
			},
			MaxFeatures: getEnvInt("MATCH_MAX_FEATURES", matching.DefaultMaxFeatures),
		},
		PublicChat: PublicChatConfig{
			DefaultMaxMembers: getEnvInt("PUBLIC_CHAT_DEFAULT_MAX_MEMBERS", 5),
			DefaultDuration:   getEnvDuration("PUBLIC_CHAT_DEFAULT_DURATION", 2*time.Hour),
			MaxActivePerUser:  getEnvInt("PUBLIC_CHAT_MAX_ACTIVE_PER_USER", 5),
			EnforceActiveCap:  getEnvBool("PUBLIC_CHAT_ENFORCE_ACTIVE_CAP", false),
		},
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.App.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.App.StoreDriver)
	}
	if err := c.Match.Weights.Validate(); err != nil {
		return fmt.Errorf("match weights: %w", err)
	}
	if c.Match.MaxDistanceKM <= 0 {
		return fmt.Errorf("MATCH_MAX_DISTANCE_KM must be positive, got %v", c.Match.MaxDistanceKM)
	}
	if c.Match.MaxFeatures <= 0 {
		return fmt.Errorf("MATCH_MAX_FEATURES must be positive, got %d", c.Match.MaxFeatures)
	}
	if c.PublicChat.DefaultMaxMembers < 2 {
		return fmt.Errorf("PUBLIC_CHAT_DEFAULT_MAX_MEMBERS must be at least 2, got %d", c.PublicChat.DefaultMaxMembers)
	}
	if c.PublicChat.DefaultDuration <= 0 {
		return fmt.Errorf("PUBLIC_CHAT_DEFAULT_DURATION must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.App.IsProduction() && c.JWT.Secret == "default-secret" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
