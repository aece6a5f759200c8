package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendDynamo   = "dynamo"
	StoreBackendMemory   = "memory"

	OverflowDisconnect = "disconnect"
	OverflowDropOldest = "drop-oldest"
)

type Config struct {
	HostPort      string
	DevMode       bool
	JWTSecret     []byte
	AllowedOrigin string
	HistoryLimit  int

	Store     StoreConfig
	Redis     RedisConfig
	SQS       SQSConfig
	WebSocket WebSocketConfig
	Activity  ActivityConfig
	OAuth     OAuthConfig
}

type StoreConfig struct {
	Backend          string
	DatabaseURL      string
	DynamoDBEndpoint string
	DynamoDBTable    string
}

type RedisConfig struct {
	Endpoint string
}

type SQSConfig struct {
	Endpoint             string
	DeleteUserChatsQueue string
}

type WebSocketConfig struct {
	SendBuffer        int
	OverflowPolicy    string
	MessagesPerSecond float64
	Burst             int
	MaxMessageBytes   int64
}

type ActivityConfig struct {
	FlushInterval time.Duration
}

type OAuthConfig struct {
	GithubClientID     string
	GithubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	rawSecret := os.Getenv("JWT_SECRET")
	if rawSecret == "" {
		return nil, errors.New("required environment variable JWT_SECRET is not set")
	}
	jwtSecret, err := base64.StdEncoding.DecodeString(rawSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 JWT_SECRET: %w", err)
	}

	cfg := &Config{
		HostPort:      getEnv("HOST_PORT", "8080"),
		DevMode:       getBool("DEV_MODE", false),
		JWTSecret:     jwtSecret,
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", ""),
		HistoryLimit:  getInt("HISTORY_LIMIT", 1000),
		Store: StoreConfig{
			Backend:          getEnv("STORE_BACKEND", StoreBackendPostgres),
			DatabaseURL:      getEnv("DATABASE_URL", buildDatabaseURL()),
			DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			DynamoDBTable:    getEnv("DYNAMODB_TABLE", "Sketchroom"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
		},
		SQS: SQSConfig{
			Endpoint:             getEnv("SQS_ENDPOINT", ""),
			DeleteUserChatsQueue: getEnv("SQS_DELETE_USER_CHATS_QUEUE", "DeleteUserChatsQueue"),
		},
		WebSocket: WebSocketConfig{
			SendBuffer:        getInt("WS_SEND_BUFFER", 128),
			OverflowPolicy:    getEnv("WS_OVERFLOW_POLICY", OverflowDisconnect),
			MessagesPerSecond: getFloat("WS_MESSAGES_PER_SECOND", 20),
			Burst:             getInt("WS_BURST", 30),
			MaxMessageBytes:   int64(getInt("WS_MAX_MESSAGE_BYTES", 65536)),
		},
		Activity: ActivityConfig{
			FlushInterval: getDuration("ACTIVITY_FLUSH_INTERVAL", 60*time.Second),
		},
		OAuth: OAuthConfig{
			GithubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			GithubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:        getEnv("OAUTH_REDIRECT_URL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreBackendPostgres, StoreBackendDynamo, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.WebSocket.OverflowPolicy {
	case OverflowDisconnect, OverflowDropOldest:
	default:
		return fmt.Errorf("unknown WS_OVERFLOW_POLICY %q", c.WebSocket.OverflowPolicy)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("HISTORY_LIMIT must be positive")
	}
	return nil
}

func buildDatabaseURL() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "sketchroom"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration treats a bare number as seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
