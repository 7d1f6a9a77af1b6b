package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port string
		Env  string
	}

	// Store configuration selects and parameterizes the persistence backend
	Store struct {
		// Backend is one of "sqlite", "file" or "redis"
		Backend    string
		DataDir    string
		SQLitePath string
		RedisAddr  string
		RedisPass  string
		RedisDB    int
	}

	// Generation configuration for the text backend
	Generation struct {
		Endpoint string
		Model    string
		Timeout  time.Duration
	}

	// ImageGen configuration for the portrait backend
	ImageGen struct {
		Host   string
		Model  string
		APIKey string
	}

	// Typing controls the reveal cadence of completed responses
	Typing struct {
		Interval time.Duration
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
	}
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the application configuration, loading it on first use.
func Get() *Config {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New loads configuration from the environment. A .env file is honored when
// present.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server.Port = getEnv("PORT", "8081")
	cfg.Server.Env = getEnv("APP_ENV", "development")

	cfg.Store.Backend = getEnv("STORE_BACKEND", "sqlite")
	cfg.Store.DataDir = getEnv("DATA_DIR", "./data")
	cfg.Store.SQLitePath = getEnv("SQLITE_PATH", "./data/companion.db")
	cfg.Store.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Store.RedisPass = getEnv("REDIS_PASSWORD", "")
	cfg.Store.RedisDB = getEnvInt("REDIS_DB", 0)

	cfg.Generation.Endpoint = getEnv("LLM_ENDPOINT", "http://localhost:11434/api")
	cfg.Generation.Model = getEnv("LLM_MODEL", "mistral")
	cfg.Generation.Timeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)

	cfg.ImageGen.Host = getEnv("IMAGEGEN_HOST", "https://api.stability.ai")
	cfg.ImageGen.Model = getEnv("IMAGEGEN_MODEL", "stable-diffusion-v1-5")
	cfg.ImageGen.APIKey = getEnv("IMAGEGEN_API_KEY", "")

	cfg.Typing.Interval = getEnvDuration("TYPING_INTERVAL", 30*time.Millisecond)

	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnv("LOG_FORMAT", "json")

	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
