package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds the service settings loaded from the environment.
type Config struct {
	Port string

	// DatabaseURL is optional. When empty, records live only in memory.
	DatabaseURL   string
	NotifyChannel string

	Redis struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}

	LLM struct {
		Provider string // "openai" or "gemini"
		Timeout  time.Duration

		OpenAI struct {
			APIKey      string
			BaseURL     string
			ChatModel   string
			VisionModel string
		}

		Gemini struct {
			APIKey  string
			BaseURL string
			Model   string
		}
	}

	MaxImageBytes int64

	// ChatIdleTimeout closes chat sessions nobody has used for this long.
	ChatIdleTimeout time.Duration

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables, falling back to
// defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.NotifyChannel = getEnv("POSTGRES_NOTIFY_CHANNEL", "record_changes")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.TTL = getEnvDuration("ANNOTATION_CACHE_TTL", 24*time.Hour)

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", "openai")
	cfg.LLM.Timeout = getEnvDuration("AI_TIMEOUT", 60*time.Second)

	cfg.LLM.OpenAI.APIKey = getEnv("OPENAI_API_KEY", "")
	cfg.LLM.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", "")
	cfg.LLM.OpenAI.ChatModel = getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini")
	cfg.LLM.OpenAI.VisionModel = getEnv("OPENAI_MODEL_VISION", cfg.LLM.OpenAI.ChatModel)

	cfg.LLM.Gemini.APIKey = getEnv("GEMINI_API_KEY", "")
	cfg.LLM.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	cfg.LLM.Gemini.Model = getEnv("GEMINI_MODEL", "gemini-1.5-flash")

	cfg.MaxImageBytes = int64(getEnvInt("MAX_IMAGE_BYTES", 10<<20))
	cfg.ChatIdleTimeout = getEnvDuration("CHAT_IDLE_TIMEOUT", 30*time.Minute)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY must be set")
		}
	case "gemini":
		if c.LLM.Gemini.APIKey == "" {
			return errors.New("GEMINI_API_KEY must be set")
		}
	default:
		return errors.New("LLM_PROVIDER must be openai or gemini")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("AI_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
