package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Report store; empty means in-memory.
	DatabaseURL string

	// Auth for generation and stats endpoints
	APIKey string

	// Claude report generation
	AnthropicAPIKey string
	AnthropicModel  string
	GenerateWorkers int
	GenerateQueue   int
	GenerateJobTTL  time.Duration

	// Typing pace
	CharDelay       time.Duration
	InterChunkDelay time.Duration
	BlockDelay      time.Duration

	// Streams
	SessionTTL    time.Duration
	StreamTimeout time.Duration
}

// Load reads the environment. Values in ./.env fill in variables that are
// not already set.
func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{
		Port: envOr("PORT", "8090"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		APIKey: os.Getenv("STOCKREPORT_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GenerateWorkers: envInt("GENERATE_WORKERS", 2),
		GenerateQueue:   envInt("GENERATE_QUEUE_SIZE", 50),
		GenerateJobTTL:  envDuration("GENERATE_JOB_TTL", time.Hour),

		CharDelay:       envDuration("CHAR_DELAY", 5*time.Millisecond),
		InterChunkDelay: envDuration("INTER_CHUNK_DELAY", 25*time.Millisecond),
		BlockDelay:      envDuration("BLOCK_DELAY", 600*time.Millisecond),

		SessionTTL:    envDuration("SESSION_TTL", 30*time.Minute),
		StreamTimeout: envDuration("STREAM_TIMEOUT", 10*time.Minute),
	}

	if cfg.GenerateWorkers <= 0 {
		cfg.GenerateWorkers = 2
	}
	if cfg.GenerateQueue <= 0 {
		cfg.GenerateQueue = 50
	}
	if cfg.GenerateJobTTL <= 0 {
		cfg.GenerateJobTTL = time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 10 * time.Minute
	}

	return cfg
}

// GenerationEnabled reports whether a Claude key is configured.
func (c Config) GenerationEnabled() bool {
	return c.AnthropicAPIKey != ""
}

func (c Config) Validate() error {
	if c.GenerationEnabled() && c.APIKey == "" {
		return errors.New("STOCKREPORT_API_KEY is required when ANTHROPIC_API_KEY is set")
	}
	for name, d := range map[string]time.Duration{
		"CHAR_DELAY":        c.CharDelay,
		"INTER_CHUNK_DELAY": c.InterChunkDelay,
		"BLOCK_DELAY":       c.BlockDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
