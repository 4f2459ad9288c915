package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	DefaultProvider    = ProviderGroq
	DefaultAddr        = ":8501"
	DefaultMaxAttempts = 3
	DefaultTemperature = 0
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultEnvFile     = ".env"
)

// Config is loaded once at startup and passed down by value.
type Config struct {
	Provider      string
	APIKey        string
	CredentialEnv string
	Model         string
	BaseURL       string
	Temperature   float64
	Addr          string
	MaxAttempts   int
	LogLevel      string
	LogFormat     string
}

func (c Config) CredentialSet() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func CredentialEnvFor(provider string) string {
	switch provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

func DefaultConfig() Config {
	return Config{
		Provider:      DefaultProvider,
		CredentialEnv: CredentialEnvFor(DefaultProvider),
		Temperature:   DefaultTemperature,
		Addr:          DefaultAddr,
		MaxAttempts:   DefaultMaxAttempts,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// Load reads envFile when it exists (variables already in the environment
// win) and applies environment overrides to the defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	if provider := os.Getenv("URBAN_NEXUS_PROVIDER"); provider != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(provider))
	}
	cfg.CredentialEnv = CredentialEnvFor(cfg.Provider)
	cfg.APIKey = strings.TrimSpace(os.Getenv(cfg.CredentialEnv))

	if model := os.Getenv("URBAN_NEXUS_MODEL"); model != "" {
		cfg.Model = model
	}
	if url := os.Getenv("URBAN_NEXUS_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
	if addr := os.Getenv("URBAN_NEXUS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if attempts := os.Getenv("URBAN_NEXUS_MAX_ATTEMPTS"); attempts != "" {
		parsed, err := strconv.Atoi(attempts)
		if err != nil {
			return Config{}, fmt.Errorf("parse URBAN_NEXUS_MAX_ATTEMPTS: %w", err)
		}
		cfg.MaxAttempts = parsed
	}
	if level := os.Getenv("URBAN_NEXUS_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("URBAN_NEXUS_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderGroq, ProviderGemini)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
