package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// OpenAI-compatible provider configuration, shared by the LLM and the
	// embedding service.
	OpenAIAPIKey  string
	OpenAIBaseURL string

	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float32
	LLMTimeout     int // seconds

	EmbeddingModel      string
	EmbeddingDimensions int

	// External movie metadata provider.
	KinopoiskAPIKey string

	// Telegram bot entry (optional).
	TelegramBotToken string
	TelegramAdminID  int64
	WebAppURL        string

	Mode        string // dev, prod
	Addr        string
	Driver      string // postgres, sqlite (local metadata store)
	DSN         string // local metadata store DSN
	CatalogDSN  string // pgvector catalog DSN
	InstanceURL string
	Version     string
	Port        int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.OpenAIAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

// FromEnv overlays environment configuration onto the profile.
func (p *Profile) FromEnv() {
	p.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", p.OpenAIAPIKey)
	p.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", p.OpenAIBaseURL)

	p.LLMModel = getEnvOrDefault("LLM_MODEL", "gpt-4o")
	p.LLMMaxTokens = getEnvOrDefaultInt("LLM_MAX_TOKENS", 2048)
	p.LLMTemperature = getEnvOrDefaultFloat32("LLM_TEMPERATURE", 0.9)
	p.LLMTimeout = getEnvOrDefaultInt("LLM_TIMEOUT", 120)

	p.EmbeddingModel = getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingDimensions = getEnvOrDefaultInt("EMBEDDING_DIMENSIONS", 1536)

	p.KinopoiskAPIKey = getEnvOrDefault("KINOPOISK_API_KEY", p.KinopoiskAPIKey)

	p.TelegramBotToken = getEnvOrDefault("BOT_TOKEN", p.TelegramBotToken)
	if admin := os.Getenv("BOT_ADMIN_ID"); admin != "" {
		if id, err := strconv.ParseInt(admin, 10, 64); err == nil {
			p.TelegramAdminID = id
		}
	}
	p.WebAppURL = getEnvOrDefault("WEB_APP_URL", p.WebAppURL)

	p.CatalogDSN = getEnvOrDefault("CATALOG_DSN", p.CatalogDSN)
}

// Validate checks the profile and normalizes derived fields.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	switch p.Driver {
	case "postgres", "sqlite":
	case "":
		p.Driver = "postgres"
	default:
		return errors.Errorf("unsupported store driver %q", p.Driver)
	}

	if p.DSN == "" {
		return errors.New("store dsn required")
	}
	if p.CatalogDSN == "" && p.Driver == "postgres" {
		// A single database can host both layers: the catalog owns the
		// movie table, the metadata store owns movie_cache.
		p.CatalogDSN = p.DSN
	}
	if p.CatalogDSN == "" {
		return errors.New("catalog dsn required")
	}

	if p.Port <= 0 {
		p.Port = 8080
	}
	if p.Addr == "" {
		p.Addr = "0.0.0.0"
	}
	if p.InstanceURL == "" {
		p.InstanceURL = fmt.Sprintf("http://localhost:%d", p.Port)
	}
	p.InstanceURL = strings.TrimSuffix(p.InstanceURL, "/")

	return nil
}
