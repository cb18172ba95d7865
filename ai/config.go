// Package ai provides the language-model and embedding services consumed
// by the conversational agent and the retrieval engine.
package ai

import (
	"errors"

	"github.com/autogenz/movieai/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Enabled   bool
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.9
	Timeout     int     // request timeout in seconds (default: 120)
}

// NewConfigFromProfile derives AI configuration from the instance profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Enabled: p.IsAIEnabled(),
		Embedding: EmbeddingConfig{
			Model:      p.EmbeddingModel,
			APIKey:     p.OpenAIAPIKey,
			BaseURL:    p.OpenAIBaseURL,
			Dimensions: p.EmbeddingDimensions,
		},
		LLM: LLMConfig{
			Model:       p.LLMModel,
			APIKey:      p.OpenAIAPIKey,
			BaseURL:     p.OpenAIBaseURL,
			MaxTokens:   p.LLMMaxTokens,
			Temperature: p.LLMTemperature,
			Timeout:     p.LLMTimeout,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return errors.New("ai is disabled")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding api key required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model required")
	}
	if c.LLM.Model == "" {
		return errors.New("llm model required")
	}
	return nil
}
