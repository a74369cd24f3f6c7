// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// ProviderKind tags which distiller implementation a Config resolves to.
type ProviderKind string

const (
	// ProviderOpenAI targets any OpenAI-compatible chat completion API
	// (OpenAI itself, LocalAI, vLLM, an Ollama /v1 endpoint).
	ProviderOpenAI ProviderKind = "openai"
	// ProviderOllama targets Ollama's native API.
	ProviderOllama ProviderKind = "ollama"
)

// DefaultMaxInputChars bounds how much raw text is sent to the model in one
// distillation call; longer input is truncated before prompting.
const DefaultMaxInputChars = 5000

// Config holds provider configuration for a distillation call.
type Config struct {
	// Provider selects the distiller implementation.
	Provider ProviderKind

	// Host is the base URL of the model service.
	// Example: "http://localhost:11434" for a local Ollama.
	Host string

	// Model is the model identifier.
	// Example: "llama3", "gpt-4o-mini"
	Model string

	// APIKey authenticates against hosted providers. Local
	// OpenAI-compatible services usually accept any value.
	APIKey string

	// MaxInputChars truncates raw text before prompting.
	// Default: DefaultMaxInputChars.
	MaxInputChars int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider kind.
func WithProvider(kind ProviderKind) ConfigOption {
	return func(c *Config) {
		c.Provider = kind
	}
}

// WithHost sets the model service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithMaxInputChars sets the raw-text truncation limit.
func WithMaxInputChars(limit int) ConfigOption {
	return func(c *Config) {
		c.MaxInputChars = limit
	}
}

// DefaultConfig returns a Config targeting a local Ollama with the model the
// system shipped with.
func DefaultConfig() *Config {
	return &Config{
		Provider:      ProviderOllama,
		Host:          "http://localhost:11434",
		Model:         "llama3",
		MaxInputChars: DefaultMaxInputChars,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOpenAI),
//	    ai.WithHost("https://api.openai.com"),
//	    ai.WithModel("gpt-4o-mini"),
//	    ai.WithAPIKey(key),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form. For the openai
// kind it adds the /v1 suffix OpenAI-compatible APIs expect; Ollama's native
// API takes the bare host.
func (c *Config) Normalize() {
	c.Host = strings.TrimSuffix(c.Host, "/")
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = c.Host + "/v1"
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = DefaultMaxInputChars
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return errors.New("ai config: unknown Provider kind")
	}
	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	return nil
}
