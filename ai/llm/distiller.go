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


// Package llm implements the ai.Distiller boundary on langchaingo chat
// models, for OpenAI-compatible and Ollama-native endpoints.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/distillery/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// modelFactory builds a chat client for one provider kind from per-call
// configuration.
type modelFactory func(cfg *ai.Config) (llms.Model, error)

// Distiller implements ai.Distiller over a langchaingo chat model. The
// provider kind is resolved once at construction; host, model and key come
// from the config passed to each Distill call.
type Distiller struct {
	newModel modelFactory
	logger   *slog.Logger
}

var _ ai.Distiller = (*Distiller)(nil)

// NewDistiller resolves the config's provider kind to a distiller
// implementation. Callers hold the ai.Distiller interface and never branch
// on provider identity themselves.
func NewDistiller(cfg *ai.Config) (ai.Distiller, error) {
	if cfg == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, err := factoryFor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	return &Distiller{
		newModel: factory,
		logger:   slog.Default().With("component", "distiller", "provider", string(cfg.Provider)),
	}, nil
}

func factoryFor(kind ai.ProviderKind) (modelFactory, error) {
	switch kind {
	case ai.ProviderOpenAI:
		return newOpenAIModel, nil
	case ai.ProviderOllama:
		return newOllamaModel, nil
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, kind)
	}
}

func newOpenAIModel(cfg *ai.Config) (llms.Model, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible services don't check the token but the
		// client requires one.
		token = "none"
	}
	return openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	)
}

func newOllamaModel(cfg *ai.Config) (llms.Model, error) {
	return ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
}

// Distill condenses raw text via the configured model. Input is truncated to
// cfg.MaxInputChars before prompting. Provider errors are returned as-is so
// the caller can persist the message verbatim.
func (d *Distiller) Distill(ctx context.Context, rawText string, cfg *ai.Config) (string, error) {
	if cfg == nil {
		return "", ai.ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return "", ai.ErrEmptyInput
	}
	text = truncate(text, cfg.MaxInputChars)

	client, err := d.newModel(cfg)
	if err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		{
			Role: schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(denseSummaryPrompt),
			},
		},
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	d.logger.Debug("distilling", "model", cfg.Model, "inputChars", len(text))

	response, err := client.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		d.logger.Error("model call failed", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyOutput
	}

	out := strings.TrimSpace(response.Choices[0].Content)
	if out == "" {
		return "", ai.ErrEmptyOutput
	}
	return out, nil
}
