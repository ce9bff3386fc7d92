/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
)

// ErrNoCredential is returned when a model backend is selected without the
// credential it needs.
var ErrNoCredential = errors.New("no model credential configured")

type ModelConfig struct {
	Name        string    `json:"name" yaml:"name"` // alias of the config, not endpoint!
	APIType     ModelType `json:"type" yaml:"type"`
	BaseURL     string    `json:"base_url" yaml:"base_url"`
	APIKey      string    `json:"api_key" yaml:"api_key"`
	ModelName   string    `json:"model_name" yaml:"model_name"` // the endpoint of the model, like `gemini-2.0-flash-lite`
	Temperature *float32  `json:"temperature" yaml:"temperature"`
	MaxTokens   int       `json:"max_tokens" yaml:"max_tokens"`
	// HTTP request timeout, default: 600s
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// Number of retries on transient failure, default: 3
	Retries int `json:"retries" yaml:"retries"`
}

// HasCredential reports whether the config can reach its backend.
// A local Ollama endpoint needs no key, only an address.
func (m ModelConfig) HasCredential() bool {
	switch m.APIType {
	case ModelTypeUnknown:
		return false
	case ModelTypeOllama:
		return m.BaseURL != ""
	default:
		return m.APIKey != ""
	}
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	case "gemini", "google":
		return ModelTypeGemini
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
	ModelTypeGemini    ModelType = "gemini"
)

// Gemini defaults used when only GEMINI_API_KEY is configured.
const (
	DefaultGeminiModel = "gemini-2.0-flash-lite"
)

// Generator is the interface for calling
type Generator interface {
	// Call calls the LLM with the input.
	Call(ctx context.Context, input string) (string, error)
}

// ChatModel is the interface for making LLM backend.
type ChatModel interface {
	model.BaseChatModel
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, input string) (string, error)

func (f GeneratorFunc) Call(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}
