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
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/pkg/errors"
)

func withDefaults(m ModelConfig) ModelConfig {
	if m.MaxTokens == 0 {
		m.MaxTokens = 16 * 1024
	}
	// Set default timeout to 600 seconds if not specified
	if m.Timeout == 0 {
		m.Timeout = 600 * time.Second
	}
	// Set default retries to 3 if not specified
	if m.Retries == 0 {
		m.Retries = 3
	}
	if m.APIType == ModelTypeGemini && m.ModelName == "" {
		m.ModelName = DefaultGeminiModel
	}
	return m
}

// NewGenerator builds the prompt-to-text client for m.
func NewGenerator(ctx context.Context, m ModelConfig) (Generator, error) {
	if !m.HasCredential() {
		return nil, ErrNoCredential
	}
	m = withDefaults(m)
	if m.APIType == ModelTypeGemini {
		return NewGeminiGenerator(ctx, m)
	}
	cm, err := NewChatModel(ctx, m)
	if err != nil {
		return nil, err
	}
	return NewChatGenerator(ctx, cm, ChatGeneratorOptions{
		Name:    m.Name,
		Retries: m.Retries,
		Timeout: m.Timeout,
	})
}

func NewChatModel(ctx context.Context, m ModelConfig) (model ChatModel, err error) {
	m = withDefaults(m)
	switch m.APIType {
	case ModelTypeARK:
		model, err = ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
		})
	case ModelTypeOpenAI:
		model, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
	case ModelTypeDashScope:
		// DashScope (Qwen) uses OpenAI-compatible API
		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
		model, err = qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
	case ModelTypeDeepSeek:
		// DeepSeek uses OpenAI-compatible API
		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		model, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
	case ModelTypeOllama:
		model, err = ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: m.BaseURL,
			Model:   m.ModelName,
			Timeout: m.Timeout,
		})
	case ModelTypeClaude:
		var baseURL *string
		if m.BaseURL != "" {
			baseURL = &m.BaseURL
		}
		model, err = claude.NewChatModel(ctx, &claude.Config{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
		})
	default:
		return nil, errors.Errorf("unsupported model type %q", m.APIType)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "create %s chat model", m.APIType)
	}
	return model, nil
}
