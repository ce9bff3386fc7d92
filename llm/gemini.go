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

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/cloudwego/rora/lang/log"
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator calls the Gemini API directly through genai.
type GeminiGenerator struct {
	cli   *genai.Client
	model string
	conf  *genai.GenerateContentConfig

	name    string
	retries int
	timeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, m ModelConfig) (*GeminiGenerator, error) {
	m = withDefaults(m)
	if m.APIKey == "" {
		return nil, ErrNoCredential
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      m.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: m.BaseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	temperature := m.Temperature
	if temperature == nil {
		temperature = genai.Ptr[float32](0)
	}
	return &GeminiGenerator{
		cli:   cli,
		model: m.ModelName,
		conf: &genai.GenerateContentConfig{
			Temperature:     temperature,
			MaxOutputTokens: int32(m.MaxTokens),
		},
		name:    m.Name,
		retries: m.Retries,
		timeout: m.Timeout,
	}, nil
}

func (g *GeminiGenerator) Call(ctx context.Context, input string) (string, error) {
	log.Debug("[User] %s", input)
	return callWithRetry(ctx, g.name, g.retries, g.timeout, func(ctx context.Context) (string, error) {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: input}}}},
			g.conf,
		)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", errors.New("gemini returned no candidates")
		}
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
		return sb.String(), nil
	})
}
