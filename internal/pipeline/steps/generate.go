// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package steps

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/internal/pipeline"
	"github.com/cloudwego/rora/lang/log"
	"github.com/cloudwego/rora/llm"
	"github.com/cloudwego/rora/llm/prompt"
)

// ModelProvider hands out the model client, or llm.ErrNoCredential when
// none is configured.
type ModelProvider interface {
	Generator(ctx context.Context) (llm.Generator, error)
}

// StaticModel is a ModelProvider around a fixed Generator. A nil Generator
// reports a missing credential.
type StaticModel struct {
	Model llm.Generator
}

func (m StaticModel) Generator(ctx context.Context) (llm.Generator, error) {
	if m.Model == nil {
		return nil, llm.ErrNoCredential
	}
	return m.Model, nil
}

// GenerateStep prompts the model and keeps the code it answers with.
type GenerateStep struct {
	Model ModelProvider
}

func (s *GenerateStep) Name() string { return string(pipeline.PhaseGenerate) }

func (s *GenerateStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	fatal := &pipeline.StepResult{Status: pipeline.StepFailed, Recoverable: false}
	if s.Model == nil {
		return fatal, noCredential(llm.ErrNoCredential)
	}
	model, err := s.Model.Generator(ctx)
	if err != nil {
		if errors.Is(err, llm.ErrNoCredential) {
			return fatal, noCredential(err)
		}
		return fatal, err
	}

	text, err := prompt.NewTestGenPrompt(prompt.TestGenInput{
		Function:      st.Request.Function,
		Source:        st.Request.SourceCode,
		Project:       st.Project,
		Imports:       st.Imports,
		Framework:     prompt.NewFramework(st.Request.Framework),
		RetryCount:    st.RetryCount,
		PreviousError: st.ValidationError,
	}).Render()
	if err != nil {
		return fatal, err
	}

	log.Debug("[%s] calling model (retry %d)", st.RunID, st.RetryCount)
	raw, err := model.Call(ctx, text)
	if err != nil {
		return fatal, errors.Wrap(err, "model call failed")
	}
	code := ExtractCode(raw)
	return &pipeline.StepResult{
		Status:   pipeline.StepOK,
		Snapshot: pipeline.NewCodeSnapshot(code),
	}, nil
}

func noCredential(err error) error {
	return errors.Wrap(err, "set API_TYPE and API_KEY, or GEMINI_API_KEY")
}

// ExtractCode takes the first ```python block, else the first fenced block,
// else the whole text. The result is trimmed.
func ExtractCode(raw string) string {
	if code, ok := fenced(raw, "```python"); ok {
		return code
	}
	if code, ok := fenced(raw, "```"); ok {
		return code
	}
	return strings.TrimSpace(raw)
}

func fenced(raw, open string) (string, bool) {
	i := strings.Index(raw, open)
	if i < 0 {
		return "", false
	}
	start := i + len(open)
	end := strings.Index(raw[start:], "```")
	if end <= 0 {
		return "", false
	}
	return strings.TrimSpace(raw[start : start+end]), true
}
