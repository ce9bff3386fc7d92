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

// Package steps holds the concrete states of the test generation pipeline.
package steps

import (
	"context"

	"github.com/cloudwego/rora/internal/pipeline"
	"github.com/cloudwego/rora/lang/project"
	"github.com/cloudwego/rora/lang/python"
)

// AnalyzeStep summarises the imports and names the target function uses.
// It is a static scan and never fails.
type AnalyzeStep struct{}

func (s *AnalyzeStep) Name() string { return string(pipeline.PhaseAnalyze) }

func (s *AnalyzeStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	if st.Imports == nil {
		st.Imports = python.AnalyzeFunction(ctx, st.Request.SourceCode, st.Request.Function)
	}
	return &pipeline.StepResult{Status: pipeline.StepOK}, nil
}

// ContextGatherer is the project-context collaborator.
type ContextGatherer interface {
	Gather(ctx context.Context, root string) *project.ProjectContext
}

// GatherStep attaches the project context once per run.
type GatherStep struct {
	Gatherer ContextGatherer
}

func (s *GatherStep) Name() string { return string(pipeline.PhaseGather) }

func (s *GatherStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	if st.Project == nil {
		st.Project = s.Gatherer.Gather(ctx, st.Request.ProjectRoot)
	}
	return &pipeline.StepResult{Status: pipeline.StepOK}, nil
}

// NewPipeline wires the four steps. A nil model means no credential is
// configured; generation then fails without calling anything. A nil checker
// validates with python3.
func NewPipeline(model ModelProvider, gatherer ContextGatherer, checker SyntaxChecker, maxRetry int) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Steps: []pipeline.Step{
			&AnalyzeStep{},
			&GatherStep{Gatherer: gatherer},
			&GenerateStep{Model: model},
			&ValidateStep{Checker: checker},
		},
		Agent: &pipeline.DefaultAgent{MaxRetry: maxRetry},
	}
}
