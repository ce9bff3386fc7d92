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

// Package service binds the four editor operations to their collaborators.
// Both the stdio protocol server and the MCP server call into it.
package service

import (
	"context"
	"sync"

	"github.com/cloudwego/rora/internal/config"
	"github.com/cloudwego/rora/internal/executor"
	"github.com/cloudwego/rora/internal/pipeline"
	"github.com/cloudwego/rora/internal/pipeline/steps"
	"github.com/cloudwego/rora/lang/log"
	"github.com/cloudwego/rora/lang/project"
	"github.com/cloudwego/rora/lang/python"
	"github.com/cloudwego/rora/llm"
)

type ParseFileParams struct {
	FilePath string `json:"file_path" jsonschema:"description=Path of the Python file to analyze"`
}

type GenerateTestsParams struct {
	FunctionInfo python.FunctionDescriptor `json:"function_info" jsonschema:"description=Function descriptor as returned by parse_file"`
	SourceCode   string                    `json:"source_code" jsonschema:"description=Full text of the file containing the function"`
	FilePath     string                    `json:"file_path" jsonschema:"description=Path of that file"`
	ProjectRoot  string                    `json:"project_root" jsonschema:"description=Root directory of the project"`
	Framework    string                    `json:"framework,omitempty" jsonschema:"description=pytest (assertion-based) or unittest (class-based),default=pytest"`
}

type RunTestsParams struct {
	TestPath     string `json:"test_path" jsonschema:"description=Test file or directory"`
	TestFunction string `json:"test_function,omitempty" jsonschema:"description=Optional pytest -k expression"`
	JSONReport   bool   `json:"json_report,omitempty" jsonschema:"description=Read results from a pytest-json-report file"`
}

type ValidateSyntaxParams struct {
	Code string `json:"code" jsonschema:"description=Python source to check"`
}

type Extractor interface {
	ParseFile(ctx context.Context, path string) *python.ParseResult
}

type TestGenerator interface {
	Generate(ctx context.Context, req pipeline.Request) *pipeline.Result
}

type TestRunner interface {
	Run(ctx context.Context, path, filter string) *executor.RunResult
	RunWithReport(ctx context.Context, path, filter string) *executor.RunResult
}

// Service is safe for sequential use. Extractor, Generator and Runner are
// required; a nil Checker validates with python3.
type Service struct {
	Extractor Extractor
	Generator TestGenerator
	Runner    TestRunner
	Checker   steps.SyntaxChecker
}

// New builds a Service from configuration. The model client is created on
// the first generate_tests call, so a missing credential only affects that
// operation.
func New(cfg *config.Config) *Service {
	model := &ConfigModel{Config: cfg.Model}
	checker := python.NewChecker(cfg.Runner.Python)
	return &Service{
		Extractor: python.NewParser(),
		Generator: steps.NewPipeline(model, project.NewGatherer(), checker, cfg.Generation.MaxRetries),
		Runner:    executor.NewRunner(cfg.Runner.Python, cfg.Runner.Timeout),
		Checker:   checker,
	}
}

func (s *Service) ParseFile(ctx context.Context, p ParseFileParams) (*python.ParseResult, error) {
	return s.Extractor.ParseFile(ctx, p.FilePath), nil
}

func (s *Service) GenerateTests(ctx context.Context, p GenerateTestsParams) (*pipeline.Result, error) {
	req := pipeline.Request{
		Function:    p.FunctionInfo,
		SourceCode:  p.SourceCode,
		FilePath:    p.FilePath,
		ProjectRoot: p.ProjectRoot,
		Framework:   p.Framework,
	}
	log.Debug("generate tests for %q in %s", req.Function.Name, req.FilePath)
	return s.Generator.Generate(ctx, req), nil
}

func (s *Service) RunTests(ctx context.Context, p RunTestsParams) (*executor.RunResult, error) {
	if p.JSONReport {
		return s.Runner.RunWithReport(ctx, p.TestPath, p.TestFunction), nil
	}
	return s.Runner.Run(ctx, p.TestPath, p.TestFunction), nil
}

func (s *Service) ValidateSyntax(ctx context.Context, p ValidateSyntaxParams) (*python.ValidationOutcome, error) {
	if s.Checker == nil {
		return python.ValidateSyntax(ctx, p.Code), nil
	}
	return s.Checker.Check(ctx, p.Code), nil
}

// ConfigModel creates the model client from configuration on first use and
// keeps it for later calls.
type ConfigModel struct {
	Config llm.ModelConfig

	mu  sync.Mutex
	gen llm.Generator
}

func (m *ConfigModel) Generator(ctx context.Context) (llm.Generator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != nil {
		return m.gen, nil
	}
	gen, err := llm.NewGenerator(ctx, m.Config)
	if err != nil {
		return nil, err
	}
	m.gen = gen
	return gen, nil
}
