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

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/rora/internal/config"
	"github.com/cloudwego/rora/internal/executor"
	"github.com/cloudwego/rora/lang/python"
	"github.com/cloudwego/rora/llm"
)

type fakeRunner struct {
	path, filter string
	report       bool
}

func (f *fakeRunner) Run(ctx context.Context, path, filter string) *executor.RunResult {
	f.path, f.filter = path, filter
	return &executor.RunResult{Outcomes: []executor.TestOutcome{}}
}

func (f *fakeRunner) RunWithReport(ctx context.Context, path, filter string) *executor.RunResult {
	f.report = true
	return f.Run(ctx, path, filter)
}

func noCredentialConfig(t *testing.T) *config.Config {
	cfg, err := config.LoadWith("", func(string) string { return "" })
	require.NoError(t, err)
	return cfg
}

func TestParseFile(t *testing.T) {
	s := New(noCredentialConfig(t))
	path := filepath.Join(t.TempDir(), "m.py")
	require.NoError(t, os.WriteFile(path, []byte("def add(a, b):\n    return a + b\n"), 0o644))

	res, err := s.ParseFile(context.Background(), ParseFileParams{FilePath: path})
	require.NoError(t, err)
	require.Len(t, res.Functions, 1)
	assert.Equal(t, "add", res.Functions[0].Name)

	res, err = s.ParseFile(context.Background(), ParseFileParams{})
	require.NoError(t, err)
	assert.Equal(t, "File not found: ", res.Error)
	assert.NotNil(t, res.Functions)
	assert.Empty(t, res.Functions)
}

func TestGenerateTestsWithoutCredential(t *testing.T) {
	s := New(noCredentialConfig(t))
	res, err := s.GenerateTests(context.Background(), GenerateTestsParams{
		FunctionInfo: python.FunctionDescriptor{Name: "add", Signature: "def add(a, b)"},
		SourceCode:   "def add(a, b):\n    return a + b\n",
		FilePath:     "m.py",
		ProjectRoot:  t.TempDir(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.TestCode)
	assert.Empty(t, res.TestFunctionName)
	assert.Contains(t, res.Error, llm.ErrNoCredential.Error())
}

func TestRunTestsSelectsSource(t *testing.T) {
	r := &fakeRunner{}
	s := &Service{Runner: r}

	_, err := s.RunTests(context.Background(), RunTestsParams{TestPath: "tests", TestFunction: "test_a"})
	require.NoError(t, err)
	assert.Equal(t, "tests", r.path)
	assert.Equal(t, "test_a", r.filter)
	assert.False(t, r.report)

	_, err = s.RunTests(context.Background(), RunTestsParams{TestPath: "tests", JSONReport: true})
	require.NoError(t, err)
	assert.True(t, r.report)

	_, err = s.RunTests(context.Background(), RunTestsParams{})
	require.NoError(t, err)
	assert.Equal(t, "", r.path)
}

func TestRunTestsEmptyPath(t *testing.T) {
	s := New(noCredentialConfig(t))
	res, err := s.RunTests(context.Background(), RunTestsParams{})
	require.NoError(t, err)
	assert.Equal(t, "Test path not found: ", res.Error)
	assert.NotNil(t, res.Outcomes)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Passed)
	assert.Zero(t, res.Failed)
}

type fakeChecker struct{ code string }

func (f *fakeChecker) Check(ctx context.Context, code string) *python.ValidationOutcome {
	f.code = code
	return &python.ValidationOutcome{Valid: false, Error: "unexpected indent", Line: 2}
}

func TestValidateSyntax(t *testing.T) {
	s := &Service{}
	res, err := s.ValidateSyntax(context.Background(), ValidateSyntaxParams{Code: "x = 1\n"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	c := &fakeChecker{}
	s = &Service{Checker: c}
	res, err = s.ValidateSyntax(context.Background(), ValidateSyntaxParams{Code: "x = 1\n  y = 2\n"})
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n  y = 2\n", c.code)
	assert.False(t, res.Valid)
	assert.Equal(t, 2, res.Line)
}

func TestConfigModelCaches(t *testing.T) {
	m := &ConfigModel{Config: llm.ModelConfig{APIType: llm.ModelTypeGemini}}
	_, err := m.Generator(context.Background())
	assert.ErrorIs(t, err, llm.ErrNoCredential)
	assert.Nil(t, m.gen)
}
