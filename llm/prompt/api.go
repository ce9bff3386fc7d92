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

package prompt

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/lang/project"
	"github.com/cloudwego/rora/lang/python"
)

type Prompt interface {
	String() string
}

type TextPrompt string

func (p TextPrompt) String() string {
	return string(p)
}

func NewTextPrompt(content string) Prompt {
	return TextPrompt(content)
}

// Framework is the assertion style generated tests are written in.
type Framework string

const (
	FrameworkPytest   Framework = "pytest"
	FrameworkUnittest Framework = "unittest"
)

// NewFramework maps a wire value to a Framework. Empty means pytest; any
// other value selects class-based unittest tests.
func NewFramework(s string) Framework {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pytest", "assertion-based":
		return FrameworkPytest
	}
	return FrameworkUnittest
}

// MaxSourceExcerpt caps how much of the source file goes into a prompt.
const MaxSourceExcerpt = 3000

//go:embed testgen.md
var PromptTestGen string

var testGenTpl = template.Must(template.New("testgen").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(PromptTestGen))

// TestGenInput holds everything one generation prompt is built from.
type TestGenInput struct {
	Function      python.FunctionDescriptor
	Source        string
	Project       *project.ProjectContext
	Imports       *python.ImportAnalysis
	Framework     Framework
	RetryCount    int
	PreviousError string
}

type testGenView struct {
	Body       string
	Signature  string
	Docstring  string
	IsAsync    bool
	ClassName  string
	Source     string
	Imports    []string
	Pytest     bool
	Patterns   []string
	MockDeps   []string
	RetryError string
}

// TestGenPrompt renders the generation prompt. The previous validation error
// is only included on retries.
type TestGenPrompt struct {
	in TestGenInput
}

func NewTestGenPrompt(in TestGenInput) *TestGenPrompt {
	return &TestGenPrompt{in: in}
}

func (p *TestGenPrompt) Render() (string, error) {
	in := p.in
	v := testGenView{
		Body:      in.Function.Body,
		Signature: in.Function.Signature,
		IsAsync:   in.Function.IsAsync,
		Source:    excerpt(in.Source, MaxSourceExcerpt),
		Pytest:    in.Framework != FrameworkUnittest,
	}
	if in.Function.Docstring != nil {
		v.Docstring = *in.Function.Docstring
	}
	if in.Function.IsMethod && in.Function.ClassName != nil {
		v.ClassName = *in.Function.ClassName
	}
	if in.Project != nil {
		v.Patterns = in.Project.TestPatterns
	}
	if in.Imports != nil {
		v.Imports = in.Imports.RequiredImports
		v.MockDeps = in.Imports.ExternalDependencies
	}
	if in.RetryCount > 0 {
		v.RetryError = in.PreviousError
	}

	var buf bytes.Buffer
	if err := testGenTpl.Execute(&buf, v); err != nil {
		return "", errors.Wrap(err, "render test generation prompt")
	}
	return buf.String(), nil
}

func (p *TestGenPrompt) String() string {
	s, err := p.Render()
	if err != nil {
		panic(err)
	}
	return s
}

// excerpt cuts s to at most n bytes without splitting a UTF-8 sequence.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
