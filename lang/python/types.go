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

// Package python extracts function metadata from Python sources and checks
// Python syntax. Extraction is built on the tree-sitter Python grammar;
// syntax checks ask the interpreter first.
package python

// FunctionDescriptor describes one function or method found in a source file.
type FunctionDescriptor struct {
	Name       string   `json:"name"`
	Lineno     int      `json:"lineno"`
	EndLineno  int      `json:"end_lineno"`
	Signature  string   `json:"signature"`
	Docstring  *string  `json:"docstring"`
	Decorators []string `json:"decorators"`
	IsAsync    bool     `json:"is_async"`
	IsMethod   bool     `json:"is_method"`
	ClassName  *string  `json:"class_name"`
	Body       string   `json:"body"`
}

// ParseResult is what parse_file returns. Error is set instead of failing the
// call when the file is missing or not valid Python.
type ParseResult struct {
	Functions []FunctionDescriptor `json:"functions"`
	Error     string               `json:"error,omitempty"`
}

// ValidationOutcome is the result of a syntax check. Line is 1-based and only
// set when Valid is false.
type ValidationOutcome struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Line  int    `json:"line,omitempty"`
}

// ImportAnalysis summarises what a test for one function will need.
type ImportAnalysis struct {
	RequiredImports      []string `json:"required_imports"`
	FunctionSignature    string   `json:"function_signature"`
	HasDocstring         bool     `json:"has_docstring"`
	IsAsync              bool     `json:"is_async"`
	IsMethod             bool     `json:"is_method"`
	ClassName            *string  `json:"class_name"`
	UsedNames            []string `json:"used_names"`
	ExternalDependencies []string `json:"external_dependencies"`
	NeedsMocking         bool     `json:"needs_mocking"`
}
