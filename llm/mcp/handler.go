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

package mcp

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/rora/internal/service"
)

const (
	ToolParseFile      = "parse_file"
	ToolGenerateTests  = "generate_tests"
	ToolRunTests       = "run_tests"
	ToolValidateSyntax = "validate_syntax"

	DescParseFile      = "List the functions and methods of a Python file with their signatures, docstrings, decorators and bodies."
	DescGenerateTests  = "Generate unit tests for one function with the configured language model. The code is syntax-checked and regenerated up to two times."
	DescRunTests       = "Run pytest on a file or directory and return per-test outcomes with pass and fail counts."
	DescValidateSyntax = "Check Python source for syntax errors and report the first offending line."
)

var (
	SchemaParseFile      = GetJSONSchema(service.ParseFileParams{})
	SchemaGenerateTests  = GetJSONSchema(service.GenerateTestsParams{})
	SchemaRunTests       = GetJSONSchema(service.RunTestsParams{})
	SchemaValidateSyntax = GetJSONSchema(service.ValidateSyntaxParams{})
)

// GetJSONSchema reflects the input schema of a tool from its params struct.
func GetJSONSchema(v any) json.RawMessage {
	r := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(v)
	s.Version = ""
	js, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return js
}

type Tool struct {
	mcp.Tool
	Handler server.ToolHandlerFunc
}

// NewTool binds a typed handler. Handler errors are returned to the client
// as an error result, not as a protocol error.
func NewTool[R any, T any](name string, desc string, schema json.RawMessage, handler func(ctx context.Context, req R) (*T, error)) Tool {
	return Tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schema),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return nil, err
			}
			var final string
			var isError bool
			if resp, err := handler(ctx, req); err != nil {
				isError = true
				final = err.Error()
			} else if js, err := json.Marshal(resp); err != nil {
				isError = true
				final = err.Error()
			} else {
				final = string(js)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(final),
				},
				IsError: isError,
			}, nil
		},
	}
}

func getServiceTools(svc *service.Service) []Tool {
	return []Tool{
		NewTool(ToolParseFile, DescParseFile, SchemaParseFile, svc.ParseFile),
		NewTool(ToolGenerateTests, DescGenerateTests, SchemaGenerateTests, svc.GenerateTests),
		NewTool(ToolRunTests, DescRunTests, SchemaRunTests, svc.RunTests),
		NewTool(ToolValidateSyntax, DescValidateSyntax, SchemaValidateSyntax, svc.ValidateSyntax),
	}
}

const promptWriteTests = `You are writing unit tests for a Python project.
1. Call parse_file on the source file and pick the function to test.
2. Call generate_tests with that function's descriptor, the file text, the file path and the project root.
3. Save the returned test_code next to the source as test_<module>.py.
4. Call run_tests on the saved file and fix failing tests that are wrong about the code under test.`

func handleWriteTestsPrompt(
	ctx context.Context,
	request mcp.GetPromptRequest,
) (*mcp.GetPromptResult, error) {
	text := promptWriteTests
	if file := request.Params.Arguments["file_path"]; file != "" {
		text += "\n\nThe source file is " + file + "."
	}
	return &mcp.GetPromptResult{
		Description: "A workflow for generating and running unit tests",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}, nil
}
