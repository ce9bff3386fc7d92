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

// Package mcp serves the editor operations as MCP tools over stdio, for
// agents that speak MCP instead of the editor protocol.
package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/rora/internal/service"
	"github.com/cloudwego/rora/lang/log"
)

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	Service       *service.Service
}

type Server struct {
	Server *server.MCPServer
}

func NewServer(opts ServerOptions) *Server {
	svr := server.NewMCPServer(opts.ServerName, opts.ServerVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range getServiceTools(opts.Service) {
		svr.AddTool(t.Tool, t.Handler)
	}
	svr.AddPrompt(mcp.NewPrompt("write_tests",
		mcp.WithPromptDescription("Generate, save and run unit tests for a Python function"),
		mcp.WithArgument("file_path", mcp.ArgumentDescription("the Python file to test")),
	), handleWriteTestsPrompt)
	return &Server{Server: svr}
}

// ServeStdio blocks until in is closed or ctx is done.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.Server)
	stdio.SetErrorLogger(log.StdLogger())
	log.Info("mcp server started")
	return stdio.Listen(ctx, in, out)
}
