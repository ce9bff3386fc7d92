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

package rpc

import (
	"github.com/cloudwego/rora/internal/service"
)

const (
	MethodParseFile      = "parse_file"
	MethodGenerateTests  = "generate_tests"
	MethodRunTests       = "run_tests"
	MethodValidateSyntax = "validate_syntax"
)

// RegisterService exposes the four editor operations.
func (s *Server) RegisterService(svc *service.Service) {
	s.Register(MethodParseFile, Handle(svc.ParseFile))
	s.Register(MethodGenerateTests, Handle(svc.GenerateTests))
	s.Register(MethodRunTests, Handle(svc.RunTests))
	s.Register(MethodValidateSyntax, Handle(svc.ValidateSyntax))
}
