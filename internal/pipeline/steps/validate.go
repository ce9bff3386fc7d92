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
	"fmt"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/internal/pipeline"
	"github.com/cloudwego/rora/lang/python"
)

// MsgNoCode is the validation error for an empty model answer.
const MsgNoCode = "no code generated"

// SyntaxChecker decides whether code parses. *python.Checker is the
// production implementation.
type SyntaxChecker interface {
	Check(ctx context.Context, code string) *python.ValidationOutcome
}

// ValidateStep checks the generated code parses. Empty code is final;
// a syntax error may be regenerated. A nil Checker uses python3.
type ValidateStep struct {
	Checker SyntaxChecker
}

func (s *ValidateStep) Name() string { return string(pipeline.PhaseValidate) }

func (s *ValidateStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	code := st.GeneratedCode()
	if code == "" {
		st.Validation = &python.ValidationOutcome{Valid: false, Error: MsgNoCode}
		st.ValidationError = MsgNoCode
		return &pipeline.StepResult{Status: pipeline.StepFailed, Recoverable: false}, errors.New(MsgNoCode)
	}

	var out *python.ValidationOutcome
	if s.Checker != nil {
		out = s.Checker.Check(ctx, code)
	} else {
		out = python.ValidateSyntax(ctx, code)
	}
	st.Validation = out
	if out.Valid {
		st.ValidationError = ""
		return &pipeline.StepResult{Status: pipeline.StepOK}, nil
	}
	if out.Line > 0 {
		st.ValidationError = fmt.Sprintf("syntax error at line %d: %s", out.Line, out.Error)
	} else {
		st.ValidationError = "syntax error: " + out.Error
	}
	return &pipeline.StepResult{Status: pipeline.StepFailed, Recoverable: true}, errors.New(st.ValidationError)
}
