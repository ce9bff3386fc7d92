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

package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/cloudwego/rora/lang/project"
	"github.com/cloudwego/rora/lang/python"
)

// Request is the input of one generate_tests call.
type Request struct {
	Function    python.FunctionDescriptor `json:"function_info"`
	SourceCode  string                    `json:"source_code"`
	FilePath    string                    `json:"file_path"`
	ProjectRoot string                    `json:"project_root"`
	Framework   string                    `json:"framework"`
}

// Result is the outcome of one generate_tests call. On failure only Error
// is set.
type Result struct {
	TestCode         string   `json:"test_code"`
	TestFunctionName string   `json:"test_function_name"`
	Imports          []string `json:"imports"`
	Error            string   `json:"error,omitempty"`
}

func failure(msg string) *Result {
	return &Result{Imports: []string{}, Error: msg}
}

type PipelineState struct {
	RunID   string
	Request Request

	Project *project.ProjectContext // set once by gather_context
	Imports *python.ImportAnalysis  // set once by analyze_function

	Code            *Snapshot // latest generated code, nil before the first model call
	Validation      *python.ValidationOutcome
	ValidationError string
	RetryCount      int

	History []StepRecord
}

func NewState(req Request) *PipelineState {
	return &PipelineState{
		RunID:   uuid.NewString(),
		Request: req,
	}
}

// GeneratedCode returns the latest generated code, or "" when none.
func (st *PipelineState) GeneratedCode() string {
	if st == nil || st.Code == nil {
		return ""
	}
	code, _ := st.Code.Payload.(string)
	return code
}

type StepRecord struct {
	StepName string
	Attempt  int
	Status   StepStatus
	Error    string
	Time     time.Time
}

type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
	StepRetry  StepStatus = "retry"
)
