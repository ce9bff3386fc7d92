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

// Package executor runs pytest as a child process and normalises what it
// reports into one outcome model.
package executor

import (
	"github.com/pkg/errors"
)

type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// TestOutcome is the result of one test case.
type TestOutcome struct {
	Name      string  `json:"name"` // pytest node id
	Status    Status  `json:"status"`
	Duration  float64 `json:"duration"` // seconds
	Message   string  `json:"message,omitempty"`
	Traceback string  `json:"traceback,omitempty"`
}

// RunResult aggregates one runner invocation. Error is set when the runner
// could not produce results at all.
type RunResult struct {
	Outcomes []TestOutcome `json:"outcomes"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Error    string        `json:"error,omitempty"`
}

var (
	ErrPathNotFound = errors.New("test path not found")
	ErrTimeout      = errors.New("test execution timed out")
)

func errorResult(msg string) *RunResult {
	return &RunResult{Outcomes: []TestOutcome{}, Error: msg}
}

// tally fills the counts from the outcome list. Errors count as failures.
func tally(outcomes []TestOutcome) *RunResult {
	res := &RunResult{Outcomes: outcomes, Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusPassed:
			res.Passed++
		case StatusFailed, StatusError:
			res.Failed++
		}
	}
	return res
}
