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

package executor

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/lang/log"
)

// Capture is the raw output of one runner process.
type Capture struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// InvokeFunc starts the runner once with extra arguments appended.
type InvokeFunc func(ctx context.Context, extra []string) (*Capture, error)

// ResultSource decides how results are read back from a runner process.
// Acquire owns any resources it creates and releases them before returning.
type ResultSource interface {
	Acquire(ctx context.Context, invoke InvokeFunc) (*RunResult, error)
}

// ConsoleSource reads results from verbose console output.
type ConsoleSource struct{}

func (ConsoleSource) Acquire(ctx context.Context, invoke InvokeFunc) (*RunResult, error) {
	c, err := invoke(ctx, nil)
	if err != nil {
		return nil, err
	}
	return ParseConsole(c.Stdout, c.Stderr, c.ExitCode), nil
}

// ReportSource asks pytest-json-report for a machine-readable report in a
// temporary file. An empty or unreadable report falls back to console output.
type ReportSource struct {
	// Dir holds the report file; empty means the system temp dir.
	Dir string
}

func (s ReportSource) Acquire(ctx context.Context, invoke InvokeFunc) (*RunResult, error) {
	f, err := os.CreateTemp(s.Dir, "rora-report-*.json")
	if err != nil {
		return nil, errors.Wrap(err, "create report file")
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	c, err := invoke(ctx, []string{"--json-report", "--json-report-file=" + path})
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err == nil && len(data) > 0 {
		res, perr := ParseReport(data)
		if perr == nil {
			return res, nil
		}
		err = perr
	}
	log.Debug("json report unusable, reading console output: %v", err)
	return ParseConsole(c.Stdout, c.Stderr, c.ExitCode), nil
}
