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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/internal/proc"
	"github.com/cloudwego/rora/lang/log"
)

const (
	DefaultPython  = "python3"
	DefaultTimeout = 60 * time.Second

	// maxOutput caps each captured stream.
	maxOutput = proc.DefaultMaxOutput
)

// Runner executes pytest against a file or directory.
type Runner struct {
	Python  string
	Timeout time.Duration
}

func NewRunner(python string, timeout time.Duration) *Runner {
	if python == "" {
		python = DefaultPython
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Python: python, Timeout: timeout}
}

// Run executes the tests at path and parses console output. filter is passed
// as a -k expression when non-empty.
func (r *Runner) Run(ctx context.Context, path, filter string) *RunResult {
	return r.RunWith(ctx, ConsoleSource{}, path, filter)
}

// RunWithReport is Run reading a pytest-json-report file instead.
func (r *Runner) RunWithReport(ctx context.Context, path, filter string) *RunResult {
	return r.RunWith(ctx, ReportSource{}, path, filter)
}

// RunWith never fails: every problem is reported in RunResult.Error.
func (r *Runner) RunWith(ctx context.Context, src ResultSource, path, filter string) *RunResult {
	target, dir, err := resolve(path)
	if err != nil {
		if errors.Is(err, ErrPathNotFound) {
			return errorResult("Test path not found: " + path)
		}
		return errorResult(err.Error())
	}

	res, err := src.Acquire(ctx, func(ctx context.Context, extra []string) (*Capture, error) {
		return r.invoke(ctx, target, dir, filter, extra)
	})
	switch {
	case errors.Is(err, ErrTimeout):
		return errorResult(fmt.Sprintf("Test execution timed out after %g seconds", r.timeout().Seconds()))
	case err != nil:
		return errorResult(err.Error())
	}
	log.Debug("pytest %s: total=%d passed=%d failed=%d", path, res.Total, res.Passed, res.Failed)
	return res
}

// resolve returns the absolute target and the directory pytest runs in: the
// parent for a file, the path itself for a directory.
func resolve(path string) (target, dir string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", ErrPathNotFound
		}
		return "", "", errors.Wrap(err, "stat test path")
	}
	target, err = filepath.Abs(path)
	if err != nil {
		return "", "", errors.Wrap(err, "resolve test path")
	}
	if info.IsDir() {
		return target, target, nil
	}
	return target, filepath.Dir(target), nil
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func (r *Runner) args(target, filter string, extra []string) []string {
	args := []string{"-m", "pytest", target, "-v", "--tb=short"}
	if filter != "" {
		args = append(args, "-k", filter)
	}
	return append(args, extra...)
}

func (r *Runner) invoke(ctx context.Context, target, dir, filter string, extra []string) (*Capture, error) {
	python := r.Python
	if python == "" {
		python = DefaultPython
	}
	out, err := proc.Run(ctx, proc.Cmd{
		Name:      python,
		Args:      r.args(target, filter, extra),
		Dir:       dir,
		Timeout:   r.timeout(),
		MaxOutput: maxOutput,
	})
	if errors.Is(err, proc.ErrTimeout) {
		return nil, ErrTimeout
	}
	if err != nil {
		return nil, err
	}
	return &Capture{Stdout: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}, nil
}
