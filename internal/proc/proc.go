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


// Package proc runs short-lived child processes with a deadline, bounded
// output capture and whole-process-group cleanup.
package proc

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/lang/log"
)

const (
	// DefaultMaxOutput caps each captured stream.
	DefaultMaxOutput = 10 * 1024 * 1024
	waitDelay        = 2 * time.Second
)

// ErrTimeout is returned when Timeout elapses before the child exits.
var ErrTimeout = errors.New("process timed out")

// Cmd describes one child process.
type Cmd struct {
	Name      string
	Args      []string
	Dir       string
	Stdin     io.Reader
	Timeout   time.Duration
	MaxOutput int
}

// Output is what the child wrote and how it exited.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run starts c and waits for it. A non-zero exit is not an error; a failure
// to start, a timeout or a cancelled ctx is.
func Run(ctx context.Context, c Cmd) (*Output, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	max := c.MaxOutput
	if max <= 0 {
		max = DefaultMaxOutput
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	stdout := &LimitedBuffer{Max: max}
	stderr := &LimitedBuffer{Max: max}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Debug("running %s %v in %q", c.Name, c.Args, c.Dir)
	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, ErrTimeout
	}
	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), "process cancelled")
	}

	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "start %s", c.Name)
		}
		out.ExitCode = exitErr.ExitCode()
	}
	return out, nil
}

// LimitedBuffer drops writes past Max bytes but reports them as written so
// the child never blocks on a full pipe.
type LimitedBuffer struct {
	buf bytes.Buffer
	Max int
}

func (b *LimitedBuffer) Write(p []byte) (int, error) {
	if room := b.Max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *LimitedBuffer) String() string { return b.buf.String() }
