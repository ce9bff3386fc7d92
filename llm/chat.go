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

package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/cloudwego/rora/lang/log"
)

var _ Generator = (*ChatGenerator)(nil)

// ChatGenerator sends one user message per call through a compiled eino
// chain and returns the reply text.
type ChatGenerator struct {
	opts     ChatGeneratorOptions
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
}

type ChatGeneratorOptions struct {
	Name      string `json:"name"`
	SysPrompt string `json:"-"`
	// Number of retries, default: 3
	Retries int `json:"retries"`
	// Request timeout, default: 600s
	Timeout time.Duration `json:"timeout"`
}

func NewChatGenerator(ctx context.Context, cm ChatModel, opts ChatGeneratorOptions) (*ChatGenerator, error) {
	runnable, err := compose.NewChain[[]*schema.Message, *schema.Message]().
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compile chat chain")
	}
	if opts.Retries == 0 {
		opts.Retries = 3
	}
	if opts.Timeout == 0 {
		opts.Timeout = 600 * time.Second
	}
	return &ChatGenerator{opts: opts, runnable: runnable}, nil
}

func (p *ChatGenerator) Call(ctx context.Context, input string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if p.opts.SysPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(p.opts.SysPrompt))
	}
	msgs = append(msgs, schema.UserMessage(input))
	log.Debug("[User] %s", input)

	return callWithRetry(ctx, p.opts.Name, p.opts.Retries, p.opts.Timeout, func(ctx context.Context) (string, error) {
		out, err := p.runnable.Invoke(ctx, msgs, compose.WithCallbacks(CallbackHandler{}))
		if err != nil {
			return "", err
		}
		return out.Content, nil
	})
}

// backoff waits 1s, 2s, 4s... capped at 10s.
var backoff = func(attempt int) time.Duration {
	wait := time.Duration(1<<uint(attempt-1)) * time.Second
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

// callWithRetry runs call with a per-attempt timeout, retrying only
// transport failures.
func callWithRetry(ctx context.Context, name string, retries int, timeout time.Duration, call func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying LLM call %s (attempt %d/%d)...", name, attempt+1, retries+1)
			select {
			case <-ctx.Done():
				return "", errors.Wrap(ctx.Err(), "LLM call canceled")
			case <-time.After(backoff(attempt)):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := call(attemptCtx)
		cancel()
		if err == nil {
			return out, nil
		}

		lastErr = err
		if !isRetryable(err) {
			log.Error("Non-retryable error occurred: %v", err)
			return "", errors.Wrap(err, "LLM call error")
		}
		log.Info("Retryable error occurred (attempt %d/%d): %v", attempt+1, retries+1, err)
	}
	return "", errors.Wrapf(lastErr, "LLM call failed after %d attempts", retries+1)
}

func isRetryable(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "operation timed out") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "read tcp") ||
		strings.Contains(errStr, "write tcp")
}

type CallbackHandler struct{}

var _ callbacks.Handler = (*CallbackHandler)(nil)

func (h CallbackHandler) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	log.Debug("<OnStart> %+v", info)
	return ctx
}

func (h CallbackHandler) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	log.Debug("<OnEnd> %+v OUTPUT: %v", info, output)
	return ctx
}

func (h CallbackHandler) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Error("<OnError> %+v ERROR: %v", info, err)
	return ctx
}

func (h CallbackHandler) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (h CallbackHandler) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
