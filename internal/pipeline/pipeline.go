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

// Package pipeline runs test generation as a small state machine:
// analyze_function, gather_context, generate_code and validate_code, with
// bounded regeneration when validation fails.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/rora/lang/log"
	"github.com/cloudwego/rora/lang/python"
)

// DefaultMaxRetry is how many times code is regenerated after failing
// validation.
const DefaultMaxRetry = 2

type Pipeline struct {
	Steps []Step
	Agent Agent
}

// StepError is returned by Run when the Agent aborts a step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }
func (e *StepError) Cause() error  { return e.Err }

// Run drives st from analyze_function to a terminal phase.
func (p *Pipeline) Run(ctx context.Context, st *PipelineState) error {
	agent := p.Agent
	if agent == nil {
		agent = &DefaultAgent{MaxRetry: DefaultMaxRetry}
	}
	steps := make(map[Phase]Step, len(p.Steps))
	for _, s := range p.Steps {
		steps[Phase(s.Name())] = s
	}

	phase := PhaseAnalyze
	attempts := map[Phase]int{}
	var lastErr error
	for !phase.Terminal() {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "generation canceled")
		}
		step, ok := steps[phase]
		if !ok {
			return errors.Errorf("no step registered for phase %s", phase)
		}
		attempts[phase]++

		event, err := p.runStep(ctx, agent, step, st, attempts[phase])
		next, ok := Next(phase, event)
		if !ok {
			return errors.Errorf("no transition from %s on %s", phase, event)
		}
		log.Debug("[%s] %s --%s--> %s", st.RunID, phase, event, next)

		switch event {
		case EventRollback:
			rollback(st)
			st.RetryCount++
		case EventAbort:
			lastErr = &StepError{Step: step.Name(), Err: err}
		}
		phase = next
	}
	if phase == PhaseFailed {
		return lastErr
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, agent Agent, step Step, st *PipelineState, attempt int) (Event, error) {
	result, err := step.Run(ctx, st)
	if err == nil && result != nil && result.Status == StepOK {
		if result.Snapshot != nil {
			applySnapshot(st, result.Snapshot)
		}
		st.History = append(st.History, StepRecord{
			StepName: step.Name(),
			Attempt:  attempt,
			Status:   StepOK,
			Time:     time.Now(),
		})
		return EventOK, nil
	}

	// Build result for Agent if step returned nil result
	if result == nil {
		result = &StepResult{Status: StepFailed, Recoverable: true}
	}
	if result.Status == StepOK {
		result = &StepResult{Status: StepFailed, Recoverable: false}
	}
	if err == nil {
		err = errors.Errorf("step %s failed", step.Name())
	}

	decision := agent.OnStepFailure(ctx, step, st, result, attempt)
	status := result.Status
	if decision != DecisionAbort {
		status = StepRetry
	}
	st.History = append(st.History, StepRecord{
		StepName: step.Name(),
		Attempt:  attempt,
		Status:   status,
		Error:    err.Error(),
		Time:     time.Now(),
	})
	return Event(decision), err
}

// Generate runs a fresh state for req and shapes the outcome. It never
// panics; any failure comes back in Result.Error.
func (p *Pipeline) Generate(ctx context.Context, req Request) (res *Result) {
	st := NewState(req)
	defer func() {
		if r := recover(); r != nil {
			log.Error("[%s] generation panicked: %v\n%s", st.RunID, r, debug.Stack())
			res = failure(fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Info("[%s] generating tests for %s in %s", st.RunID, req.Function.Name, req.FilePath)
	if err := p.Run(ctx, st); err != nil {
		log.Info("[%s] generation failed after %d retries: %v", st.RunID, st.RetryCount, err)
		return failure(userMessage(err))
	}

	code := st.GeneratedCode()
	name := req.Function.Name
	if name == "" {
		name = "unknown"
	}
	return &Result{
		TestCode:         code,
		TestFunctionName: "test_" + name,
		Imports:          python.ExtractImports(ctx, code),
	}
}

func userMessage(err error) string {
	var se *StepError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

func applySnapshot(st *PipelineState, snap *Snapshot) {
	if st == nil || snap == nil {
		return
	}
	switch snap.Kind {
	case KindGeneratedCode:
		st.Code = snap
	}
}

// rollback drops rejected code before it is regenerated.
func rollback(st *PipelineState) {
	if st == nil {
		return
	}
	st.Code = nil
}
