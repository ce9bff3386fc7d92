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
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/rora/lang/python"
)

type mockStepOK struct {
	name  string
	snap  *Snapshot
	calls int
}

func (m *mockStepOK) Name() string { return m.name }

func (m *mockStepOK) Run(ctx context.Context, st *PipelineState) (*StepResult, error) {
	m.calls++
	return &StepResult{Status: StepOK, Snapshot: m.snap}, nil
}

type mockStepFail struct {
	name        string
	recoverable bool
	calls       int
}

func (m *mockStepFail) Name() string { return m.name }

func (m *mockStepFail) Run(ctx context.Context, st *PipelineState) (*StepResult, error) {
	m.calls++
	return &StepResult{
		Status:      StepFailed,
		Recoverable: m.recoverable,
	}, errors.New("boom")
}

type mockStepPanic struct{ name string }

func (m *mockStepPanic) Name() string { return m.name }

func (m *mockStepPanic) Run(ctx context.Context, st *PipelineState) (*StepResult, error) {
	panic("unexpected")
}

func okSteps() []Step {
	return []Step{
		&mockStepOK{name: string(PhaseAnalyze)},
		&mockStepOK{name: string(PhaseGather)},
		&mockStepOK{name: string(PhaseGenerate), snap: NewCodeSnapshot("import os\n\ndef test_f():\n    assert os\n")},
		&mockStepOK{name: string(PhaseValidate)},
	}
}

func TestPipeline_Run_Success(t *testing.T) {
	ctx := context.Background()
	st := NewState(Request{})
	pl := &Pipeline{Steps: okSteps()}
	if err := pl.Run(ctx, st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Code == nil || st.Code.Kind != KindGeneratedCode {
		t.Fatal("expected generated code snapshot")
	}
	if len(st.History) != 4 {
		t.Errorf("expected 4 history records, got %d", len(st.History))
	}
	for _, h := range st.History {
		if h.Status != StepOK {
			t.Errorf("history %s status: got %s", h.StepName, h.Status)
		}
	}
	if st.RunID == "" {
		t.Error("expected run id")
	}
}

func TestPipeline_Generate_Success(t *testing.T) {
	pl := &Pipeline{Steps: okSteps()}
	res := pl.Generate(context.Background(), Request{Function: functionNamed("f")})
	if res.Error != "" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	if res.TestFunctionName != "test_f" {
		t.Errorf("test name: got %s", res.TestFunctionName)
	}
	if len(res.Imports) != 1 || res.Imports[0] != "import os" {
		t.Errorf("imports: got %v", res.Imports)
	}
}

func TestPipeline_Run_AbortOnNonRecoverable(t *testing.T) {
	ctx := context.Background()
	st := NewState(Request{})
	gen := &mockStepFail{name: string(PhaseGenerate)}
	steps := okSteps()
	steps[2] = gen

	pl := &Pipeline{Steps: steps, Agent: &DefaultAgent{MaxRetry: 3}}
	err := pl.Run(ctx, st)
	if err == nil {
		t.Fatal("expected error on non-recoverable failure")
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 call, got %d", gen.calls)
	}
	if userMessage(err) != "boom" {
		t.Errorf("user message: got %q", userMessage(err))
	}
}

func TestPipeline_Run_RetryInPlace(t *testing.T) {
	st := NewState(Request{})
	gather := &mockStepFail{name: string(PhaseGather), recoverable: true}
	steps := okSteps()
	steps[1] = gather

	pl := &Pipeline{Steps: steps, Agent: &DefaultAgent{MaxRetry: 2}}
	if err := pl.Run(context.Background(), st); err == nil {
		t.Fatal("expected error")
	}
	if gather.calls != 3 {
		t.Errorf("expected 3 calls, got %d", gather.calls)
	}
	if st.RetryCount != 0 {
		t.Errorf("retry count only tracks regeneration, got %d", st.RetryCount)
	}
}

func TestPipeline_Run_RegenerateOnValidationFailure(t *testing.T) {
	st := NewState(Request{})
	steps := okSteps()
	gen := steps[2].(*mockStepOK)
	val := &mockStepFail{name: string(PhaseValidate), recoverable: true}
	steps[3] = val

	pl := &Pipeline{Steps: steps, Agent: &DefaultAgent{MaxRetry: 2}}
	if err := pl.Run(context.Background(), st); err == nil {
		t.Fatal("expected error")
	}
	if gen.calls != 3 || val.calls != 3 {
		t.Errorf("expected 3 generate/validate rounds, got %d/%d", gen.calls, val.calls)
	}
	if st.RetryCount != 2 {
		t.Errorf("retry count: got %d", st.RetryCount)
	}
}

func TestPipeline_Generate_RecoversPanic(t *testing.T) {
	steps := okSteps()
	steps[0] = &mockStepPanic{name: string(PhaseAnalyze)}
	res := (&Pipeline{Steps: steps}).Generate(context.Background(), Request{})
	if res.Error == "" || res.TestCode != "" || res.TestFunctionName != "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPipeline_Run_MissingStep(t *testing.T) {
	pl := &Pipeline{Steps: okSteps()[:2]}
	if err := pl.Run(context.Background(), NewState(Request{})); err == nil {
		t.Fatal("expected error for missing generate step")
	}
}

func TestPipeline_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps := okSteps()
	if err := (&Pipeline{Steps: steps}).Run(ctx, NewState(Request{})); err == nil {
		t.Fatal("expected cancellation error")
	}
	if steps[0].(*mockStepOK).calls != 0 {
		t.Error("no step should run after cancellation")
	}
}

func TestDefaultAgent_OnStepFailure(t *testing.T) {
	ctx := context.Background()
	agent := &DefaultAgent{MaxRetry: 2}
	validate := &mockStepOK{name: string(PhaseValidate)}
	gather := &mockStepOK{name: string(PhaseGather)}

	t.Run("abort when not recoverable", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, validate, &PipelineState{}, &StepResult{Recoverable: false}, 1)
		if d != DecisionAbort {
			t.Errorf("got %s", d)
		}
	})

	t.Run("rollback invalid code while retries remain", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, validate, &PipelineState{RetryCount: 1}, &StepResult{Recoverable: true}, 2)
		if d != DecisionRollback {
			t.Errorf("got %s", d)
		}
	})

	t.Run("abort invalid code at max", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, validate, &PipelineState{RetryCount: 2}, &StepResult{Recoverable: true}, 3)
		if d != DecisionAbort {
			t.Errorf("got %s", d)
		}
	})

	t.Run("retry other steps in place", func(t *testing.T) {
		d := agent.OnStepFailure(ctx, gather, &PipelineState{}, &StepResult{Recoverable: true}, 1)
		if d != DecisionRetry {
			t.Errorf("got %s", d)
		}
	})
}

func TestTransitions(t *testing.T) {
	order := []Phase{PhaseAnalyze, PhaseGather, PhaseGenerate, PhaseValidate, PhaseDone}
	for i := 0; i < len(order)-1; i++ {
		next, ok := Next(order[i], EventOK)
		if !ok || next != order[i+1] {
			t.Errorf("%s ok: got %s", order[i], next)
		}
		if next, ok := Next(order[i], EventAbort); !ok || next != PhaseFailed {
			t.Errorf("%s abort: got %s", order[i], next)
		}
	}
	if next, _ := Next(PhaseValidate, EventRollback); next != PhaseGenerate {
		t.Errorf("validate rollback: got %s", next)
	}
	if _, ok := Next(PhaseGather, EventRollback); ok {
		t.Error("gather has no rollback edge")
	}
	if _, ok := Next(PhaseDone, EventOK); ok {
		t.Error("terminal phase has no edges")
	}
}

func TestApplySnapshotAndRollback(t *testing.T) {
	st := &PipelineState{}
	snap := NewCodeSnapshot("x = 1")
	applySnapshot(st, snap)
	if st.Code != snap || st.GeneratedCode() != "x = 1" {
		t.Error("code not set")
	}
	applySnapshot(st, NewSnapshot("other", "y", []byte("y")))
	if st.Code != snap {
		t.Error("unknown kinds must be ignored")
	}
	rollback(st)
	if st.Code != nil || st.GeneratedCode() != "" {
		t.Error("rollback did not clear code")
	}
}

func functionNamed(name string) (fn python.FunctionDescriptor) {
	fn.Name = name
	return
}
