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
)

// Step is one state of the generation machine. Name must be one of the
// Phase values.
type Step interface {
	Name() string
	Run(ctx context.Context, st *PipelineState) (*StepResult, error)
}

type StepResult struct {
	Status StepStatus
	// Recoverable tells the Agent whether another attempt can help.
	Recoverable bool
	Snapshot    *Snapshot
}

// Phase names the states of the generation machine.
type Phase string

const (
	PhaseAnalyze  Phase = "analyze_function"
	PhaseGather   Phase = "gather_context"
	PhaseGenerate Phase = "generate_code"
	PhaseValidate Phase = "validate_code"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
)

// Terminal reports whether no step runs in p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Event is what happened in a phase: the step succeeded, or the Agent
// decided how to react to its failure.
type Event string

const (
	EventOK       Event = "ok"
	EventRetry    Event = Event(DecisionRetry)
	EventRollback Event = Event(DecisionRollback)
	EventAbort    Event = Event(DecisionAbort)
)

type edge struct {
	from Phase
	on   Event
}

// transitions is the complete machine. A pair missing here is a bug.
var transitions = map[edge]Phase{
	{PhaseAnalyze, EventOK}:    PhaseGather,
	{PhaseAnalyze, EventRetry}: PhaseAnalyze,
	{PhaseAnalyze, EventAbort}: PhaseFailed,

	{PhaseGather, EventOK}:    PhaseGenerate,
	{PhaseGather, EventRetry}: PhaseGather,
	{PhaseGather, EventAbort}: PhaseFailed,

	{PhaseGenerate, EventOK}:    PhaseValidate,
	{PhaseGenerate, EventRetry}: PhaseGenerate,
	{PhaseGenerate, EventAbort}: PhaseFailed,

	{PhaseValidate, EventOK}:       PhaseDone,
	{PhaseValidate, EventRollback}: PhaseGenerate,
	{PhaseValidate, EventAbort}:    PhaseFailed,
}

// Next returns the phase that follows from on event, and false when the
// machine has no such edge.
func Next(from Phase, on Event) (Phase, bool) {
	to, ok := transitions[edge{from, on}]
	return to, ok
}
