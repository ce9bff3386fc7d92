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

type Agent interface {
	OnStepFailure(
		ctx context.Context,
		step Step,
		st *PipelineState,
		result *StepResult,
		attempt int,
	) AgentDecision
}

type AgentDecision string

const (
	DecisionRetry    AgentDecision = "retry"
	DecisionRollback AgentDecision = "rollback"
	DecisionAbort    AgentDecision = "abort"
)

// DefaultAgent bounds regeneration after failed validation by MaxRetry.
// A rejected code snapshot is rolled back so the next attempt starts clean.
// Other recoverable failures are retried in place up to MaxRetry attempts.
type DefaultAgent struct {
	MaxRetry int
}

func (a *DefaultAgent) OnStepFailure(
	ctx context.Context,
	step Step,
	st *PipelineState,
	result *StepResult,
	attempt int,
) AgentDecision {
	if result != nil && !result.Recoverable {
		return DecisionAbort
	}
	if step != nil && Phase(step.Name()) == PhaseValidate {
		if st != nil && st.RetryCount < a.MaxRetry {
			return DecisionRollback
		}
		return DecisionAbort
	}
	if attempt > a.MaxRetry {
		return DecisionAbort
	}
	return DecisionRetry
}
