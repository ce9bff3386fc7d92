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
	"encoding/json"

	"github.com/pkg/errors"
)

// jsonReport is the subset of a pytest-json-report file we read.
type jsonReport struct {
	Summary *struct {
		Total  *int `json:"total"`
		Passed *int `json:"passed"`
		Failed int  `json:"failed"`
		Error  int  `json:"error"`
	} `json:"summary"`
	Tests []struct {
		NodeID   string   `json:"nodeid"`
		Outcome  string   `json:"outcome"`
		Duration *float64 `json:"duration"`
		Setup    *stage   `json:"setup"`
		Call     *stage   `json:"call"`
		Teardown *stage   `json:"teardown"`
	} `json:"tests"`
}

type stage struct {
	Duration float64 `json:"duration"`
	Longrepr string  `json:"longrepr"`
	Crash    *struct {
		Message string `json:"message"`
	} `json:"crash"`
}

var reportStatus = map[string]Status{
	"passed":  StatusPassed,
	"failed":  StatusFailed,
	"error":   StatusError,
	"skipped": StatusSkipped,
	"xfailed": StatusSkipped,
	"xpassed": StatusPassed,
}

// ParseReport converts a pytest-json-report document. The report's own
// summary wins over a recount; errors are folded into Failed.
func ParseReport(data []byte) (*RunResult, error) {
	var rep jsonReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, errors.Wrap(err, "decode json report")
	}

	outcomes := make([]TestOutcome, 0, len(rep.Tests))
	for _, t := range rep.Tests {
		o := TestOutcome{Name: t.NodeID, Status: StatusError}
		if o.Name == "" {
			o.Name = "unknown"
		}
		if s, ok := reportStatus[t.Outcome]; ok {
			o.Status = s
		}
		if t.Duration != nil {
			o.Duration = *t.Duration
		} else {
			for _, st := range []*stage{t.Setup, t.Call, t.Teardown} {
				if st != nil {
					o.Duration += st.Duration
				}
			}
		}
		// a test broken in setup has no call stage
		detail := t.Call
		if detail == nil || (detail.Longrepr == "" && detail.Crash == nil) {
			detail = t.Setup
		}
		if detail != nil {
			o.Traceback = detail.Longrepr
			if detail.Crash != nil {
				o.Message = detail.Crash.Message
			}
		}
		outcomes = append(outcomes, o)
	}

	res := tally(outcomes)
	if s := rep.Summary; s != nil {
		if s.Total != nil {
			res.Total = *s.Total
		}
		if s.Passed != nil {
			res.Passed = *s.Passed
		} else {
			res.Passed = 0
		}
		res.Failed = s.Failed + s.Error
	}
	return res, nil
}
