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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport(t *testing.T) {
	data := []byte(`{
  "summary": {"passed": 1, "failed": 1, "error": 1, "total": 3, "collected": 3},
  "tests": [
    {"nodeid": "t.py::test_a", "outcome": "passed",
     "setup": {"duration": 0.001}, "call": {"duration": 0.002}, "teardown": {"duration": 0.001}},
    {"nodeid": "t.py::test_b", "outcome": "failed",
     "call": {"duration": 0.5, "crash": {"message": "assert 1 == 2"}, "longrepr": "def test_b():\n>       assert 1 == 2"}},
    {"nodeid": "t.py::test_c", "outcome": "error",
     "setup": {"duration": 0.1, "crash": {"message": "RuntimeError: no box"}, "longrepr": "fixture failed"}}
  ]
}`)
	res, err := ParseReport(data)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed)

	assert.InDelta(t, 0.004, res.Outcomes[0].Duration, 1e-9)
	assert.Equal(t, StatusFailed, res.Outcomes[1].Status)
	assert.Equal(t, "assert 1 == 2", res.Outcomes[1].Message)
	assert.Contains(t, res.Outcomes[1].Traceback, "assert 1 == 2")
	assert.Equal(t, StatusError, res.Outcomes[2].Status)
	assert.Equal(t, "RuntimeError: no box", res.Outcomes[2].Message)
	assert.Equal(t, "fixture failed", res.Outcomes[2].Traceback)
}

func TestParseReportSummaryWins(t *testing.T) {
	data := []byte(`{"summary": {"total": 10, "passed": 9, "failed": 1},
  "tests": [{"nodeid": "t.py::test_a", "outcome": "passed", "duration": 0.2}]}`)
	res, err := ParseReport(data)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 9, res.Passed)
	assert.Equal(t, 1, res.Failed)
	assert.InDelta(t, 0.2, res.Outcomes[0].Duration, 1e-9)
}

func TestParseReportPartialSummary(t *testing.T) {
	data := []byte(`{"summary": {"failed": 1},
  "tests": [{"nodeid": "t.py::test_a", "outcome": "failed"}, {"outcome": "weird"}]}`)
	res, err := ParseReport(data)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 0, res.Passed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "unknown", res.Outcomes[1].Name)
	assert.Equal(t, StatusError, res.Outcomes[1].Status)
}

func TestParseReportInvalid(t *testing.T) {
	_, err := ParseReport([]byte("not json"))
	assert.Error(t, err)
}
