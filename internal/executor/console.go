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
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxErrorLen caps the runner output surfaced when no test result could be
// read from it.
const MaxErrorLen = 500

// maxExcerptLines caps a failure excerpt.
const maxExcerptLines = 10

var (
	statusLine   = regexp.MustCompile(`^(\S.*?)\s+(PASSED|FAILED|ERROR|SKIPPED)(?:\s+\(.*\))?(?:\s+\[\s*\d+%\])?$`)
	blockHeader  = regexp.MustCompile(`^_{3,}\s*(.+?)\s*_{3,}$`)
	summaryEntry = regexp.MustCompile(`^(?:FAILED|ERROR)\s+(\S+)\s+-\s+(.+)$`)
)

var markerStatus = map[string]Status{
	"PASSED":  StatusPassed,
	"FAILED":  StatusFailed,
	"ERROR":   StatusError,
	"SKIPPED": StatusSkipped,
}

// ParseConsole reads `pytest -v` output. Failed and errored tests get a
// short excerpt of their failure block as message.
func ParseConsole(stdout, stderr string, exitCode int) *RunResult {
	lines := strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	outcomes := []TestOutcome{}
	failures := map[string]int{}
	for _, line := range lines {
		m := statusLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		o := TestOutcome{Name: m[1], Status: markerStatus[m[2]]}
		if o.Status == StatusFailed || o.Status == StatusError {
			short := shortName(o.Name)
			o.Message = failureExcerpt(lines, o.Name, failures[short])
			failures[short]++
		}
		outcomes = append(outcomes, o)
	}

	if len(outcomes) == 0 && exitCode != 0 {
		msg := stderr
		if strings.TrimSpace(msg) == "" {
			msg = stdout
		}
		if strings.TrimSpace(msg) == "" {
			return errorResult("Unknown error")
		}
		return errorResult(truncate(msg, MaxErrorLen))
	}
	return tally(outcomes)
}

// failureExcerpt finds the "____ name ____" block of a test and returns up
// to ten lines of it, stopping at the next divider. Blocks only carry the
// short name, so when several match, the one whose location lines point at
// the node's file wins, else the occurrence-th. Without a block it falls
// back to the short test summary line.
func failureExcerpt(lines []string, nodeID string, occurrence int) string {
	blocks := failureBlocks(lines, shortName(nodeID))
	var block []string
	switch {
	case len(blocks) == 1:
		block = blocks[0]
	case len(blocks) > 1:
		block = pickBlock(blocks, nodeID, occurrence)
	}
	if len(block) > maxExcerptLines {
		block = block[:maxExcerptLines]
	}
	if msg := strings.TrimSpace(strings.Join(block, "\n")); msg != "" {
		return msg
	}

	for _, line := range lines {
		if m := summaryEntry.FindStringSubmatch(strings.TrimSpace(line)); m != nil && m[1] == nodeID {
			return m[2]
		}
	}
	return ""
}

// shortName is the part of a node id pytest prints in block headers.
func shortName(nodeID string) string {
	if i := strings.Index(nodeID, "::"); i >= 0 {
		return strings.ReplaceAll(nodeID[i+2:], "::", ".")
	}
	return nodeID
}

func failureBlocks(lines []string, short string) [][]string {
	var blocks [][]string
	var cur []string
	in := false
	for _, line := range lines {
		if in {
			if !isDivider(line) {
				cur = append(cur, line)
				continue
			}
			blocks = append(blocks, cur)
			cur, in = nil, false
		}
		if m := blockHeader.FindStringSubmatch(line); m != nil && (m[1] == short || strings.HasSuffix(m[1], " of "+short)) {
			in = true
		}
	}
	if in {
		blocks = append(blocks, cur)
	}
	return blocks
}

// pickBlock prefers the block with a "file.py:N: in ..." line for the
// node's file.
func pickBlock(blocks [][]string, nodeID string, occurrence int) []string {
	if i := strings.Index(nodeID, "::"); i > 0 {
		prefix := nodeID[:i] + ":"
		for _, b := range blocks {
			for _, line := range b {
				if strings.HasPrefix(strings.TrimSpace(line), prefix) {
					return b
				}
			}
		}
	}
	if occurrence < len(blocks) {
		return blocks[occurrence]
	}
	return blocks[0]
}

// isDivider matches pytest section rules such as "==== FAILURES ====" and
// "____ test_x ____". Output that happens to start and end with the same
// characters is misread as a divider.
func isDivider(line string) bool {
	return (strings.HasPrefix(line, "_") && strings.HasSuffix(line, "_")) ||
		(strings.HasPrefix(line, "=") && strings.HasSuffix(line, "="))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
