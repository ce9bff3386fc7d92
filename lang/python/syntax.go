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

package python

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cloudwego/rora/internal/proc"
	"github.com/cloudwego/rora/lang/log"
)

const (
	DefaultInterpreter  = "python3"
	DefaultCheckTimeout = 10 * time.Second
)

// checkScript parses stdin with the interpreter's own parser and prints the
// first error as {"line": n, "msg": "..."}.
const checkScript = `import ast, json, sys
src = getattr(sys.stdin, "buffer", sys.stdin).read()
try:
    ast.parse(src)
except SyntaxError as e:
    sys.stdout.write(json.dumps({"line": e.lineno or 0, "msg": e.msg or "invalid syntax"}))
    sys.exit(1)
except Exception as e:
    sys.stdout.write(json.dumps({"line": 0, "msg": str(e) or type(e).__name__}))
    sys.exit(1)
`

// Checker validates Python source with a real interpreter. When the
// interpreter cannot be run it falls back to the tree-sitter grammar.
type Checker struct {
	Python  string
	Timeout time.Duration
}

func NewChecker(python string) *Checker {
	if python == "" {
		python = DefaultInterpreter
	}
	return &Checker{Python: python, Timeout: DefaultCheckTimeout}
}

var defaultChecker = NewChecker(DefaultInterpreter)

// ValidateSyntax checks code with python3, or the tree-sitter grammar when
// python3 is unavailable.
func ValidateSyntax(ctx context.Context, code string) *ValidationOutcome {
	return defaultChecker.Check(ctx, code)
}

// Check reports whether code parses. On failure Line is the line the
// interpreter blames.
func (c *Checker) Check(ctx context.Context, code string) *ValidationOutcome {
	out, err := c.interpret(ctx, code)
	if err != nil {
		log.Debug("syntax check via %s unavailable, using tree-sitter: %v", c.Python, err)
		return ParseSyntax(ctx, code)
	}
	return out
}

type interpreterIssue struct {
	Line int    `json:"line"`
	Msg  string `json:"msg"`
}

func (c *Checker) interpret(ctx context.Context, code string) (*ValidationOutcome, error) {
	python := c.Python
	if python == "" {
		python = DefaultInterpreter
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	res, err := proc.Run(ctx, proc.Cmd{
		Name:    python,
		Args:    []string{"-c", checkScript},
		Stdin:   strings.NewReader(code),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode == 0 {
		return &ValidationOutcome{Valid: true}, nil
	}
	var issue interpreterIssue
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &issue); err != nil || issue.Msg == "" {
		return nil, errors.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return &ValidationOutcome{Valid: false, Error: issue.Msg, Line: issue.Line}, nil
}

type syntaxIssue struct {
	line int
	msg  string
}

// ParseSyntax checks code against the tree-sitter grammar only. On failure
// it names the line of the innermost error node found first in source order.
//
// tree-sitter recovers from indentation errors and accepts Python 2
// statements, so it misses defects the interpreter reports.
func ParseSyntax(ctx context.Context, code string) *ValidationOutcome {
	tree, err := parseTree(ctx, []byte(code))
	if err != nil {
		return &ValidationOutcome{Valid: false, Error: err.Error()}
	}
	defer tree.Close()

	if issue, ok := firstSyntaxError(tree.RootNode()); ok {
		return &ValidationOutcome{Valid: false, Error: issue.msg, Line: issue.line}
	}
	return &ValidationOutcome{Valid: true}
}

func firstSyntaxError(node *sitter.Node) (syntaxIssue, bool) {
	if node == nil {
		return syntaxIssue{}, false
	}
	if node.IsMissing() {
		return syntaxIssue{
			line: int(node.StartPoint().Row) + 1,
			msg:  fmt.Sprintf("expected '%s'", node.Type()),
		}, true
	}
	if !node.HasError() && !node.IsError() {
		return syntaxIssue{}, false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if issue, ok := firstSyntaxError(node.Child(i)); ok {
			return issue, true
		}
	}
	if node.IsError() {
		return syntaxIssue{line: int(node.StartPoint().Row) + 1, msg: "invalid syntax"}, true
	}
	return syntaxIssue{}, false
}
