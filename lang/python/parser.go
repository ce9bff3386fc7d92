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
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFileSize bounds the sources handed to tree-sitter.
const DefaultMaxFileSize = 10 * 1024 * 1024

// SyntaxError reports the first syntax problem found in a source file.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax error: %s at line %d", e.Msg, e.Line)
}

// Parser extracts function descriptors from Python files.
// A zero Parser is ready to use.
type Parser struct {
	MaxFileSize int64
}

func NewParser() *Parser {
	return &Parser{MaxFileSize: DefaultMaxFileSize}
}

// ParseFile never fails: problems are reported through ParseResult.Error.
func (p *Parser) ParseFile(ctx context.Context, path string) *ParseResult {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ParseResult{Functions: []FunctionDescriptor{}, Error: "File not found: " + path}
		}
		return &ParseResult{Functions: []FunctionDescriptor{}, Error: err.Error()}
	}
	fns, err := p.ParseSource(ctx, src)
	if err != nil {
		return &ParseResult{Functions: []FunctionDescriptor{}, Error: err.Error()}
	}
	return &ParseResult{Functions: fns}
}

// ParseSource returns the methods of top-level classes and the top-level
// functions, in source order.
func (p *Parser) ParseSource(ctx context.Context, src []byte) ([]FunctionDescriptor, error) {
	if p.MaxFileSize > 0 && int64(len(src)) > p.MaxFileSize {
		return nil, errors.Errorf("source size %d exceeds limit %d", len(src), p.MaxFileSize)
	}
	if !utf8.Valid(src) {
		return nil, errors.New("source is not valid UTF-8")
	}
	tree, err := parseTree(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if issue, ok := firstSyntaxError(root); ok {
		return nil, &SyntaxError{Line: issue.line, Msg: issue.msg}
	}

	lines := splitLines(string(src))
	out := make([]FunctionDescriptor, 0)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		def, decorators := unwrapDecorated(root.NamedChild(i), src)
		if def == nil {
			continue
		}
		switch def.Type() {
		case "function_definition":
			out = append(out, describe(def, decorators, src, lines, nil))
		case "class_definition":
			out = append(out, classMethods(def, src, lines)...)
		}
	}
	return out, nil
}

func parseTree(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tspython.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter parse failed")
	}
	return tree, nil
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func unwrapDecorated(node *sitter.Node, src []byte) (*sitter.Node, []string) {
	if node == nil || node.Type() != "decorated_definition" {
		return node, nil
	}
	var decorators []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if name, ok := decoratorName(child, src); ok {
			decorators = append(decorators, name)
		}
	}
	return node.ChildByFieldName("definition"), decorators
}

// decoratorName reports plain and dotted decorators as written, and call
// decorators by their callee.
func decoratorName(dec *sitter.Node, src []byte) (string, bool) {
	if dec.NamedChildCount() == 0 {
		return "", false
	}
	expr := dec.NamedChild(0)
	switch expr.Type() {
	case "identifier", "attribute":
		return compact(expr.Content(src)), true
	case "call":
		fn := expr.ChildByFieldName("function")
		if fn != nil && (fn.Type() == "identifier" || fn.Type() == "attribute") {
			return compact(fn.Content(src)), true
		}
	}
	return "", false
}

func classMethods(cls *sitter.Node, src []byte, lines []string) []FunctionDescriptor {
	nameNode := cls.ChildByFieldName("name")
	body := cls.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	className := nameNode.Content(src)
	var out []FunctionDescriptor
	for i := 0; i < int(body.NamedChildCount()); i++ {
		def, decorators := unwrapDecorated(body.NamedChild(i), src)
		if def != nil && def.Type() == "function_definition" {
			out = append(out, describe(def, decorators, src, lines, &className))
		}
	}
	return out
}

func describe(fn *sitter.Node, decorators []string, src []byte, lines []string, className *string) FunctionDescriptor {
	name := ""
	if n := fn.ChildByFieldName("name"); n != nil {
		name = n.Content(src)
	}
	isAsync := fn.ChildCount() > 0 && fn.Child(0).Type() == "async"

	start := int(fn.StartPoint().Row) + 1
	end := int(fn.EndPoint().Row) + 1
	if fn.EndPoint().Column == 0 && end > start {
		end--
	}
	if end > len(lines) {
		end = len(lines)
	}
	body := ""
	if start <= end {
		body = strings.Join(lines[start-1:end], "\n")
	}
	if decorators == nil {
		decorators = []string{}
	}

	return FunctionDescriptor{
		Name:       name,
		Lineno:     start,
		EndLineno:  end,
		Signature:  signature(fn, name, isAsync, src),
		Docstring:  docstring(fn.ChildByFieldName("body"), src),
		Decorators: decorators,
		IsAsync:    isAsync,
		IsMethod:   className != nil,
		ClassName:  className,
		Body:       body,
	}
}

func signature(fn *sitter.Node, name string, isAsync bool, src []byte) string {
	var params []string
	if ps := fn.ChildByFieldName("parameters"); ps != nil {
		for i := 0; i < int(ps.NamedChildCount()); i++ {
			if p := renderParam(ps.NamedChild(i), src); p != "" {
				params = append(params, p)
			}
		}
	}
	var sb strings.Builder
	if isAsync {
		sb.WriteString("async ")
	}
	sb.WriteString("def ")
	sb.WriteString(name)
	sb.WriteString("(")
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteString(")")
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		sb.WriteString(" -> ")
		sb.WriteString(compact(ret.Content(src)))
	}
	return sb.String()
}

func renderParam(p *sitter.Node, src []byte) string {
	field := func(name string) string {
		if n := p.ChildByFieldName(name); n != nil {
			return compact(n.Content(src))
		}
		return ""
	}
	switch p.Type() {
	case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
		return compact(p.Content(src))
	case "keyword_separator":
		return "*"
	case "positional_separator":
		return "/"
	case "typed_parameter":
		if p.NamedChildCount() == 0 {
			return ""
		}
		return compact(p.NamedChild(0).Content(src)) + ": " + field("type")
	case "default_parameter":
		return field("name") + " = " + field("value")
	case "typed_default_parameter":
		return field("name") + ": " + field("type") + " = " + field("value")
	}
	return ""
}

// docstring mirrors inspect.cleandoc on the first string statement of body.
func docstring(body *sitter.Node, src []byte) *string {
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			return nil
		}
		str := stmt.NamedChild(0)
		if str.Type() != "string" {
			return nil
		}
		doc := cleandoc(unquote(str.Content(src)))
		return &doc
	}
	return nil
}

func unquote(s string) string {
	s = strings.TrimLeft(s, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`} {
		if len(s) >= 6 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[3 : len(s)-3]
		}
	}
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func cleandoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		stripped := strings.TrimLeft(l, " ")
		if stripped == "" {
			continue
		}
		if indent := len(l) - len(stripped); margin < 0 || indent < margin {
			margin = indent
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if margin > 0 && len(lines[i]) >= margin {
			lines[i] = lines[i][margin:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " ")
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
