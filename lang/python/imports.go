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
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// MockCandidates are substrings marking a used name as an outside
// dependency a test will likely need to mock.
var MockCandidates = []string{
	"open", "requests", "urllib", "os", "sys", "subprocess",
	"socket", "http", "json", "yaml", "sqlite3", "datetime",
}

// ExtractImports lists the import statements of code in source order,
// normalised to "import a.b" and "from m import x, y" with aliases dropped.
// Code that does not parse yields an empty list.
func ExtractImports(ctx context.Context, code string) []string {
	out := []string{}
	src := []byte(code)
	tree, err := parseTree(ctx, src)
	if err != nil {
		return out
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		return out
	}
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for _, name := range importedNames(n, nil, src) {
				out = append(out, "import "+name)
			}
			return false
		case "import_from_statement", "future_import_statement":
			module := "__future__"
			mod := n.ChildByFieldName("module_name")
			if mod != nil {
				module = compact(mod.Content(src))
			}
			names := importedNames(n, mod, src)
			if len(names) > 0 {
				out = append(out, "from "+module+" import "+strings.Join(names, ", "))
			}
			return false
		}
		return true
	})
	return out
}

// importedNames collects the names listed by an import node, skipping the
// module part of a from-import.
func importedNames(n, module *sitter.Node, src []byte) []string {
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if module != nil && sameNode(c, module) {
			continue
		}
		switch c.Type() {
		case "dotted_name":
			names = append(names, compact(c.Content(src)))
		case "aliased_import":
			if name := c.ChildByFieldName("name"); name != nil {
				names = append(names, compact(name.Content(src)))
			}
		case "wildcard_import":
			names = append(names, "*")
		}
	}
	return names
}

// AnalyzeFunction builds the import summary used when prompting for tests
// of fn. It never fails; unparsable source gives empty name lists.
func AnalyzeFunction(ctx context.Context, source string, fn FunctionDescriptor) *ImportAnalysis {
	ia := &ImportAnalysis{
		RequiredImports:      ExtractImports(ctx, source),
		FunctionSignature:    fn.Signature,
		HasDocstring:         fn.Docstring != nil && *fn.Docstring != "",
		IsAsync:              fn.IsAsync,
		IsMethod:             fn.IsMethod,
		ClassName:            fn.ClassName,
		UsedNames:            UsedNames(ctx, source, fn.Name),
		ExternalDependencies: []string{},
	}
	for _, name := range ia.UsedNames {
		lower := strings.ToLower(name)
		for _, m := range MockCandidates {
			if strings.Contains(lower, m) {
				ia.ExternalDependencies = append(ia.ExternalDependencies, name)
				break
			}
		}
	}
	ia.NeedsMocking = len(ia.ExternalDependencies) > 0
	return ia
}

// UsedNames returns the sorted variable names read or written inside every
// function called name. Attribute names and parameter names are not included,
// but the object an attribute is looked up on is.
func UsedNames(ctx context.Context, source, name string) []string {
	src := []byte(source)
	tree, err := parseTree(ctx, src)
	if err != nil {
		return []string{}
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		return []string{}
	}

	seen := map[string]struct{}{}
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "function_definition" {
			return true
		}
		if id := n.ChildByFieldName("name"); id != nil && id.Content(src) == name {
			collectNames(n, src, seen)
		}
		return true
	})

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collectNames(n *sitter.Node, src []byte, seen map[string]struct{}) {
	switch n.Type() {
	case "identifier":
		seen[n.Content(src)] = struct{}{}
		return
	case "attribute":
		if obj := n.ChildByFieldName("object"); obj != nil {
			collectNames(obj, src, seen)
		}
		return
	case "keyword_argument":
		if v := n.ChildByFieldName("value"); v != nil {
			collectNames(v, src, seen)
		}
		return
	case "function_definition", "lambda":
		for _, field := range []string{"parameters", "return_type", "body"} {
			c := n.ChildByFieldName(field)
			if c == nil {
				continue
			}
			if field == "parameters" {
				collectParamNames(c, src, seen)
			} else {
				collectNames(c, src, seen)
			}
		}
		return
	case "class_definition":
		if sc := n.ChildByFieldName("superclasses"); sc != nil {
			collectNames(sc, src, seen)
		}
		if b := n.ChildByFieldName("body"); b != nil {
			collectNames(b, src, seen)
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectNames(n.NamedChild(i), src, seen)
	}
}

// collectParamNames keeps only defaults and annotations of a parameter list.
func collectParamNames(params *sitter.Node, src []byte, seen map[string]struct{}) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		for _, field := range []string{"type", "value"} {
			if c := p.ChildByFieldName(field); c != nil {
				collectNames(c, src, seen)
			}
		}
	}
}

// walk visits nodes depth first; returning false from fn skips children.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
