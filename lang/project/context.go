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

// Package project scans a Python project root for the facts test generation
// cares about: declared dependencies, available test frameworks and the
// conventions of the tests already present.
package project

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/cloudwego/rora/lang/log"
)

// ProjectContext is attached once to each generation run.
type ProjectContext struct {
	Dependencies      []string `json:"dependencies"`
	DevDependencies   []string `json:"dev_dependencies"`
	TestPatterns      []string `json:"test_patterns"`
	ExistingTestFiles []string `json:"existing_test_files"`
	HasPytest         bool     `json:"has_pytest"`
	HasUnittest       bool     `json:"has_unittest"`
}

// Test pattern tags reported in ProjectContext.TestPatterns.
const (
	PatternFixtures    = "uses_pytest_fixtures"
	PatternParametrize = "uses_parametrize"
	PatternMocking     = "uses_mocking"
	PatternClassBased  = "class_based_tests"
	PatternAsync       = "async_tests"
)

// TestFileGlobs select existing test files, relative to the project root.
var TestFileGlobs = []string{"**/test_*.py", "**/*_test.py"}

// sampleSize bounds how many test files are read for patterns.
const sampleSize = 5

// Gatherer builds a ProjectContext. SkipDirs are directory names never
// descended into.
type Gatherer struct {
	SkipDirs []string
}

func NewGatherer() *Gatherer {
	return &Gatherer{SkipDirs: []string{"__pycache__", ".git", ".venv", "venv", ".tox", "node_modules", "site-packages"}}
}

// Gather never fails. Unreadable manifests and files are logged and skipped.
func (g *Gatherer) Gather(ctx context.Context, root string) *ProjectContext {
	pc := &ProjectContext{
		Dependencies:      []string{},
		DevDependencies:   []string{},
		TestPatterns:      []string{},
		ExistingTestFiles: []string{},
		HasUnittest:       true,
	}

	if deps, err := ParseRequirements(filepath.Join(root, "requirements.txt")); err == nil {
		pc.Dependencies = append(pc.Dependencies, deps...)
	} else if !os.IsNotExist(err) {
		log.Debug("skip requirements.txt: %v", err)
	}
	if deps, dev, err := ParsePyproject(filepath.Join(root, "pyproject.toml")); err == nil {
		pc.Dependencies = append(pc.Dependencies, deps...)
		pc.DevDependencies = append(pc.DevDependencies, dev...)
	} else if !os.IsNotExist(err) {
		log.Debug("skip pyproject.toml: %v", err)
	}

	for _, d := range append(append([]string{}, pc.Dependencies...), pc.DevDependencies...) {
		if strings.Contains(strings.ToLower(d), "pytest") {
			pc.HasPytest = true
			break
		}
	}

	files, err := g.findTestFiles(ctx, root)
	if err != nil {
		log.Debug("test file discovery under %s stopped: %v", root, err)
	}
	pc.ExistingTestFiles = append(pc.ExistingTestFiles, files...)
	if len(files) > 0 {
		pc.TestPatterns = AnalyzeTestPatterns(root, files)
	}
	return pc
}

func (g *Gatherer) findTestFiles(ctx context.Context, root string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && g.skip(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range TestFileGlobs {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func (g *Gatherer) skip(name string) bool {
	for _, s := range g.SkipDirs {
		if s == name {
			return true
		}
	}
	return false
}

// AnalyzeTestPatterns samples the first few test files for the testing
// idioms the project already uses.
func AnalyzeTestPatterns(root string, files []string) []string {
	found := map[string]bool{}
	for i, f := range files {
		if i >= sampleSize {
			break
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			continue
		}
		content := string(data)
		if strings.Contains(content, "@pytest.fixture") {
			found[PatternFixtures] = true
		}
		if strings.Contains(content, "@pytest.mark.parametrize") {
			found[PatternParametrize] = true
		}
		if strings.Contains(content, "unittest.mock") || strings.Contains(content, "from mock import") {
			found[PatternMocking] = true
		}
		if strings.Contains(content, "class Test") {
			found[PatternClassBased] = true
		}
		if strings.Contains(content, "async def test_") || strings.Contains(content, "@pytest.mark.asyncio") {
			found[PatternAsync] = true
		}
	}

	patterns := []string{}
	for _, p := range []string{PatternFixtures, PatternParametrize, PatternMocking, PatternClassBased, PatternAsync} {
		if found[p] {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
