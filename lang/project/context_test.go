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

package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRequirementName(t *testing.T) {
	testCases := map[string]string{
		"requests==2.31.0":           "requests",
		"Django>=4.2,<5":             "Django",
		"uvicorn[standard]":          "uvicorn",
		"pytest-asyncio ~= 0.23":     "pytest-asyncio",
		"typing_extensions; py<3.11": "typing_extensions",
		"  numpy  ":                  "numpy",
	}
	for in, want := range testCases {
		assert.Equal(t, want, RequirementName(in), in)
	}
}

func TestGather(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "# deps\nrequests==2.31\n-r other.txt\n\nflask[async]>=3\ngit+https://example.com/x.git\n")
	writeFile(t, root, "pyproject.toml", `
[project]
name = "demo"
dependencies = ["httpx>=0.27", "pydantic"]

[project.optional-dependencies]
test = ["pytest>=8", "pytest-mock"]

[dependency-groups]
lint = ["ruff", {include-group = "test"}]

[tool.poetry.dependencies]
python = "^3.11"
rich = "*"

[tool.poetry.group.docs.dependencies]
mkdocs = "*"
`)
	writeFile(t, root, "tests/test_api.py", "import pytest\n\n@pytest.fixture\ndef client():\n    pass\n\n@pytest.mark.parametrize('x', [1])\ndef test_x(x):\n    pass\n")
	writeFile(t, root, "pkg/util_test.py", "from unittest.mock import patch\n\nclass TestUtil:\n    pass\n")
	writeFile(t, root, "tests/__pycache__/test_api.py", "")
	writeFile(t, root, ".venv/lib/test_vendored.py", "")
	writeFile(t, root, "pkg/helpers.py", "")

	pc := NewGatherer().Gather(context.Background(), root)

	assert.Equal(t, []string{"requests", "flask", "httpx", "pydantic", "rich"}, pc.Dependencies)
	assert.Equal(t, []string{"pytest", "pytest-mock", "ruff", "mkdocs"}, pc.DevDependencies)
	assert.True(t, pc.HasPytest)
	assert.True(t, pc.HasUnittest)
	assert.Equal(t, []string{"pkg/util_test.py", "tests/test_api.py"}, pc.ExistingTestFiles)
	assert.Equal(t, []string{PatternFixtures, PatternParametrize, PatternMocking, PatternClassBased}, pc.TestPatterns)
}

func TestGatherEmptyProject(t *testing.T) {
	pc := NewGatherer().Gather(context.Background(), t.TempDir())
	assert.Empty(t, pc.Dependencies)
	assert.NotNil(t, pc.Dependencies)
	assert.False(t, pc.HasPytest)
	assert.True(t, pc.HasUnittest)
	assert.Empty(t, pc.ExistingTestFiles)
	assert.Empty(t, pc.TestPatterns)
}

func TestGatherBadPyproject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pyproject.toml", "[project\nbroken")
	writeFile(t, root, "requirements.txt", "pytest\n")
	pc := NewGatherer().Gather(context.Background(), root)
	assert.Equal(t, []string{"pytest"}, pc.Dependencies)
	assert.True(t, pc.HasPytest)
}

func TestAnalyzeTestPatternsSamplesFirstFiles(t *testing.T) {
	root := t.TempDir()
	var files []string
	for _, name := range []string{"test_a.py", "test_b.py", "test_c.py", "test_d.py", "test_e.py", "test_f.py"} {
		writeFile(t, root, name, "def test_x():\n    pass\n")
		files = append(files, name)
	}
	writeFile(t, root, "test_f.py", "async def test_x():\n    pass\n")
	assert.Empty(t, AnalyzeTestPatterns(root, files))
	assert.Equal(t, []string{PatternAsync}, AnalyzeTestPatterns(root, files[5:]))
}
