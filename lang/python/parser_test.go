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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `import os
from typing import List

@decorator
def top(a, b: int = 1, *args, key=None, **kwargs) -> List[int]:
    """Summary.

        Indented detail.
    """
    return [a]

class Service:
    @staticmethod
    def helper(x):
        return os.path.join(x)

    @app.route("/x")
    async def fetch(self, *, timeout: float):
        pass

def last():
    pass
`

func TestParseSource(t *testing.T) {
	fns, err := NewParser().ParseSource(context.Background(), []byte(sample))
	require.NoError(t, err)
	require.Len(t, fns, 4)

	var names []string
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"top", "helper", "fetch", "last"}, names)

	top := fns[0]
	assert.Equal(t, 5, top.Lineno)
	assert.Equal(t, 10, top.EndLineno)
	assert.Equal(t, "def top(a, b: int = 1, *args, key = None, **kwargs) -> List[int]", top.Signature)
	require.NotNil(t, top.Docstring)
	assert.Equal(t, "Summary.\n\nIndented detail.", *top.Docstring)
	assert.Equal(t, []string{"decorator"}, top.Decorators)
	assert.False(t, top.IsMethod)
	assert.Nil(t, top.ClassName)
	assert.True(t, strings.HasPrefix(top.Body, "def top("))
	assert.True(t, strings.HasSuffix(top.Body, "return [a]"))

	helper := fns[1]
	assert.True(t, helper.IsMethod)
	require.NotNil(t, helper.ClassName)
	assert.Equal(t, "Service", *helper.ClassName)
	assert.Equal(t, []string{"staticmethod"}, helper.Decorators)
	assert.Nil(t, helper.Docstring)

	fetch := fns[2]
	assert.True(t, fetch.IsAsync)
	assert.Equal(t, "async def fetch(self, *, timeout: float)", fetch.Signature)
	assert.Equal(t, []string{"app.route"}, fetch.Decorators)

	last := fns[3]
	assert.Equal(t, []string{}, last.Decorators)
	assert.Equal(t, "def last():\n    pass", last.Body)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	p := NewParser()

	t.Run("missing", func(t *testing.T) {
		path := filepath.Join(dir, "nope.py")
		res := p.ParseFile(context.Background(), path)
		assert.Equal(t, "File not found: "+path, res.Error)
		assert.Empty(t, res.Functions)
		assert.NotNil(t, res.Functions)
	})

	t.Run("syntax error", func(t *testing.T) {
		path := filepath.Join(dir, "bad.py")
		require.NoError(t, os.WriteFile(path, []byte("def broken(:\n    pass\n"), 0o644))
		res := p.ParseFile(context.Background(), path)
		assert.True(t, strings.HasPrefix(res.Error, "Syntax error: "), res.Error)
		assert.True(t, strings.HasSuffix(res.Error, "at line 1"), res.Error)
		assert.Empty(t, res.Functions)
	})

	t.Run("ok", func(t *testing.T) {
		path := filepath.Join(dir, "ok.py")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
		res := p.ParseFile(context.Background(), path)
		assert.Empty(t, res.Error)
		assert.Len(t, res.Functions, 4)
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(dir, "big.py")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
		res := (&Parser{MaxFileSize: 10}).ParseFile(context.Background(), path)
		assert.Contains(t, res.Error, "exceeds limit")
	})
}

func TestCleandoc(t *testing.T) {
	assert.Equal(t, "one line", cleandoc("  one line  "))
	assert.Equal(t, "a\n  b\nc", cleandoc("a\n    b\n  c\n  "))
	assert.Equal(t, "", cleandoc("\n\n"))
}
