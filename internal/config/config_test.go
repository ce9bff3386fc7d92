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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/rora/llm"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	c, err := LoadWith("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, llm.ModelTypeGemini, c.Model.APIType)
	assert.False(t, c.Model.HasCredential())
	require.NotNil(t, c.Model.Temperature)
	assert.Equal(t, float32(0), *c.Model.Temperature)
	assert.Equal(t, "python3", c.Runner.Python)
	assert.Equal(t, 60*time.Second, c.Runner.Timeout)
	assert.Equal(t, 2, c.Generation.MaxRetries)
}

func TestGeminiFallback(t *testing.T) {
	c, err := LoadWith("", envMap(map[string]string{"GEMINI_API_KEY": "g-key"}))
	require.NoError(t, err)
	assert.Equal(t, "g-key", c.Model.APIKey)
	assert.True(t, c.Model.HasCredential())

	c, err = LoadWith("", envMap(map[string]string{"GEMINI_API_KEY": "g-key", "API_TYPE": "openai"}))
	require.NoError(t, err)
	assert.Empty(t, c.Model.APIKey)
	assert.False(t, c.Model.HasCredential())
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  type: claude
  api_key: file-key
  model_name: claude-sonnet
runner:
  python: /usr/bin/python3.12
  timeout: 90s
log:
  level: debug
`), 0o644))

	c, err := LoadWith(path, envMap(map[string]string{
		"MODEL_NAME":        "claude-opus",
		"RORA_TEST_TIMEOUT": "30",
	}))
	require.NoError(t, err)
	assert.Equal(t, llm.ModelTypeClaude, c.Model.APIType)
	assert.Equal(t, "file-key", c.Model.APIKey)
	assert.Equal(t, "claude-opus", c.Model.ModelName)
	assert.Equal(t, "/usr/bin/python3.12", c.Runner.Python)
	assert.Equal(t, 30*time.Second, c.Runner.Timeout)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestUnknownAPIType(t *testing.T) {
	c, err := LoadWith("", envMap(map[string]string{"API_TYPE": "bard", "API_KEY": "k", "GEMINI_API_KEY": "g-key"}))
	require.NoError(t, err)
	assert.Equal(t, llm.ModelTypeUnknown, c.Model.APIType)
	assert.False(t, c.Model.HasCredential())

	_, err = llm.NewGenerator(context.Background(), c.Model)
	assert.ErrorIs(t, err, llm.ErrNoCredential)
}

func TestInvalid(t *testing.T) {
	_, err := LoadWith("", envMap(map[string]string{"RORA_TEST_TIMEOUT": "soon"}))
	assert.Error(t, err)

	_, err = LoadWith("", envMap(map[string]string{"RORA_TEST_TIMEOUT": "0s"}))
	assert.Error(t, err)

	_, err = LoadWith(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	d, err := ParseTimeout("2m")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
	d, err = ParseTimeout(" 45 ")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}
