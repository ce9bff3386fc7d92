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

// Package config loads process settings. Later sources win: built-in
// defaults, an optional YAML file, a .env file, then the environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cloudwego/rora/lang/log"
	"github.com/cloudwego/rora/llm"
)

const (
	DefaultPython      = "python3"
	DefaultTestTimeout = 60 * time.Second
	DefaultMaxRetries  = 2
)

type Config struct {
	Model      llm.ModelConfig  `yaml:"model"`
	Runner     RunnerConfig     `yaml:"runner"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

type RunnerConfig struct {
	Python  string        `yaml:"python"`
	Timeout time.Duration `yaml:"timeout"`
}

type GenerationConfig struct {
	// MaxRetries bounds regeneration after a failed syntax check.
	MaxRetries int `yaml:"max_retries"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() *Config {
	var zero float32
	return &Config{
		Model: llm.ModelConfig{
			Name:        "default",
			APIType:     llm.ModelTypeGemini,
			Temperature: &zero,
		},
		Runner: RunnerConfig{
			Python:  DefaultPython,
			Timeout: DefaultTestTimeout,
		},
		Generation: GenerationConfig{MaxRetries: DefaultMaxRetries},
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads path (if not empty), then .env from the working directory,
// then the process environment. Variables already set in the environment
// are never overridden by .env.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	return LoadWith(path, os.Getenv)
}

// LoadWith is Load with an explicit environment lookup and no .env file.
func LoadWith(path string, getenv func(string) string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	if err := c.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// ApplyEnv overlays the API_* variables, the GEMINI_API_KEY fallback and
// the RORA_* settings.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("API_TYPE"); v != "" {
		// An unknown type leaves the model without a credential, which
		// generate_tests reports; the other operations still work.
		c.Model.APIType = llm.NewModelType(v)
		if c.Model.APIType == llm.ModelTypeUnknown {
			log.Warn("unsupported API_TYPE %q, test generation is disabled", v)
		}
	}
	if v := getenv("API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := getenv("MODEL_NAME"); v != "" {
		c.Model.ModelName = v
	}
	if v := getenv("BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if c.Model.APIKey == "" && c.Model.APIType == llm.ModelTypeGemini {
		c.Model.APIKey = getenv("GEMINI_API_KEY")
	}

	if v := getenv("RORA_PYTHON"); v != "" {
		c.Runner.Python = v
	}
	if v := getenv("RORA_TEST_TIMEOUT"); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return errors.Wrap(err, "RORA_TEST_TIMEOUT")
		}
		c.Runner.Timeout = d
	}
	if v := getenv("RORA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("RORA_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// ParseTimeout accepts a Go duration ("90s") or a number of seconds ("90").
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("invalid timeout %q", s)
	}
	return d, nil
}

func (c *Config) Validate() error {
	if c.Runner.Python == "" {
		return errors.New("runner python interpreter must be set")
	}
	if c.Runner.Timeout <= 0 {
		return errors.Errorf("runner timeout must be positive, got %s", c.Runner.Timeout)
	}
	if c.Generation.MaxRetries < 0 {
		return errors.Errorf("max retries must not be negative, got %d", c.Generation.MaxRetries)
	}
	return nil
}
