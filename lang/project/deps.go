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
	"bufio"
	"bytes"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

var reqName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// RequirementName strips version specifiers, extras and markers from a
// PEP 508 requirement.
func RequirementName(req string) string {
	return reqName.FindString(strings.TrimSpace(req))
}

// ParseRequirements reads package names from a requirements.txt file,
// skipping comments, pip options and URL requirements.
func ParseRequirements(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	deps := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") || strings.Contains(line, "://") {
			continue
		}
		if name := RequirementName(line); name != "" {
			deps = append(deps, name)
		}
	}
	return deps, errors.Wrap(sc.Err(), "scan requirements")
}

type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ParsePyproject reads runtime and development dependencies from a
// pyproject.toml. PEP 621 optional dependencies, PEP 735 dependency groups
// and Poetry groups all count as development dependencies.
func ParsePyproject(path string) (deps, dev []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var pp pyproject
	if err := toml.Unmarshal(data, &pp); err != nil {
		return nil, nil, errors.Wrapf(err, "parse %s", path)
	}

	deps, dev = []string{}, []string{}
	for _, r := range pp.Project.Dependencies {
		if name := RequirementName(r); name != "" {
			deps = append(deps, name)
		}
	}
	deps = append(deps, poetryNames(pp.Tool.Poetry.Dependencies)...)

	for _, group := range sortedKeys(pp.Project.OptionalDependencies) {
		for _, r := range pp.Project.OptionalDependencies[group] {
			if name := RequirementName(r); name != "" {
				dev = append(dev, name)
			}
		}
	}
	for _, group := range sortedKeys(pp.DependencyGroups) {
		for _, item := range pp.DependencyGroups[group] {
			// tables such as {include-group = "x"} carry no package name
			if r, ok := item.(string); ok {
				if name := RequirementName(r); name != "" {
					dev = append(dev, name)
				}
			}
		}
	}
	dev = append(dev, poetryNames(pp.Tool.Poetry.DevDependencies)...)
	for _, group := range sortedKeys(pp.Tool.Poetry.Group) {
		dev = append(dev, poetryNames(pp.Tool.Poetry.Group[group].Dependencies)...)
	}
	return deps, dev, nil
}

func poetryNames(m map[string]any) []string {
	names := []string{}
	for _, k := range sortedKeys(m) {
		if strings.EqualFold(k, "python") {
			continue
		}
		names = append(names, k)
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
