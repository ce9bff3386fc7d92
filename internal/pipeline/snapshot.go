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

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
)

// Snapshot kinds.
const (
	KindGeneratedCode = "generated-code"
)

type Snapshot struct {
	Kind    string // e.g. "generated-code"
	Hash    string // hex-encoded sha256 of raw bytes
	Payload any    // e.g. the code text
}

func NewSnapshot(kind string, payload any, raw []byte) *Snapshot {
	h := sha256.Sum256(raw)
	return &Snapshot{
		Kind:    kind,
		Hash:    hex.EncodeToString(h[:]),
		Payload: payload,
	}
}

// NewCodeSnapshot wraps generated code.
func NewCodeSnapshot(code string) *Snapshot {
	return NewSnapshot(KindGeneratedCode, code, []byte(code))
}
