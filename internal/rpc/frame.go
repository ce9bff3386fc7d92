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

package rpc

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"
)

// ErrMalformedFrame marks a frame that was read completely but cannot be
// used. The stream stays in sync and the next frame can be read.
var ErrMalformedFrame = errors.New("malformed frame")

// DefaultMaxBody bounds a single message body.
const DefaultMaxBody = 64 << 20

// FrameReader reads Content-Length framed messages. Header lines may end in
// "\r\n" or "\n"; headers other than Content-Length are ignored.
type FrameReader struct {
	r       *bufio.Reader
	MaxBody int
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r), MaxBody: DefaultMaxBody}
}

// Read returns the next body. It returns io.EOF when the stream ends
// between frames and io.ErrUnexpectedEOF when it ends inside one.
func (f *FrameReader) Read() ([]byte, error) {
	length := -1
	var bad error
	seen := false
	for {
		line, err := f.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && !seen && line == "" {
				return nil, io.EOF
			}
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, errors.Wrap(err, "read header")
		}
		seen = true
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			bad = errors.Wrapf(ErrMalformedFrame, "header line %q", line)
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			bad = errors.Wrapf(ErrMalformedFrame, "content length %q", strings.TrimSpace(value))
			continue
		}
		length = n
	}

	switch {
	case length < 0 && bad != nil:
		return nil, bad
	case length < 0:
		return nil, errors.Wrap(ErrMalformedFrame, "missing Content-Length")
	case length == 0:
		return nil, errors.Wrap(ErrMalformedFrame, "empty body")
	case f.MaxBody > 0 && length > f.MaxBody:
		if _, err := io.CopyN(io.Discard, f.r, int64(length)); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(ErrMalformedFrame, "body of %d bytes exceeds limit", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(f.r, body); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return body, nil
}

// FrameWriter writes each message as one Content-Length frame, handed to
// the underlying writer in a single Write call.
type FrameWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (f *FrameWriter) Write(v any) error {
	f.buf.Reset()
	if err := (jsonrpc2.VSCodeObjectCodec{}).WriteObject(&f.buf, v); err != nil {
		return errors.Wrap(err, "encode frame")
	}
	_, err := f.w.Write(f.buf.Bytes())
	return errors.Wrap(err, "write frame")
}
