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

// Package rpc is the stdio protocol server the editor extension talks to.
// Messages are JSON-RPC envelopes in Content-Length frames; requests are
// handled one at a time in arrival order.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/cloudwego/rora/lang/log"
)

// HandlerFunc handles the raw params of one method. params is nil when the
// request carried none.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Handle adapts a typed handler. Missing or null params decode to the zero
// value of P.
func Handle[P, R any](fn func(context.Context, P) (R, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, errors.Wrap(err, "invalid params")
			}
		}
		return fn(ctx, p)
	}
}

type Server struct {
	in       *FrameReader
	out      *FrameWriter
	handlers map[string]HandlerFunc
}

// NewServer reads requests from in and writes responses to out. Nothing
// else may write to out.
func NewServer(in io.Reader, out io.Writer) *Server {
	return &Server{
		in:       NewFrameReader(in),
		out:      NewFrameWriter(out),
		handlers: map[string]HandlerFunc{},
	}
}

func (s *Server) Register(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// Serve runs until the input ends or fails. A clean end of input returns
// nil. Malformed frames and undecodable envelopes are logged and skipped.
func (s *Server) Serve(ctx context.Context) error {
	log.Info("protocol server started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := s.in.Read()
		switch {
		case err == io.EOF:
			log.Info("input closed, shutting down")
			return nil
		case errors.Is(err, ErrMalformedFrame):
			log.Error("dropping frame: %v", err)
			continue
		case err != nil:
			return errors.Wrap(err, "read request")
		}

		var req jsonrpc2.Request
		if err := json.Unmarshal(body, &req); err != nil {
			log.Error("dropping undecodable message: %v", err)
			continue
		}

		resp := s.dispatch(ctx, &req)
		if req.Notif {
			continue
		}
		if err := s.out.Write(resp); err != nil {
			return errors.Wrapf(err, "write response to %s", req.ID)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc2.Request) (resp *jsonrpc2.Response) {
	resp = &jsonrpc2.Response{ID: req.ID}
	h, ok := s.handlers[req.Method]
	if !ok {
		log.Warn("unknown method %q", req.Method)
		resp.Error = &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "Method not found: " + req.Method}
		return resp
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("%s panicked: %v\n%s", req.Method, r, debug.Stack())
			resp.Result = nil
			resp.Error = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: fmt.Sprint(r)}
		}
	}()

	log.Debug("handling %s (id %s)", req.Method, req.ID)
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}
	result, err := h(ctx, params)
	if err == nil {
		err = resp.SetResult(result)
	}
	if err != nil {
		log.Error("%s failed: %v", req.Method, err)
		resp.Error = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
	return resp
}
