/*******************************************************************************
* Copyright (C) 2026 the Eclipse Ibeji Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package intercept

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
)

// ParseMethodPath extracts the service and method names from a gRPC request
// path of the form "/<package>.<Service>/<Method>". The service name is the
// part of the qualifier after its single dot. Malformed paths, including
// qualifiers without exactly one dot, yield empty names rather than an
// error; the call then proceeds un-intercepted because interceptors never
// match empty names.
func ParseMethodPath(path string) (serviceName, methodName string) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != "" {
		return "", ""
	}
	qualifier := strings.Split(parts[1], ".")
	if len(qualifier) != 2 || qualifier[1] == "" {
		return "", ""
	}
	return qualifier[1], parts[2]
}

// TransportLayer decorates an inner gRPC transport handler with an
// interceptor chain. It is an http.Handler intended to wrap
// (*grpc.Server).ServeHTTP; each call moves through request rewrite,
// forwarding and response rewrite in order, with any I/O or interceptor
// failure terminating the call as a gRPC error status.
//
// Calls that no interceptor matches are passed straight through without
// buffering. Matched calls are fully buffered in both directions; rewrites
// operate on materialized bytes, never on the stream. Concurrent calls are
// independent: the layer keeps no per-call state beyond the stack frame, so
// it never serializes unrelated calls against each other.
type TransportLayer struct {
	inner        http.Handler
	interceptors []Interceptor
}

// NewTransportLayer wraps inner with the given interceptor chain. Chain
// order is application order for requests and responses alike.
func NewTransportLayer(inner http.Handler, interceptors ...Interceptor) *TransportLayer {
	return &TransportLayer{inner: inner, interceptors: interceptors}
}

func (l *TransportLayer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serviceName, methodName := ParseMethodPath(r.URL.Path)

	var active []Interceptor
	for _, ic := range l.interceptors {
		if ic.Applicable(serviceName, methodName) {
			active = append(active, ic)
		}
	}
	if len(active) == 0 {
		l.inner.ServeHTTP(w, r)
		return
	}

	if err := l.rewriteRequest(r, serviceName, methodName, active); err != nil {
		writeGRPCError(w, codes.Internal, fmt.Sprintf("request interception failed: %v", err))
		return
	}

	if !mustHandleResponse(active) {
		l.inner.ServeHTTP(w, r)
		return
	}

	recorder := newResponseRecorder(w)
	l.inner.ServeHTTP(recorder, r)

	body, err := rewriteFrames(recorder.body.Bytes(), func(payload []byte) ([]byte, error) {
		return applyResponse(active, serviceName, methodName, payload)
	})
	if err != nil {
		writeGRPCError(w, codes.Internal, fmt.Sprintf("response interception failed: %v", err))
		return
	}
	recorder.flushRewritten(body)
}

// rewriteRequest buffers the request body and routes each frame payload
// through the chain, replacing the body with the reassembled stream. The
// rewrite completes before the call is forwarded.
func (l *TransportLayer) rewriteRequest(r *http.Request, serviceName, methodName string, active []Interceptor) error {
	if !mustHandleRequest(active) {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("buffering request body: %w", err)
	}
	_ = r.Body.Close()

	rewritten, err := rewriteFrames(body, func(payload []byte) ([]byte, error) {
		return applyRequest(active, serviceName, methodName, payload)
	})
	if err != nil {
		return err
	}

	r.Body = io.NopCloser(bytes.NewReader(rewritten))
	r.ContentLength = int64(len(rewritten))
	return nil
}

func mustHandleRequest(active []Interceptor) bool {
	for _, ic := range active {
		if ic.MustHandleRequest() {
			return true
		}
	}
	return false
}

func mustHandleResponse(active []Interceptor) bool {
	for _, ic := range active {
		if ic.MustHandleResponse() {
			return true
		}
	}
	return false
}

func applyRequest(active []Interceptor, serviceName, methodName string, payload []byte) ([]byte, error) {
	var err error
	for _, ic := range active {
		if !ic.MustHandleRequest() {
			continue
		}
		payload, err = ic.HandleRequest(serviceName, methodName, payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func applyResponse(active []Interceptor, serviceName, methodName string, payload []byte) ([]byte, error) {
	var err error
	for _, ic := range active {
		if !ic.MustHandleResponse() {
			continue
		}
		payload, err = ic.HandleResponse(serviceName, methodName, payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// responseRecorder buffers the inner handler's response body so it can be
// rewritten before anything reaches the wire. Headers, including the
// trailer-prefixed keys the gRPC handler sets after the body, go to the real
// writer's header map and are emitted when the buffered body is flushed.
type responseRecorder struct {
	w      http.ResponseWriter
	body   bytes.Buffer
	status int
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{w: w, status: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) WriteHeader(status int) { r.status = status }

func (r *responseRecorder) Write(b []byte) (int, error) { return r.body.Write(b) }

// Flush is a no-op: the response is held back until rewriting is complete.
func (r *responseRecorder) Flush() {}

func (r *responseRecorder) flushRewritten(body []byte) {
	r.w.Header().Del("Content-Length")
	r.w.WriteHeader(r.status)
	_, _ = r.w.Write(body)
}

// writeGRPCError terminates the call with a trailers-only gRPC error
// response.
func writeGRPCError(w http.ResponseWriter, code codes.Code, message string) {
	h := w.Header()
	for key := range h {
		delete(h, key)
	}
	h.Set("Content-Type", "application/grpc")
	h.Set("Grpc-Status", strconv.Itoa(int(code)))
	h.Set("Grpc-Message", message)
	w.WriteHeader(http.StatusOK)
}
