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
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterceptor rewrites payloads with fixed functions and records what it
// saw.
type fakeInterceptor struct {
	service        string
	method         string
	handleRequest  bool
	handleResponse bool
	onRequest      func([]byte) ([]byte, error)
	onResponse     func([]byte) ([]byte, error)

	sawRequest [][]byte
}

func (f *fakeInterceptor) Applicable(serviceName, methodName string) bool {
	return serviceName == f.service && methodName == f.method
}

func (f *fakeInterceptor) MustHandleRequest() bool  { return f.handleRequest }
func (f *fakeInterceptor) MustHandleResponse() bool { return f.handleResponse }

func (f *fakeInterceptor) HandleRequest(_, _ string, payload []byte) ([]byte, error) {
	f.sawRequest = append(f.sawRequest, append([]byte(nil), payload...))
	if f.onRequest == nil {
		return payload, nil
	}
	return f.onRequest(payload)
}

func (f *fakeInterceptor) HandleResponse(_, _ string, payload []byte) ([]byte, error) {
	if f.onResponse == nil {
		return payload, nil
	}
	return f.onResponse(payload)
}

func frame(payload []byte) []byte {
	out := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(out[1:frameHeaderLen], uint32(len(payload)))
	copy(out[frameHeaderLen:], payload)
	return out
}

// echoHandler replies with the request body it received.
var echoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/grpc")
	_, _ = w.Write(body)
})

func TestParseMethodPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		service string
		method  string
	}{
		{name: "WellFormed", path: "/core.InvehicleDigitalTwin/Register", service: "InvehicleDigitalTwin", method: "Register"},
		{name: "NoDot", path: "/InvehicleDigitalTwin/Register"},
		{name: "TwoDots", path: "/sdv.core.InvehicleDigitalTwin/Register"},
		{name: "MissingMethod", path: "/core.InvehicleDigitalTwin"},
		{name: "ExtraSegment", path: "/core.InvehicleDigitalTwin/Register/extra"},
		{name: "Empty", path: ""},
		{name: "Root", path: "/"},
		{name: "EmptyServicePart", path: "/core./Register"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, method := ParseMethodPath(tt.path)
			assert.Equal(t, tt.service, service)
			assert.Equal(t, tt.method, method)
		})
	}
}

func TestRewriteFramesRecomputesLength(t *testing.T) {
	original := frame([]byte("short"))

	rewritten, err := rewriteFrames(original, func(payload []byte) ([]byte, error) {
		return []byte("a considerably longer payload"), nil
	})
	require.NoError(t, err)

	length := binary.BigEndian.Uint32(rewritten[1:frameHeaderLen])
	assert.Equal(t, uint32(len("a considerably longer payload")), length)
	assert.Equal(t, []byte("a considerably longer payload"), rewritten[frameHeaderLen:])
}

func TestRewriteFramesMultipleFrames(t *testing.T) {
	body := append(frame([]byte("one")), frame([]byte("three"))...)

	rewritten, err := rewriteFrames(body, func(payload []byte) ([]byte, error) {
		return append(payload, '!'), nil
	})
	require.NoError(t, err)

	first := rewritten[:frameHeaderLen+4]
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(first[1:frameHeaderLen]))
	assert.Equal(t, []byte("one!"), first[frameHeaderLen:])

	second := rewritten[frameHeaderLen+4:]
	assert.Equal(t, uint32(6), binary.BigEndian.Uint32(second[1:frameHeaderLen]))
	assert.Equal(t, []byte("three!"), second[frameHeaderLen:])
}

func TestRewriteFramesTruncated(t *testing.T) {
	identity := func(p []byte) ([]byte, error) { return p, nil }

	_, err := rewriteFrames([]byte{0, 0}, identity)
	assert.ErrorIs(t, err, ErrTruncatedFrame)

	bad := frame([]byte("abc"))
	binary.BigEndian.PutUint32(bad[1:frameHeaderLen], 100)
	_, err = rewriteFrames(bad, identity)
	assert.ErrorIs(t, err, ErrTruncatedFrame)
}

func TestTransportLayerRewritesRequestAndResponse(t *testing.T) {
	ic := &fakeInterceptor{
		service:        "InvehicleDigitalTwin",
		method:         "Register",
		handleRequest:  true,
		handleResponse: true,
		onRequest:      func(p []byte) ([]byte, error) { return bytes.ToUpper(p), nil },
		onResponse:     func(p []byte) ([]byte, error) { return append(p, []byte(" (rewritten)")...), nil },
	}
	layer := NewTransportLayer(echoHandler, ic)

	req := httptest.NewRequest(http.MethodPost, "/core.InvehicleDigitalTwin/Register", bytes.NewReader(frame([]byte("hello"))))
	rec := httptest.NewRecorder()
	layer.ServeHTTP(rec, req)

	require.Equal(t, [][]byte{[]byte("hello")}, ic.sawRequest, "interceptor sees the raw payload without the header")

	body := rec.Body.Bytes()
	length := binary.BigEndian.Uint32(body[1:frameHeaderLen])
	payload := body[frameHeaderLen:]
	assert.Equal(t, []byte("HELLO (rewritten)"), payload)
	assert.Equal(t, uint32(len(payload)), length, "response frame length is recomputed")
}

func TestTransportLayerPassThroughWhenNotApplicable(t *testing.T) {
	ic := &fakeInterceptor{
		service:        "InvehicleDigitalTwin",
		method:         "Register",
		handleRequest:  true,
		handleResponse: true,
		onRequest:      func(p []byte) ([]byte, error) { return []byte("tampered"), nil },
		onResponse:     func(p []byte) ([]byte, error) { return []byte("tampered"), nil },
	}
	layer := NewTransportLayer(echoHandler, ic)

	original := frame([]byte("untouched"))
	req := httptest.NewRequest(http.MethodPost, "/core.InvehicleDigitalTwin/FindById", bytes.NewReader(original))
	rec := httptest.NewRecorder()
	layer.ServeHTTP(rec, req)

	assert.Empty(t, ic.sawRequest)
	assert.Equal(t, original, rec.Body.Bytes(), "request and response bytes pass through unchanged")
}

func TestTransportLayerMalformedPathNeverMatches(t *testing.T) {
	ic := &fakeInterceptor{
		service: "InvehicleDigitalTwin", method: "Register", handleRequest: true,
		onRequest: func(p []byte) ([]byte, error) { return []byte("tampered"), nil },
	}
	layer := NewTransportLayer(echoHandler, ic)

	// A service qualifier without a dot degrades to empty names; the
	// interceptor never fires and the call completes untouched.
	original := frame([]byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/no-dot-service/Register", bytes.NewReader(original))
	rec := httptest.NewRecorder()
	layer.ServeHTTP(rec, req)

	assert.Empty(t, ic.sawRequest)
	assert.Equal(t, original, rec.Body.Bytes())
}

func TestTransportLayerInterceptorErrorBecomesGRPCStatus(t *testing.T) {
	ic := &fakeInterceptor{
		service:       "InvehicleDigitalTwin",
		method:        "Register",
		handleRequest: true,
		onRequest:     func(p []byte) ([]byte, error) { return nil, io.ErrUnexpectedEOF },
	}
	layer := NewTransportLayer(echoHandler, ic)

	req := httptest.NewRequest(http.MethodPost, "/core.InvehicleDigitalTwin/Register", bytes.NewReader(frame([]byte("x"))))
	rec := httptest.NewRecorder()
	layer.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "13", rec.Header().Get("Grpc-Status"))
	assert.Contains(t, rec.Header().Get("Grpc-Message"), "request interception failed")
	assert.Zero(t, rec.Body.Len())
}

func TestTransportLayerChainOrder(t *testing.T) {
	first := &fakeInterceptor{
		service: "S", method: "M", handleRequest: true,
		onRequest: func(p []byte) ([]byte, error) { return append(p, 'a'), nil },
	}
	second := &fakeInterceptor{
		service: "S", method: "M", handleRequest: true,
		onRequest: func(p []byte) ([]byte, error) { return append(p, 'b'), nil },
	}
	layer := NewTransportLayer(echoHandler, first, second)

	req := httptest.NewRequest(http.MethodPost, "/pkg.S/M", bytes.NewReader(frame([]byte("x"))))
	rec := httptest.NewRecorder()
	layer.ServeHTTP(rec, req)

	assert.Equal(t, []byte("xab"), rec.Body.Bytes()[frameHeaderLen:])
}
