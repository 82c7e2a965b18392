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

// Package intercept implements a protocol-level intercepting filter for gRPC
// services: a transport decorator that demultiplexes the service and method
// name from the request path, unwraps the gRPC message framing around
// protobuf payloads, runs a chain of interceptors over the raw message bytes
// and reassembles a valid gRPC byte stream in both directions.
package intercept

// Interceptor is the capability contract implemented per cross-cutting
// concern. HandleRequest and HandleResponse receive exactly the
// protobuf-encoded message bytes, with the gRPC frame header already
// stripped, and must return validly encoded bytes of the same logical message
// type, since downstream decoders assume the original schema.
//
// Interceptors are long-lived shared instances: one instance serves every
// call concurrently, so implementations that keep cross-call state must
// synchronize it internally. An implementation must never hold one of its
// locks across an outbound network call; the expected discipline is to copy
// what it needs under the lock, release, and then go to the network.
type Interceptor interface {
	// Applicable reports whether the interceptor wants to see calls to the
	// given service and method. The transport passes empty strings for
	// malformed request paths, and implementations must treat empty names
	// as never matching.
	Applicable(serviceName, methodName string) bool

	// MustHandleRequest reports whether request payloads of applicable
	// calls should be routed through HandleRequest.
	MustHandleRequest() bool

	// MustHandleResponse reports whether response payloads of applicable
	// calls should be routed through HandleResponse.
	MustHandleResponse() bool

	// HandleRequest transforms one request message payload.
	HandleRequest(serviceName, methodName string, payload []byte) ([]byte, error)

	// HandleResponse transforms one response message payload.
	HandleResponse(serviceName, methodName string, payload []byte) ([]byte, error)
}
