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

// Package managedsubscribe intercepts entity registration calls and reroutes
// subscribe endpoints through the managed subscribe extension. A provider
// that advertises the ManagedSubscribe operation on an endpoint keeps its
// original callback in the shared subscription store, while the published
// registration points consumers at the extension service instead.
package managedsubscribe

import (
	"fmt"
	"log"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry/wire"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/subscription"
)

const componentName = "managed-subscribe"

// ManagedSubscribeOperation is the endpoint operation providers advertise to
// opt in to broker-managed subscriptions.
const ManagedSubscribeOperation = "ManagedSubscribe"

const (
	registryServiceName = "InvehicleDigitalTwin"
	registerMethodName  = "Register"
	grpcProtocol        = "grpc"
)

// Interceptor rewrites Register requests in flight. It is shared across
// concurrent calls; all mutable state lives in the subscription store.
type Interceptor struct {
	store        *subscription.Store
	extensionURI string
}

// NewInterceptor returns an interceptor that redirects managed subscribe
// endpoints to extensionURI.
func NewInterceptor(store *subscription.Store, extensionURI string) *Interceptor {
	return &Interceptor{store: store, extensionURI: extensionURI}
}

// Applicable reports whether the named call is an entity registration.
func (i *Interceptor) Applicable(serviceName, methodName string) bool {
	return serviceName == registryServiceName && methodName == registerMethodName
}

// MustHandleRequest reports that registration requests are rewritten.
func (i *Interceptor) MustHandleRequest() bool { return true }

// MustHandleResponse reports that responses pass through untouched.
func (i *Interceptor) MustHandleResponse() bool { return false }

// HandleRequest decodes the registration, records the original callback of
// every ManagedSubscribe endpoint, points the endpoint at the extension
// service and re-encodes the request.
func (i *Interceptor) HandleRequest(serviceName, methodName string, payload []byte) ([]byte, error) {
	req := new(wire.RegisterRequest)
	if err := req.UnmarshalWire(payload); err != nil {
		return nil, fmt.Errorf("decode %s.%s request: %w", serviceName, methodName, err)
	}

	rewritten := false
	for _, entity := range req.Entities {
		for _, endpoint := range entity.Endpoints {
			if !hasOperation(endpoint.Operations, ManagedSubscribeOperation) {
				continue
			}
			i.store.AddEntity(entity.InstanceID, subscription.Callback{
				URI:      endpoint.URI,
				Protocol: endpoint.Protocol,
			})
			endpoint.URI = i.extensionURI
			endpoint.Protocol = grpcProtocol
			rewritten = true
			log.Printf("📨 [%s] Rerouted endpoint of entity %q to the extension service", componentName, entity.InstanceID)
		}
	}
	if !rewritten {
		return payload, nil
	}
	return req.MarshalWire(), nil
}

// HandleResponse passes the response through unchanged.
func (i *Interceptor) HandleResponse(string, string, []byte) ([]byte, error) {
	return nil, fmt.Errorf("managed subscribe interceptor does not rewrite responses")
}

func hasOperation(operations []string, wanted string) bool {
	for _, op := range operations {
		if op == wanted {
			return true
		}
	}
	return false
}
