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

package extension

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry/wire"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/subscription"
)

// SubscriptionInfoRequest asks for a managed subscription to one entity.
type SubscriptionInfoRequest struct {
	EntityID    string
	Constraints []subscription.Constraint

	unknown []byte
}

// SubscriptionInfoResponse tells the consumer where the provisioned topic
// lives: Context carries the topic name, Protocol and URI the broker.
type SubscriptionInfoResponse struct {
	Protocol string
	URI      string
	Context  string

	unknown []byte
}

// UnsubscribeRequest tears a managed topic down.
type UnsubscribeRequest struct {
	EntityID string
	Topic    string

	unknown []byte
}

// UnsubscribeResponse acknowledges a teardown.
type UnsubscribeResponse struct{}

func marshalConstraint(c subscription.Constraint) []byte {
	var b []byte
	b = wire.AppendStringField(b, 1, c.Type)
	b = wire.AppendStringField(b, 2, c.Value)
	return b
}

func unmarshalConstraint(data []byte) (subscription.Constraint, error) {
	var c subscription.Constraint
	err := wire.WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			c.Type = string(value)
		case num == 2 && typ == protowire.BytesType:
			c.Value = string(value)
		}
		return nil
	})
	return c, err
}

// MarshalWire encodes the request: entity_id=1, constraints=2.
func (r *SubscriptionInfoRequest) MarshalWire() []byte {
	var b []byte
	b = wire.AppendStringField(b, 1, r.EntityID)
	for _, constraint := range r.Constraints {
		b = wire.AppendBytesField(b, 2, marshalConstraint(constraint))
	}
	return append(b, r.unknown...)
}

// UnmarshalWire decodes the request, keeping unrecognized fields.
func (r *SubscriptionInfoRequest) UnmarshalWire(data []byte) error {
	*r = SubscriptionInfoRequest{}
	return wire.WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			r.EntityID = string(value)
		case num == 2 && typ == protowire.BytesType:
			constraint, err := unmarshalConstraint(value)
			if err != nil {
				return err
			}
			r.Constraints = append(r.Constraints, constraint)
		default:
			r.unknown = append(r.unknown, raw...)
		}
		return nil
	})
}

// MarshalWire encodes the response: protocol=1, uri=2, context=3.
func (r *SubscriptionInfoResponse) MarshalWire() []byte {
	var b []byte
	b = wire.AppendStringField(b, 1, r.Protocol)
	b = wire.AppendStringField(b, 2, r.URI)
	b = wire.AppendStringField(b, 3, r.Context)
	return append(b, r.unknown...)
}

// UnmarshalWire decodes the response, keeping unrecognized fields.
func (r *SubscriptionInfoResponse) UnmarshalWire(data []byte) error {
	*r = SubscriptionInfoResponse{}
	return wire.WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			r.Protocol = string(value)
		case num == 2 && typ == protowire.BytesType:
			r.URI = string(value)
		case num == 3 && typ == protowire.BytesType:
			r.Context = string(value)
		default:
			r.unknown = append(r.unknown, raw...)
		}
		return nil
	})
}

// MarshalWire encodes the request: entity_id=1, topic=2.
func (r *UnsubscribeRequest) MarshalWire() []byte {
	var b []byte
	b = wire.AppendStringField(b, 1, r.EntityID)
	b = wire.AppendStringField(b, 2, r.Topic)
	return append(b, r.unknown...)
}

// UnmarshalWire decodes the request, keeping unrecognized fields.
func (r *UnsubscribeRequest) UnmarshalWire(data []byte) error {
	*r = UnsubscribeRequest{}
	return wire.WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			r.EntityID = string(value)
		case num == 2 && typ == protowire.BytesType:
			r.Topic = string(value)
		default:
			r.unknown = append(r.unknown, raw...)
		}
		return nil
	})
}

// MarshalWire encodes the empty acknowledgement.
func (*UnsubscribeResponse) MarshalWire() []byte { return nil }

// UnmarshalWire accepts any bytes for the empty acknowledgement.
func (*UnsubscribeResponse) UnmarshalWire([]byte) error { return nil }
