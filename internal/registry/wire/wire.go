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

// Package wire hand-codes the protobuf wire format of the in-vehicle digital
// twin service messages. The platform treats RPC messages as opaque
// byte-serializable records, so instead of generated stubs it carries small
// protowire codecs that round-trip unknown fields, which keeps intercepted
// payloads rewritable without loss.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every wire record in this package and is what
// the gRPC codec dispatches on.
type Message interface {
	MarshalWire() []byte
	UnmarshalWire(data []byte) error
}

// Codec is a grpc encoding codec over Message. It registers under the proto
// codec name so clients speaking standard protobuf interoperate with the
// hand-coded records.
type Codec struct{}

// Name returns the codec name.
func (Codec) Name() string { return "proto" }

// Marshal encodes a wire message.
func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("wire codec: cannot marshal %T", v)
	}
	return m.MarshalWire(), nil
}

// Unmarshal decodes a wire message.
func (Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("wire codec: cannot unmarshal into %T", v)
	}
	return m.UnmarshalWire(data)
}

// EndpointInfo describes one way of reaching a provider for an entity.
type EndpointInfo struct {
	Protocol   string
	URI        string
	Operations []string
	Context    string

	unknown []byte
}

// EntityAccessInfo is the registration record for one entity: who provides
// it, which instance and model it is, and through which endpoints it can be
// reached. DtdlDocuments optionally carries the DTDL source describing the
// model so the registry can index it for discovery by model id.
type EntityAccessInfo struct {
	ProviderID    string
	InstanceID    string
	ModelID       string
	Endpoints     []*EndpointInfo
	DtdlDocuments []string

	unknown []byte
}

// RegisterRequest registers a batch of entities.
type RegisterRequest struct {
	Entities []*EntityAccessInfo

	unknown []byte
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct{}

// FindByIdRequest looks an entity up by instance id.
type FindByIdRequest struct {
	ID string

	unknown []byte
}

// FindByIdResponse returns the matching registration record.
type FindByIdResponse struct {
	Entity *EntityAccessInfo

	unknown []byte
}

// FindByModelRequest looks entities up by model id.
type FindByModelRequest struct {
	ModelID string

	unknown []byte
}

// FindByModelResponse returns every registration of the model.
type FindByModelResponse struct {
	Entities []*EntityAccessInfo

	unknown []byte
}

// AppendStringField appends a length-delimited string field, omitting it
// entirely when the value is empty.
func AppendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// AppendBytesField appends a length-delimited field, typically a nested
// message.
func AppendBytesField(b []byte, num protowire.Number, raw []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, raw)
}

// MarshalWire encodes the endpoint: protocol=1, uri=2, operations=3,
// context=4.
func (e *EndpointInfo) MarshalWire() []byte {
	var b []byte
	b = AppendStringField(b, 1, e.Protocol)
	b = AppendStringField(b, 2, e.URI)
	for _, op := range e.Operations {
		b = AppendStringField(b, 3, op)
	}
	b = AppendStringField(b, 4, e.Context)
	return append(b, e.unknown...)
}

// UnmarshalWire decodes the endpoint, keeping unrecognized fields for
// re-encoding.
func (e *EndpointInfo) UnmarshalWire(data []byte) error {
	*e = EndpointInfo{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			e.Protocol = string(value)
		case num == 2 && typ == protowire.BytesType:
			e.URI = string(value)
		case num == 3 && typ == protowire.BytesType:
			e.Operations = append(e.Operations, string(value))
		case num == 4 && typ == protowire.BytesType:
			e.Context = string(value)
		default:
			e.unknown = append(e.unknown, raw...)
		}
		return nil
	})
}

// MarshalWire encodes the record: provider_id=1, instance_id=2, model_id=3,
// endpoints=4, dtdl_documents=5.
func (a *EntityAccessInfo) MarshalWire() []byte {
	var b []byte
	b = AppendStringField(b, 1, a.ProviderID)
	b = AppendStringField(b, 2, a.InstanceID)
	b = AppendStringField(b, 3, a.ModelID)
	for _, endpoint := range a.Endpoints {
		b = AppendBytesField(b, 4, endpoint.MarshalWire())
	}
	for _, doc := range a.DtdlDocuments {
		b = AppendStringField(b, 5, doc)
	}
	return append(b, a.unknown...)
}

// UnmarshalWire decodes the record, keeping unrecognized fields.
func (a *EntityAccessInfo) UnmarshalWire(data []byte) error {
	*a = EntityAccessInfo{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			a.ProviderID = string(value)
		case num == 2 && typ == protowire.BytesType:
			a.InstanceID = string(value)
		case num == 3 && typ == protowire.BytesType:
			a.ModelID = string(value)
		case num == 4 && typ == protowire.BytesType:
			endpoint := new(EndpointInfo)
			if err := endpoint.UnmarshalWire(value); err != nil {
				return err
			}
			a.Endpoints = append(a.Endpoints, endpoint)
		case num == 5 && typ == protowire.BytesType:
			a.DtdlDocuments = append(a.DtdlDocuments, string(value))
		default:
			a.unknown = append(a.unknown, raw...)
		}
		return nil
	})
}

// MarshalWire encodes the request: entities=1.
func (r *RegisterRequest) MarshalWire() []byte {
	var b []byte
	for _, entity := range r.Entities {
		b = AppendBytesField(b, 1, entity.MarshalWire())
	}
	return append(b, r.unknown...)
}

// UnmarshalWire decodes the request, keeping unrecognized fields.
func (r *RegisterRequest) UnmarshalWire(data []byte) error {
	*r = RegisterRequest{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		if num == 1 && typ == protowire.BytesType {
			entity := new(EntityAccessInfo)
			if err := entity.UnmarshalWire(value); err != nil {
				return err
			}
			r.Entities = append(r.Entities, entity)
			return nil
		}
		r.unknown = append(r.unknown, raw...)
		return nil
	})
}

// MarshalWire encodes the empty acknowledgement.
func (*RegisterResponse) MarshalWire() []byte { return nil }

// UnmarshalWire accepts any bytes for the empty acknowledgement.
func (*RegisterResponse) UnmarshalWire([]byte) error { return nil }

// MarshalWire encodes the request: id=1.
func (r *FindByIdRequest) MarshalWire() []byte {
	return append(AppendStringField(nil, 1, r.ID), r.unknown...)
}

// UnmarshalWire decodes the request.
func (r *FindByIdRequest) UnmarshalWire(data []byte) error {
	*r = FindByIdRequest{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		if num == 1 && typ == protowire.BytesType {
			r.ID = string(value)
			return nil
		}
		r.unknown = append(r.unknown, raw...)
		return nil
	})
}

// MarshalWire encodes the response: entity=1.
func (r *FindByIdResponse) MarshalWire() []byte {
	var b []byte
	if r.Entity != nil {
		b = AppendBytesField(b, 1, r.Entity.MarshalWire())
	}
	return append(b, r.unknown...)
}

// UnmarshalWire decodes the response.
func (r *FindByIdResponse) UnmarshalWire(data []byte) error {
	*r = FindByIdResponse{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		if num == 1 && typ == protowire.BytesType {
			entity := new(EntityAccessInfo)
			if err := entity.UnmarshalWire(value); err != nil {
				return err
			}
			r.Entity = entity
			return nil
		}
		r.unknown = append(r.unknown, raw...)
		return nil
	})
}

// MarshalWire encodes the request: model_id=1.
func (r *FindByModelRequest) MarshalWire() []byte {
	return append(AppendStringField(nil, 1, r.ModelID), r.unknown...)
}

// UnmarshalWire decodes the request.
func (r *FindByModelRequest) UnmarshalWire(data []byte) error {
	*r = FindByModelRequest{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		if num == 1 && typ == protowire.BytesType {
			r.ModelID = string(value)
			return nil
		}
		r.unknown = append(r.unknown, raw...)
		return nil
	})
}

// MarshalWire encodes the response: entities=1.
func (r *FindByModelResponse) MarshalWire() []byte {
	var b []byte
	for _, entity := range r.Entities {
		b = AppendBytesField(b, 1, entity.MarshalWire())
	}
	return append(b, r.unknown...)
}

// UnmarshalWire decodes the response.
func (r *FindByModelResponse) UnmarshalWire(data []byte) error {
	*r = FindByModelResponse{}
	return WalkFields(data, func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error {
		if num == 1 && typ == protowire.BytesType {
			entity := new(EntityAccessInfo)
			if err := entity.UnmarshalWire(value); err != nil {
				return err
			}
			r.Entities = append(r.Entities, entity)
			return nil
		}
		r.unknown = append(r.unknown, raw...)
		return nil
	})
}

// WalkFields iterates the top-level fields of a wire-encoded message so
// other packages can define additional Message implementations. For
// length-delimited fields, value holds the payload; raw always holds the
// complete field including its tag, so unknown fields can be preserved
// verbatim.
func WalkFields(data []byte, visit func(num protowire.Number, typ protowire.Type, value []byte, raw []byte) error) error {
	for len(data) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(data)
		if tagLen < 0 {
			return protowire.ParseError(tagLen)
		}
		valueLen := protowire.ConsumeFieldValue(num, typ, data[tagLen:])
		if valueLen < 0 {
			return protowire.ParseError(valueLen)
		}
		raw := data[:tagLen+valueLen]

		var value []byte
		if typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data[tagLen:])
			if n < 0 {
				return protowire.ParseError(n)
			}
			value = v
		}

		if err := visit(num, typ, value, raw); err != nil {
			return err
		}
		data = data[tagLen+valueLen:]
	}
	return nil
}
