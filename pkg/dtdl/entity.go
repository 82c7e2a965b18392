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

package dtdl

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"
)

// Entity is the common contract of every parsed DTDL construct. The set of
// implementations is closed: exactly the *Info types in this package satisfy
// it, discriminated by EntityKind. Callers dispatch with a type switch.
type Entity interface {
	// Base exposes the capability fields shared by every entity.
	Base() *EntityBase
	// EntityKind returns the discriminant of the concrete variant.
	EntityKind() EntityKind

	isEntity()
}

// EntityBase carries the fields shared by all entity variants. ChildOf is the
// lexical parent and DefinedIn the containing partition; both may be nil only
// for the primitive bootstrap entities and top-level interfaces without a
// defining partition. UndefinedProperties is a forward-compatible bag of
// JSON-LD properties the metamodel does not recognize, stored as raw JSON.
type EntityBase struct {
	Kind                EntityKind                 `json:"entityKind"`
	DTDLVersion         int                        `json:"dtdlVersion"`
	ID                  dtmi.Dtmi                  `json:"id"`
	ChildOf             *dtmi.Dtmi                 `json:"childOf,omitempty"`
	DefinedIn           *dtmi.Dtmi                 `json:"definedIn,omitempty"`
	UndefinedProperties map[string]json.RawMessage `json:"undefinedProperties,omitempty"`
}

func (b *EntityBase) Base() *EntityBase      { return b }
func (b *EntityBase) EntityKind() EntityKind { return b.Kind }
func (b *EntityBase) isEntity()              {}

// InterfaceInfo is a parsed DTDL Interface. Its contents are inserted into
// the dictionary as separate entities with ChildOf set to the interface id.
type InterfaceInfo struct {
	EntityBase
}

// Clone returns a value copy of the interface, with its own copy of the
// undefined-property bag. Components hold cloned interfaces rather than live
// dictionary references.
func (i *InterfaceInfo) Clone() *InterfaceInfo {
	c := *i
	if i.UndefinedProperties != nil {
		c.UndefinedProperties = make(map[string]json.RawMessage, len(i.UndefinedProperties))
		for k, v := range i.UndefinedProperties {
			c.UndefinedProperties[k] = v
		}
	}
	return &c
}

// TelemetryInfo is a parsed Telemetry content entry.
type TelemetryInfo struct {
	EntityBase
	Name   string `json:"name,omitempty"`
	Schema Entity `json:"schema,omitempty"`
}

// PropertyInfo is a parsed Property content entry.
type PropertyInfo struct {
	EntityBase
	Name     string `json:"name,omitempty"`
	Schema   Entity `json:"schema,omitempty"`
	Writable bool   `json:"writable"`
}

// CommandInfo is a parsed Command content entry. Request and response are
// optional payloads, each an owned sub-entity whose id is scoped under the
// command's id.
type CommandInfo struct {
	EntityBase
	Name     string              `json:"name,omitempty"`
	Request  *CommandPayloadInfo `json:"request,omitempty"`
	Response *CommandPayloadInfo `json:"response,omitempty"`
}

// CommandPayloadInfo describes one direction of a Command.
type CommandPayloadInfo struct {
	EntityBase
	Name   string `json:"name,omitempty"`
	Schema Entity `json:"schema,omitempty"`
}

// FieldInfo is a named field of an Object schema.
type FieldInfo struct {
	EntityBase
	Name   string `json:"name,omitempty"`
	Schema Entity `json:"schema,omitempty"`
}

// ObjectInfo is a complex Object schema with ordered fields, each carrying
// its own generated child id.
type ObjectInfo struct {
	EntityBase
	Fields []*FieldInfo `json:"fields,omitempty"`
}

// RelationshipInfo is a parsed Relationship content entry. Target schema
// resolution is not implemented: Schema stays nil and Writable false, which
// mirrors the upstream metamodel gap rather than guessing semantics.
type RelationshipInfo struct {
	EntityBase
	Name     string `json:"name,omitempty"`
	Schema   Entity `json:"schema,omitempty"`
	Writable bool   `json:"writable"`
}

// ComponentInfo is a parsed Component content entry. Schema is a value copy
// of the referenced interface taken from the dictionary at parse time.
type ComponentInfo struct {
	EntityBase
	Name   string         `json:"name,omitempty"`
	Schema *InterfaceInfo `json:"schema,omitempty"`
}

// PrimitiveSchemaInfo is a primitive schema entity. It carries only the base
// fields; the kind tag distinguishes the ten primitive schemas.
type PrimitiveSchemaInfo struct {
	EntityBase
}

// UnmarshalEntity creates the appropriate concrete entity type from JSON by
// first reading the entityKind discriminator and then decoding the full
// variant.
func UnmarshalEntity(data []byte) (Entity, error) {
	var raw struct {
		Kind EntityKind `json:"entityKind"`
	}
	var json = jsoniter.ConfigCompatibleWithStandardLibrary

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to determine entityKind: %w", err)
	}

	switch raw.Kind {
	case EntityKindInterface:
		var e InterfaceInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Interface: %w", err)
		}
		return &e, nil
	case EntityKindTelemetry:
		var e TelemetryInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Telemetry: %w", err)
		}
		return &e, nil
	case EntityKindProperty:
		var e PropertyInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Property: %w", err)
		}
		return &e, nil
	case EntityKindCommand:
		var e CommandInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Command: %w", err)
		}
		return &e, nil
	case EntityKindCommandPayload:
		var e CommandPayloadInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal CommandPayload: %w", err)
		}
		return &e, nil
	case EntityKindRelationship:
		var e RelationshipInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Relationship: %w", err)
		}
		return &e, nil
	case EntityKindComponent:
		var e ComponentInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Component: %w", err)
		}
		return &e, nil
	case EntityKindField:
		var e FieldInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Field: %w", err)
		}
		return &e, nil
	case EntityKindObject:
		var e ObjectInfo
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Object: %w", err)
		}
		return &e, nil
	default:
		if raw.Kind.IsPrimitive() {
			var e PrimitiveSchemaInfo
			if err := json.Unmarshal(data, &e); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", raw.Kind, err)
			}
			return &e, nil
		}
		return nil, fmt.Errorf("unknown entityKind %q", raw.Kind)
	}
}

func decodeSchema(raw json.RawMessage) (Entity, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return UnmarshalEntity(raw)
}

// namedWithSchema is the decode shim for variants that own a polymorphic
// schema entity: the schema is captured raw and dispatched through
// UnmarshalEntity once the discriminator is known.
type namedWithSchema struct {
	EntityBase
	Name     string          `json:"name,omitempty"`
	Schema   json.RawMessage `json:"schema,omitempty"`
	Writable bool            `json:"writable"`
}

func decodeNamedWithSchema(data []byte) (namedWithSchema, Entity, error) {
	var dec namedWithSchema
	var json = jsoniter.ConfigCompatibleWithStandardLibrary
	if err := json.Unmarshal(data, &dec); err != nil {
		return namedWithSchema{}, nil, err
	}
	schema, err := decodeSchema(dec.Schema)
	if err != nil {
		return namedWithSchema{}, nil, err
	}
	return dec, schema, nil
}

// UnmarshalJSON decodes a Telemetry, dispatching its schema by entityKind.
func (t *TelemetryInfo) UnmarshalJSON(data []byte) error {
	dec, schema, err := decodeNamedWithSchema(data)
	if err != nil {
		return err
	}
	*t = TelemetryInfo{EntityBase: dec.EntityBase, Name: dec.Name, Schema: schema}
	return nil
}

// UnmarshalJSON decodes a Property, dispatching its schema by entityKind.
func (p *PropertyInfo) UnmarshalJSON(data []byte) error {
	dec, schema, err := decodeNamedWithSchema(data)
	if err != nil {
		return err
	}
	*p = PropertyInfo{EntityBase: dec.EntityBase, Name: dec.Name, Schema: schema, Writable: dec.Writable}
	return nil
}

// UnmarshalJSON decodes a CommandPayload, dispatching its schema by entityKind.
func (c *CommandPayloadInfo) UnmarshalJSON(data []byte) error {
	dec, schema, err := decodeNamedWithSchema(data)
	if err != nil {
		return err
	}
	*c = CommandPayloadInfo{EntityBase: dec.EntityBase, Name: dec.Name, Schema: schema}
	return nil
}

// UnmarshalJSON decodes a Field, dispatching its schema by entityKind.
func (f *FieldInfo) UnmarshalJSON(data []byte) error {
	dec, schema, err := decodeNamedWithSchema(data)
	if err != nil {
		return err
	}
	*f = FieldInfo{EntityBase: dec.EntityBase, Name: dec.Name, Schema: schema}
	return nil
}

// UnmarshalJSON decodes a Relationship, dispatching its schema by entityKind.
func (r *RelationshipInfo) UnmarshalJSON(data []byte) error {
	dec, schema, err := decodeNamedWithSchema(data)
	if err != nil {
		return err
	}
	*r = RelationshipInfo{EntityBase: dec.EntityBase, Name: dec.Name, Schema: schema, Writable: dec.Writable}
	return nil
}
