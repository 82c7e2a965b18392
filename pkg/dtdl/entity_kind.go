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

// Package dtdl defines the typed entity model produced by parsing DTDL
// documents: the closed EntityKind enumeration of DTDL metaclasses, the
// polymorphic Entity family and the ModelDictionary that maps DTMIs to
// parsed entities.
package dtdl

import "github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"

// EntityKind identifies the concrete DTDL metaclass of an Entity. The set is
// closed: every kind maps 1:1 to a DTDL v2 metaclass IRI of the form
// "dtmi:dtdl:class:<Kind>;2" and drives parse dispatch as well as the JSON
// discriminator on serialized entities.
type EntityKind string

const (
	EntityKindInterface      EntityKind = "Interface"
	EntityKindTelemetry      EntityKind = "Telemetry"
	EntityKindProperty       EntityKind = "Property"
	EntityKindCommand        EntityKind = "Command"
	EntityKindCommandPayload EntityKind = "CommandPayload"
	EntityKindRelationship   EntityKind = "Relationship"
	EntityKindComponent      EntityKind = "Component"
	EntityKindField          EntityKind = "Field"
	EntityKindObject         EntityKind = "Object"

	EntityKindBoolean  EntityKind = "Boolean"
	EntityKindDate     EntityKind = "Date"
	EntityKindDateTime EntityKind = "DateTime"
	EntityKindDouble   EntityKind = "Double"
	EntityKindDuration EntityKind = "Duration"
	EntityKindFloat    EntityKind = "Float"
	EntityKindInteger  EntityKind = "Integer"
	EntityKindLong     EntityKind = "Long"
	EntityKindString   EntityKind = "String"
	EntityKindTime     EntityKind = "Time"
)

// classIRIPrefix and classIRISuffix bracket the kind name in a metaclass IRI.
const (
	classIRIPrefix = "dtmi:dtdl:class:"
	classIRISuffix = ";2"
)

// primitiveKinds lists the primitive schema subset in canonical order. The
// Model Parser seeds a dictionary with one PrimitiveSchemaInfo per entry.
var primitiveKinds = []EntityKind{
	EntityKindBoolean,
	EntityKindDate,
	EntityKindDateTime,
	EntityKindDouble,
	EntityKindDuration,
	EntityKindFloat,
	EntityKindInteger,
	EntityKindLong,
	EntityKindString,
	EntityKindTime,
}

var allKinds = append([]EntityKind{
	EntityKindInterface,
	EntityKindTelemetry,
	EntityKindProperty,
	EntityKindCommand,
	EntityKindCommandPayload,
	EntityKindRelationship,
	EntityKindComponent,
	EntityKindField,
	EntityKindObject,
}, primitiveKinds...)

var kindByIRI = func() map[string]EntityKind {
	m := make(map[string]EntityKind, len(allKinds))
	for _, k := range allKinds {
		m[k.IRI()] = k
	}
	return m
}()

// PrimitiveKinds returns the primitive schema kinds in canonical order. The
// returned slice must not be modified.
func PrimitiveKinds() []EntityKind { return primitiveKinds }

// IsPrimitive reports whether k is one of the primitive schema kinds
// (Boolean, Date, DateTime, Double, Duration, Float, Integer, Long, String,
// Time). Schema resolution uses this to distinguish primary schemas from
// complex Object schemas.
func (k EntityKind) IsPrimitive() bool {
	switch k {
	case EntityKindBoolean, EntityKindDate, EntityKindDateTime, EntityKindDouble,
		EntityKindDuration, EntityKindFloat, EntityKindInteger, EntityKindLong,
		EntityKindString, EntityKindTime:
		return true
	}
	return false
}

// IRI returns the DTDL v2 metaclass IRI for the kind.
func (k EntityKind) IRI() string { return classIRIPrefix + string(k) + classIRISuffix }

// CanonicalID returns the well-known Dtmi of the kind's metaclass IRI. The
// primitive bootstrap entities are keyed by these ids.
func (k EntityKind) CanonicalID() dtmi.Dtmi { return dtmi.MustParse(k.IRI()) }

// String returns the kind name.
func (k EntityKind) String() string { return string(k) }

// KindFromIRI resolves a DTDL metaclass IRI to its EntityKind. It returns
// false for IRIs outside the closed set.
func KindFromIRI(iri string) (EntityKind, bool) {
	k, ok := kindByIRI[iri]
	return k, ok
}
