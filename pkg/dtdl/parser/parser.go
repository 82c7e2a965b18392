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

// Package parser builds typed entity graphs from DTDL JSON-LD documents. A
// ModelParser inlines registered @context references, expands the document to
// its canonical JSON-LD node form and walks the expanded nodes, dispatching
// on the DTDL metaclass of each node to assemble a ModelDictionary keyed by
// DTMI.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/piprate/json-gold/ld"

	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtdl"
	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"
)

// DTDL v2 metamodel property IRIs against which expanded node members are
// matched.
const (
	contentsIRI = "dtmi:dtdl:property:contents;2"
	nameIRI     = "dtmi:dtdl:property:name;2"
	schemaIRI   = "dtmi:dtdl:property:schema;2"
	writableIRI = "dtmi:dtdl:property:writable;2"
	requestIRI  = "dtmi:dtdl:property:request;2"
	responseIRI = "dtmi:dtdl:property:response;2"
	fieldsIRI   = "dtmi:dtdl:property:fields;2"
	targetIRI   = "dtmi:dtdl:property:target;2"
)

// dtdlVersion is the metamodel version this parser implements.
const dtdlVersion = 2

// recognizedProperties are the expanded member IRIs consumed by the parser;
// everything else on a node lands in the undefined-property bag.
var recognizedProperties = map[string]bool{
	contentsIRI: true,
	nameIRI:     true,
	schemaIRI:   true,
	writableIRI: true,
	requestIRI:  true,
	responseIRI: true,
	fieldsIRI:   true,
	targetIRI:   true,
}

// ModelParser parses DTDL JSON-LD documents into a ModelDictionary. A parser
// is synchronous per Parse call and holds no per-call state beyond its
// context resolver, so one instance may serve any single goroutine at a time;
// the dictionaries it returns are immutable and freely shareable.
type ModelParser struct {
	resolver  *ContextResolver
	processor *ld.JsonLdProcessor
	options   *ld.JsonLdOptions
}

// NewModelParser returns a parser that resolves @context references through
// resolver.
func NewModelParser(resolver *ContextResolver) *ModelParser {
	return &ModelParser{
		resolver:  resolver,
		processor: ld.NewJsonLdProcessor(),
		options:   ld.NewJsonLdOptions(""),
	}
}

// GenerateChildID derives the identifier of an entity defined inline under a
// parent entity, as the parent's versionless identifier extended with one
// label per the "{parent}:{name}" convention. Keeping this a pure function
// makes the parse-order sensitivity of generated ids visible and testable.
func GenerateChildID(parent dtmi.Dtmi, name string) (dtmi.Dtmi, error) {
	id, err := dtmi.Parse(parent.Versionless() + ":" + name)
	if err != nil {
		return dtmi.Dtmi{}, fmt.Errorf("%w: generated child id for %q under %s: %v", ErrInvalidDTMI, name, parent, err)
	}
	return id, nil
}

// Parse builds a ModelDictionary from the given DTDL JSON texts. The
// dictionary is seeded with one primitive schema entity per primitive kind at
// its canonical id, then each document is context-resolved, expanded and
// walked in order. Any failure discards the whole result; there are no
// partial-commit semantics across documents.
func (p *ModelParser) Parse(jsonTexts []string) (*dtdl.ModelDictionary, error) {
	dict := dtdl.NewModelDictionary()
	if err := seedPrimitives(dict); err != nil {
		return nil, err
	}
	for i, text := range jsonTexts {
		if err := p.parseDocument(text, dict); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return dict, nil
}

func seedPrimitives(dict *dtdl.ModelDictionary) error {
	for _, kind := range dtdl.PrimitiveKinds() {
		primitive := &dtdl.PrimitiveSchemaInfo{EntityBase: dtdl.EntityBase{
			Kind:        kind,
			DTDLVersion: dtdlVersion,
			ID:          kind.CanonicalID(),
		}}
		if err := dict.Add(primitive); err != nil {
			return err
		}
	}
	return nil
}

func (p *ModelParser) parseDocument(text string, dict *dtdl.ModelDictionary) error {
	var doc interface{}
	var json = jsoniter.ConfigCompatibleWithStandardLibrary
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	resolved, err := p.resolver.Resolve(doc)
	if err != nil {
		return err
	}

	nodes, err := p.processor.Expand(resolved, p.options)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExpansion, err)
	}

	for _, raw := range nodes {
		node, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: top-level node is not an object", ErrExpansion)
		}
		kind, err := classify(node)
		if err != nil {
			return err
		}
		if kind != dtdl.EntityKindInterface {
			return fmt.Errorf("%w: top-level node has kind %s, only interfaces may appear at the top level", ErrUnrecognizedKind, kind)
		}
		if err := p.parseInterface(node, dict); err != nil {
			return err
		}
	}
	return nil
}

// parseInterface parses one expanded Interface node and inserts it and all
// of its contents into the dictionary. Interfaces require an explicit,
// well-formed @id.
func (p *ModelParser) parseInterface(node map[string]interface{}, dict *dtdl.ModelDictionary) error {
	rawID, ok := node["@id"].(string)
	if !ok || rawID == "" {
		return fmt.Errorf("%w: interface has no @id", ErrMissingProperty)
	}
	id, err := dtmi.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: interface @id: %v", ErrInvalidDTMI, err)
	}

	iface := &dtdl.InterfaceInfo{EntityBase: dtdl.EntityBase{
		Kind:                dtdl.EntityKindInterface,
		DTDLVersion:         dtdlVersion,
		ID:                  id,
		UndefinedProperties: undefinedProperties(node),
	}}

	for _, raw := range listValue(node, contentsIRI) {
		child, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: contents entry of %s is not a node", ErrExpansion, id)
		}
		if err := p.parseContent(child, id, dict); err != nil {
			return fmt.Errorf("interface %s: %w", id, err)
		}
	}

	return dict.Add(iface)
}

// parseContent dispatches one expanded contents node by its metaclass and
// inserts the resulting entity (and any schema entities it owns) into the
// dictionary. ChildOf and DefinedIn of a content entity are both the
// enclosing interface.
func (p *ModelParser) parseContent(node map[string]interface{}, parent dtmi.Dtmi, dict *dtdl.ModelDictionary) error {
	kind, err := classify(node)
	if err != nil {
		return err
	}

	name, ok := singleString(node, nameIRI)
	if !ok {
		return fmt.Errorf("%w: %s content has no name", ErrMissingProperty, kind)
	}
	id, err := contentID(node, parent, name)
	if err != nil {
		return err
	}
	base := dtdl.EntityBase{
		Kind:                kind,
		DTDLVersion:         dtdlVersion,
		ID:                  id,
		ChildOf:             &parent,
		DefinedIn:           &parent,
		UndefinedProperties: undefinedProperties(node),
	}

	switch kind {
	case dtdl.EntityKindTelemetry:
		schema, err := p.resolveSchema(node, id, parent, dict)
		if err != nil {
			return fmt.Errorf("telemetry %q: %w", name, err)
		}
		return dict.Add(&dtdl.TelemetryInfo{EntityBase: base, Name: name, Schema: schema})

	case dtdl.EntityKindProperty:
		schema, err := p.resolveSchema(node, id, parent, dict)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		writable, _ := singleBool(node, writableIRI)
		return dict.Add(&dtdl.PropertyInfo{EntityBase: base, Name: name, Schema: schema, Writable: writable})

	case dtdl.EntityKindCommand:
		command := &dtdl.CommandInfo{EntityBase: base, Name: name}
		if request, ok := singleNode(node, requestIRI); ok {
			payload, err := p.parsePayload(request, id, parent, dict)
			if err != nil {
				return fmt.Errorf("command %q request: %w", name, err)
			}
			command.Request = payload
		}
		if response, ok := singleNode(node, responseIRI); ok {
			payload, err := p.parsePayload(response, id, parent, dict)
			if err != nil {
				return fmt.Errorf("command %q response: %w", name, err)
			}
			command.Response = payload
		}
		return dict.Add(command)

	case dtdl.EntityKindRelationship:
		// Relationship target schema resolution is intentionally not
		// implemented; see the package notes in DESIGN.md.
		return dict.Add(&dtdl.RelationshipInfo{EntityBase: base, Name: name})

	case dtdl.EntityKindComponent:
		ref, err := componentReference(node)
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}
		iface, ok := dict.GetInterface(ref)
		if !ok {
			return fmt.Errorf("%w: component %q references interface %s, which has not been parsed", ErrUnresolvedReference, name, ref)
		}
		return dict.Add(&dtdl.ComponentInfo{EntityBase: base, Name: name, Schema: iface.Clone()})

	default:
		return fmt.Errorf("%w: %s is not a valid content kind", ErrUnrecognizedKind, kind)
	}
}

// parsePayload parses a command request or response node. Payload ids are
// scoped under the command, with the command as lexical parent and the
// enclosing interface as partition.
func (p *ModelParser) parsePayload(node map[string]interface{}, command dtmi.Dtmi, partition dtmi.Dtmi, dict *dtdl.ModelDictionary) (*dtdl.CommandPayloadInfo, error) {
	name, ok := singleString(node, nameIRI)
	if !ok {
		return nil, fmt.Errorf("%w: command payload has no name", ErrMissingProperty)
	}
	id, err := contentID(node, command, name)
	if err != nil {
		return nil, err
	}
	schema, err := p.resolveSchema(node, id, partition, dict)
	if err != nil {
		return nil, fmt.Errorf("payload %q: %w", name, err)
	}

	payload := &dtdl.CommandPayloadInfo{
		EntityBase: dtdl.EntityBase{
			Kind:                dtdl.EntityKindCommandPayload,
			DTDLVersion:         dtdlVersion,
			ID:                  id,
			ChildOf:             &command,
			DefinedIn:           &partition,
			UndefinedProperties: undefinedProperties(node),
		},
		Name:   name,
		Schema: schema,
	}
	if err := dict.Add(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// resolveSchema resolves the schema member of node. A primary schema is a
// bare IRI naming a primitive kind and yields a fresh primitive entity with
// an id generated under the owning entity; a complex schema is a nested
// Object node with its own fields. Every resolved schema entity is inserted
// into the dictionary.
func (p *ModelParser) resolveSchema(node map[string]interface{}, owner dtmi.Dtmi, partition dtmi.Dtmi, dict *dtdl.ModelDictionary) (dtdl.Entity, error) {
	values := listValue(node, schemaIRI)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: schema", ErrMissingProperty)
	}
	entry, ok := values[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: schema value has unsupported shape", ErrUnresolvedReference)
	}

	// Bare IRI reference: primitive schema kinds only. Interface references
	// are legal solely on components and handled there.
	if iri, ok := entry["@id"].(string); ok && len(entry) == 1 {
		kind, known := dtdl.KindFromIRI(iri)
		if !known || !kind.IsPrimitive() {
			return nil, fmt.Errorf("%w: schema reference %q is not a primitive schema", ErrUnresolvedReference, iri)
		}
		id, err := GenerateChildID(owner, "schema")
		if err != nil {
			return nil, err
		}
		primitive := &dtdl.PrimitiveSchemaInfo{EntityBase: dtdl.EntityBase{
			Kind:        kind,
			DTDLVersion: dtdlVersion,
			ID:          id,
			ChildOf:     &owner,
			DefinedIn:   &partition,
		}}
		if err := dict.Add(primitive); err != nil {
			return nil, err
		}
		return primitive, nil
	}

	kind, err := classify(entry)
	if err != nil {
		return nil, err
	}
	if kind != dtdl.EntityKindObject {
		return nil, fmt.Errorf("%w: complex schema kind %s is not supported", ErrUnrecognizedKind, kind)
	}
	return p.parseObject(entry, owner, partition, dict)
}

// parseObject parses a complex Object schema node, resolving each named
// field recursively. Field ids are generated under the object's id.
func (p *ModelParser) parseObject(node map[string]interface{}, owner dtmi.Dtmi, partition dtmi.Dtmi, dict *dtdl.ModelDictionary) (*dtdl.ObjectInfo, error) {
	id, err := contentID(node, owner, "schema")
	if err != nil {
		return nil, err
	}
	object := &dtdl.ObjectInfo{EntityBase: dtdl.EntityBase{
		Kind:                dtdl.EntityKindObject,
		DTDLVersion:         dtdlVersion,
		ID:                  id,
		ChildOf:             &owner,
		DefinedIn:           &partition,
		UndefinedProperties: undefinedProperties(node),
	}}

	for _, raw := range listValue(node, fieldsIRI) {
		fieldNode, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: object field is not a node", ErrExpansion)
		}
		field, err := p.parseField(fieldNode, id, partition, dict)
		if err != nil {
			return nil, err
		}
		object.Fields = append(object.Fields, field)
	}

	if err := dict.Add(object); err != nil {
		return nil, err
	}
	return object, nil
}

func (p *ModelParser) parseField(node map[string]interface{}, object dtmi.Dtmi, partition dtmi.Dtmi, dict *dtdl.ModelDictionary) (*dtdl.FieldInfo, error) {
	name, ok := singleString(node, nameIRI)
	if !ok {
		return nil, fmt.Errorf("%w: object field has no name", ErrMissingProperty)
	}
	id, err := contentID(node, object, name)
	if err != nil {
		return nil, err
	}
	schema, err := p.resolveSchema(node, id, partition, dict)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	field := &dtdl.FieldInfo{
		EntityBase: dtdl.EntityBase{
			Kind:                dtdl.EntityKindField,
			DTDLVersion:         dtdlVersion,
			ID:                  id,
			ChildOf:             &object,
			DefinedIn:           &partition,
			UndefinedProperties: undefinedProperties(node),
		},
		Name:   name,
		Schema: schema,
	}
	if err := dict.Add(field); err != nil {
		return nil, err
	}
	return field, nil
}

// componentReference extracts the interface DTMI a component's schema member
// points at.
func componentReference(node map[string]interface{}) (dtmi.Dtmi, error) {
	values := listValue(node, schemaIRI)
	if len(values) == 0 {
		return dtmi.Dtmi{}, fmt.Errorf("%w: schema", ErrMissingProperty)
	}
	entry, ok := values[0].(map[string]interface{})
	if !ok {
		return dtmi.Dtmi{}, fmt.Errorf("%w: component schema is not a reference", ErrUnresolvedReference)
	}
	iri, ok := entry["@id"].(string)
	if !ok {
		return dtmi.Dtmi{}, fmt.Errorf("%w: component schema is not a reference", ErrUnresolvedReference)
	}
	id, err := dtmi.Parse(iri)
	if err != nil {
		return dtmi.Dtmi{}, fmt.Errorf("%w: component schema reference: %v", ErrInvalidDTMI, err)
	}
	return id, nil
}

// classify resolves a node's @type set against the closed EntityKind set,
// returning the first recognized metaclass.
func classify(node map[string]interface{}) (dtdl.EntityKind, error) {
	types, _ := node["@type"].([]interface{})
	for _, raw := range types {
		iri, ok := raw.(string)
		if !ok {
			continue
		}
		if kind, known := dtdl.KindFromIRI(iri); known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: no DTDL metaclass among node types %v", ErrUnrecognizedKind, types)
}

// contentID takes the node's own @id when present and well-formed, and
// otherwise generates one scoped under the parent.
func contentID(node map[string]interface{}, parent dtmi.Dtmi, name string) (dtmi.Dtmi, error) {
	if raw, ok := node["@id"].(string); ok && raw != "" {
		if id, err := dtmi.Parse(raw); err == nil {
			return id, nil
		}
	}
	return GenerateChildID(parent, name)
}

// undefinedProperties collects every unrecognized single-valued member of an
// expanded node as raw JSON, recursing one level into nested property nodes.
// This is the forward-compatible extension bag: domain contexts may attach
// vocabulary the metamodel does not know.
func undefinedProperties(node map[string]interface{}) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	collectUndefined(node, out, true)
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectUndefined(node map[string]interface{}, out map[string]json.RawMessage, recurse bool) {
	for key, value := range node {
		if strings.HasPrefix(key, "@") || recognizedProperties[key] {
			continue
		}
		entries, ok := value.([]interface{})
		if !ok || len(entries) != 1 {
			continue
		}
		entry, ok := entries[0].(map[string]interface{})
		if !ok {
			continue
		}
		if v, found := entry["@value"]; found {
			if raw, err := json.Marshal(v); err == nil {
				out[key] = raw
			}
			continue
		}
		if iri, found := entry["@id"]; found && len(entry) == 1 {
			if raw, err := json.Marshal(iri); err == nil {
				out[key] = raw
			}
			continue
		}
		if recurse {
			collectUndefined(entry, out, false)
		}
	}
}

// listValue returns the expanded member array for iri, or nil when absent.
func listValue(node map[string]interface{}, iri string) []interface{} {
	values, _ := node[iri].([]interface{})
	return values
}

// singleString extracts a single literal string member.
func singleString(node map[string]interface{}, iri string) (string, bool) {
	values := listValue(node, iri)
	if len(values) != 1 {
		return "", false
	}
	entry, ok := values[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	s, ok := entry["@value"].(string)
	return s, ok
}

// singleBool extracts a single literal boolean member.
func singleBool(node map[string]interface{}, iri string) (bool, bool) {
	values := listValue(node, iri)
	if len(values) != 1 {
		return false, false
	}
	entry, ok := values[0].(map[string]interface{})
	if !ok {
		return false, false
	}
	b, ok := entry["@value"].(bool)
	return b, ok
}

// singleNode extracts a single nested node member.
func singleNode(node map[string]interface{}, iri string) (map[string]interface{}, bool) {
	values := listValue(node, iri)
	if len(values) != 1 {
		return nil, false
	}
	entry, ok := values[0].(map[string]interface{})
	if !ok || entry["@value"] != nil {
		return nil, false
	}
	return entry, true
}
