package dtdl

import (
	"encoding/json"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"
)

func TestEntityKindIsPrimitive(t *testing.T) {
	for _, kind := range PrimitiveKinds() {
		assert.True(t, kind.IsPrimitive(), "%s", kind)
	}
	for _, kind := range []EntityKind{
		EntityKindInterface, EntityKindTelemetry, EntityKindProperty,
		EntityKindCommand, EntityKindCommandPayload, EntityKindRelationship,
		EntityKindComponent, EntityKindField, EntityKindObject,
	} {
		assert.False(t, kind.IsPrimitive(), "%s", kind)
	}
}

func TestKindFromIRI(t *testing.T) {
	kind, ok := KindFromIRI("dtmi:dtdl:class:Interface;2")
	require.True(t, ok)
	assert.Equal(t, EntityKindInterface, kind)

	kind, ok = KindFromIRI("dtmi:dtdl:class:Boolean;2")
	require.True(t, ok)
	assert.Equal(t, EntityKindBoolean, kind)

	_, ok = KindFromIRI("dtmi:dtdl:class:Array;2")
	assert.False(t, ok)

	_, ok = KindFromIRI("not an iri")
	assert.False(t, ok)
}

func TestEntityKindIRIRoundTrip(t *testing.T) {
	for _, kind := range PrimitiveKinds() {
		resolved, ok := KindFromIRI(kind.IRI())
		require.True(t, ok)
		assert.Equal(t, kind, resolved)
		assert.Equal(t, kind.IRI(), kind.CanonicalID().Value())
	}
}

func TestEntityJSONRoundTrip(t *testing.T) {
	ifaceID := dtmi.MustParse("dtmi:org:example:Thermostat;1")
	telemetryID := dtmi.MustParse("dtmi:org:example:Thermostat:temperature")
	schemaID := dtmi.MustParse("dtmi:org:example:Thermostat:temperature:schema")

	telemetry := &TelemetryInfo{
		EntityBase: EntityBase{
			Kind:        EntityKindTelemetry,
			DTDLVersion: 2,
			ID:          telemetryID,
			ChildOf:     &ifaceID,
			DefinedIn:   &ifaceID,
			UndefinedProperties: map[string]json.RawMessage{
				"dtmi:sdv:property:unit;1": json.RawMessage(`"celsius"`),
			},
		},
		Name: "temperature",
		Schema: &PrimitiveSchemaInfo{EntityBase: EntityBase{
			Kind:        EntityKindDouble,
			DTDLVersion: 2,
			ID:          schemaID,
			ChildOf:     &telemetryID,
			DefinedIn:   &ifaceID,
		}},
	}

	var json2 = jsoniter.ConfigCompatibleWithStandardLibrary
	data, err := json2.Marshal(telemetry)
	require.NoError(t, err)

	decoded, err := UnmarshalEntity(data)
	require.NoError(t, err)

	out, ok := decoded.(*TelemetryInfo)
	require.True(t, ok)
	assert.Equal(t, "temperature", out.Name)
	assert.True(t, out.Base().ID.Equal(telemetryID))
	require.NotNil(t, out.Base().ChildOf)
	assert.True(t, out.Base().ChildOf.Equal(ifaceID))
	require.NotNil(t, out.Schema)
	assert.Equal(t, EntityKindDouble, out.Schema.EntityKind())
	assert.True(t, out.Schema.Base().ID.Equal(schemaID))
	assert.JSONEq(t, `"celsius"`, string(out.Base().UndefinedProperties["dtmi:sdv:property:unit;1"]))
}

func TestUnmarshalEntityUnknownKind(t *testing.T) {
	_, err := UnmarshalEntity([]byte(`{"entityKind": "Array"}`))
	assert.Error(t, err)
}

func TestUnmarshalEntityObjectWithFields(t *testing.T) {
	objectID := dtmi.MustParse("dtmi:org:example:Gps:location:schema")
	fieldID := dtmi.MustParse("dtmi:org:example:Gps:location:schema:latitude")

	object := &ObjectInfo{
		EntityBase: EntityBase{Kind: EntityKindObject, DTDLVersion: 2, ID: objectID},
		Fields: []*FieldInfo{{
			EntityBase: EntityBase{Kind: EntityKindField, DTDLVersion: 2, ID: fieldID},
			Name:       "latitude",
			Schema: &PrimitiveSchemaInfo{EntityBase: EntityBase{
				Kind: EntityKindDouble, DTDLVersion: 2,
				ID: dtmi.MustParse("dtmi:org:example:Gps:location:schema:latitude:schema"),
			}},
		}},
	}

	var json2 = jsoniter.ConfigCompatibleWithStandardLibrary
	data, err := json2.Marshal(object)
	require.NoError(t, err)

	decoded, err := UnmarshalEntity(data)
	require.NoError(t, err)

	out, ok := decoded.(*ObjectInfo)
	require.True(t, ok)
	require.Len(t, out.Fields, 1)
	assert.Equal(t, "latitude", out.Fields[0].Name)
	require.NotNil(t, out.Fields[0].Schema)
	assert.Equal(t, EntityKindDouble, out.Fields[0].Schema.EntityKind())
}

func TestInterfaceClone(t *testing.T) {
	iface := &InterfaceInfo{EntityBase: EntityBase{
		Kind: EntityKindInterface, DTDLVersion: 2,
		ID: dtmi.MustParse("dtmi:org:example:Thermostat;1"),
		UndefinedProperties: map[string]json.RawMessage{
			"k": json.RawMessage(`"v"`),
		},
	}}

	clone := iface.Clone()
	require.NotSame(t, iface, clone)
	assert.Equal(t, iface.ID.Value(), clone.ID.Value())

	clone.UndefinedProperties["k2"] = json.RawMessage(`"v2"`)
	assert.NotContains(t, iface.UndefinedProperties, "k2")
}

func TestModelDictionaryRejectsDuplicates(t *testing.T) {
	dict := NewModelDictionary()
	id := dtmi.MustParse("dtmi:org:example:Thermostat;1")

	first := &InterfaceInfo{EntityBase: EntityBase{Kind: EntityKindInterface, ID: id}}
	require.NoError(t, dict.Add(first))
	assert.Error(t, dict.Add(first))
	assert.Equal(t, 1, dict.Len())

	err := dict.Add(&InterfaceInfo{EntityBase: EntityBase{Kind: EntityKindInterface}})
	assert.Error(t, err, "entities without ids are rejected")
}

func TestModelDictionaryLookups(t *testing.T) {
	dict := NewModelDictionary()
	ifaceID := dtmi.MustParse("dtmi:org:example:Thermostat;1")
	teleID := dtmi.MustParse("dtmi:org:example:Thermostat:temperature")

	require.NoError(t, dict.Add(&InterfaceInfo{EntityBase: EntityBase{Kind: EntityKindInterface, ID: ifaceID}}))
	require.NoError(t, dict.Add(&TelemetryInfo{EntityBase: EntityBase{Kind: EntityKindTelemetry, ID: teleID}, Name: "temperature"}))

	iface, ok := dict.GetInterface(ifaceID)
	require.True(t, ok)
	assert.Equal(t, ifaceID.Value(), iface.ID.Value())

	_, ok = dict.GetInterface(teleID)
	assert.False(t, ok, "non-interface ids do not resolve as interfaces")

	assert.Equal(t, []string{
		"dtmi:org:example:Thermostat:temperature",
		"dtmi:org:example:Thermostat;1",
	}, dict.IDs())
	assert.Len(t, dict.Entities(), 2)
}
