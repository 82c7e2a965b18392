package managedsubscribe

import (
	"bytes"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/intercept"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry/wire"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/subscription"
)

const extensionURI = "https://twin.example:5010"

func registration() *wire.RegisterRequest {
	return &wire.RegisterRequest{
		Entities: []*wire.EntityAccessInfo{
			{
				ProviderID: "dtmi:org:example:sdv:provider;1",
				InstanceID: "dtmi:org:example:sdv:HVAC:instance;1",
				ModelID:    "dtmi:org:example:sdv:HVAC;1",
				Endpoints: []*wire.EndpointInfo{
					{Protocol: "grpc", URI: "https://provider.example:4010", Operations: []string{"Get"}},
					{Protocol: "mqtt", URI: "mqtt://provider.example:1883", Operations: []string{"Subscribe", ManagedSubscribeOperation}},
				},
			},
		},
	}
}

func TestApplicable(t *testing.T) {
	interceptor := NewInterceptor(subscription.NewStore(), extensionURI)

	assert.True(t, interceptor.Applicable("InvehicleDigitalTwin", "Register"))
	assert.False(t, interceptor.Applicable("InvehicleDigitalTwin", "FindById"))
	assert.False(t, interceptor.Applicable("ManagedSubscribe", "Register"))
	assert.True(t, interceptor.MustHandleRequest())
	assert.False(t, interceptor.MustHandleResponse())
}

func TestHandleRequestReroutesManagedEndpoints(t *testing.T) {
	store := subscription.NewStore()
	interceptor := NewInterceptor(store, extensionURI)

	rewritten, err := interceptor.HandleRequest("InvehicleDigitalTwin", "Register", registration().MarshalWire())
	require.NoError(t, err)

	decoded := new(wire.RegisterRequest)
	require.NoError(t, decoded.UnmarshalWire(rewritten))
	require.Len(t, decoded.Entities, 1)

	endpoints := decoded.Entities[0].Endpoints
	require.Len(t, endpoints, 2)
	assert.Equal(t, "https://provider.example:4010", endpoints[0].URI, "plain endpoint stays untouched")
	assert.Equal(t, extensionURI, endpoints[1].URI)
	assert.Equal(t, "grpc", endpoints[1].Protocol)
	assert.Equal(t, []string{"Subscribe", ManagedSubscribeOperation}, endpoints[1].Operations)

	metadata, ok := store.GetEntityMetadata("dtmi:org:example:sdv:HVAC:instance;1")
	require.True(t, ok)
	assert.Equal(t, "mqtt://provider.example:1883", metadata.Callback.URI)
	assert.Equal(t, "mqtt", metadata.Callback.Protocol)
}

func TestHandleRequestWithoutManagedEndpointsIsIdentity(t *testing.T) {
	store := subscription.NewStore()
	interceptor := NewInterceptor(store, extensionURI)

	req := registration()
	req.Entities[0].Endpoints = req.Entities[0].Endpoints[:1]
	payload := req.MarshalWire()

	rewritten, err := interceptor.HandleRequest("InvehicleDigitalTwin", "Register", payload)
	require.NoError(t, err)
	assert.Equal(t, payload, rewritten)
	assert.Empty(t, store.EntityIDs())
}

func TestHandleRequestRejectsGarbage(t *testing.T) {
	interceptor := NewInterceptor(subscription.NewStore(), extensionURI)
	_, err := interceptor.HandleRequest("InvehicleDigitalTwin", "Register", []byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func frame(payload []byte) []byte {
	buf := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

func TestRegisterRewriteThroughTransportLayer(t *testing.T) {
	store := subscription.NewStore()

	var seen *wire.RegisterRequest
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(body), 5)
		seen = new(wire.RegisterRequest)
		require.NoError(t, seen.UnmarshalWire(body[5:]))
		w.WriteHeader(http.StatusOK)
	})

	layer := intercept.NewTransportLayer(inner, NewInterceptor(store, extensionURI))

	req := httptest.NewRequest(http.MethodPost, "/core.InvehicleDigitalTwin/Register", bytes.NewReader(frame(registration().MarshalWire())))
	req.Header.Set("Content-Type", "application/grpc")
	layer.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen, "inner handler must run")
	assert.Equal(t, extensionURI, seen.Entities[0].Endpoints[1].URI)

	metadata, ok := store.GetEntityMetadata("dtmi:org:example:sdv:HVAC:instance;1")
	require.True(t, ok)
	assert.Equal(t, "mqtt://provider.example:1883", metadata.Callback.URI)
}
