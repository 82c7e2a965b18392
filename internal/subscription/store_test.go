package subscription

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEntity = "dtmi:org:example:sdv:Thermostat:targetTemperature"

func TestStoreEntityLifecycle(t *testing.T) {
	store := NewStore()
	assert.False(t, store.ContainsEntity(testEntity))

	store.AddEntity(testEntity, Callback{URI: "http://provider:4010", Protocol: "grpc"})
	require.True(t, store.ContainsEntity(testEntity))

	meta, ok := store.GetEntityMetadata(testEntity)
	require.True(t, ok)
	assert.Equal(t, "http://provider:4010", meta.Callback.URI)
	assert.Equal(t, "grpc", meta.Callback.Protocol)
	assert.Empty(t, meta.Topics)

	// Re-registering replaces the callback but keeps topics.
	require.NoError(t, store.AddTopic(testEntity, "topic-1", nil))
	store.AddEntity(testEntity, Callback{URI: "http://provider:4011", Protocol: "grpc"})
	meta, _ = store.GetEntityMetadata(testEntity)
	assert.Equal(t, "http://provider:4011", meta.Callback.URI)
	assert.Contains(t, meta.Topics, "topic-1")
}

func TestStoreTopics(t *testing.T) {
	store := NewStore()
	store.AddEntity(testEntity, Callback{URI: "http://provider:4010", Protocol: "grpc"})

	constraints := []Constraint{{Type: "frequency_ms", Value: "3000"}}
	require.NoError(t, store.AddTopic(testEntity, "topic-1", constraints))

	entityID, ok := store.GetEntityID("topic-1")
	require.True(t, ok)
	assert.Equal(t, testEntity, entityID)

	assert.Error(t, store.AddTopic(testEntity, "topic-1", nil), "topics are unique")
	assert.Error(t, store.AddTopic("dtmi:unknown:Entity", "topic-2", nil), "entity must be registered first")

	removed, ok := store.RemoveTopic("topic-1")
	require.True(t, ok)
	assert.Equal(t, testEntity, removed)
	_, ok = store.GetEntityID("topic-1")
	assert.False(t, ok)

	_, ok = store.RemoveTopic("topic-1")
	assert.False(t, ok)
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	store := NewStore()
	store.AddEntity(testEntity, Callback{URI: "u", Protocol: "p"})
	require.NoError(t, store.AddTopic(testEntity, "topic-1", []Constraint{{Type: "a", Value: "b"}}))

	meta, _ := store.GetEntityMetadata(testEntity)
	meta.Topics["rogue"] = TopicInfo{Topic: "rogue"}

	fresh, _ := store.GetEntityMetadata(testEntity)
	assert.NotContains(t, fresh.Topics, "rogue")
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	store.AddEntity(testEntity, Callback{URI: "u", Protocol: "p"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.AddTopic(testEntity, fmt.Sprintf("topic-%d", n), nil)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.GetEntityMetadata(testEntity)
			_ = store.ContainsEntity(testEntity)
		}()
	}
	wg.Wait()

	meta, _ := store.GetEntityMetadata(testEntity)
	assert.Len(t, meta.Topics, 16)
	assert.Equal(t, []string{testEntity}, store.EntityIDs())
}

func TestTopicManagementRoundTrip(t *testing.T) {
	request := TopicManagementRequest{
		Action: ActionPublish,
		Payload: CallbackPayload{
			EntityID:    testEntity,
			Topic:       "topic-1",
			Constraints: []Constraint{{Type: "frequency_ms", Value: "3000"}},
			Subscription: &SubscriptionInfo{
				Protocol: "nats",
				URI:      "nats://broker:4222",
			},
		},
	}

	data, err := EncodeTopicManagementRequest(request)
	require.NoError(t, err)

	decoded, err := DecodeTopicManagementRequest(data)
	require.NoError(t, err)
	assert.Equal(t, request, decoded)
}

func TestTopicManagementValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "NotJSON", data: "{ nope"},
		{name: "MissingAction", data: `{"payload": {"entityId": "e", "topic": "t"}}`},
		{name: "UnknownAction", data: `{"action": "EXPLODE", "payload": {"entityId": "e", "topic": "t"}}`},
		{name: "MissingTopic", data: `{"action": "PUBLISH", "payload": {"entityId": "e"}}`},
		{name: "EmptyEntityID", data: `{"action": "PUBLISH", "payload": {"entityId": "", "topic": "t"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTopicManagementRequest([]byte(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := EncodeTopicManagementRequest(TopicManagementRequest{Action: ActionPublish})
	assert.Error(t, err, "encoding validates too")
}
