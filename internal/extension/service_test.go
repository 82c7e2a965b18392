package extension

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/retry"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/subscription"
)

const (
	testEntityID    = "dtmi:org:example:sdv:HVAC:instance;1"
	testCallbackURI = "provider.hvac.management"
	testBrokerURI   = "nats://broker.example:4222"
)

type publishedMessage struct {
	subject string
	data    []byte
}

type fakeBroker struct {
	mu        sync.Mutex
	published []publishedMessage
	failures  int
}

func (b *fakeBroker) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unreachable")
	}
	b.published = append(b.published, publishedMessage{subject: subject, data: data})
	return nil
}

func (b *fakeBroker) Close() {}

func (b *fakeBroker) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedMessage(nil), b.published...)
}

func newTestService(broker *fakeBroker) (*Service, *subscription.Store) {
	store := subscription.NewStore()
	store.AddEntity(testEntityID, subscription.Callback{URI: testCallbackURI, Protocol: "nats"})
	service := NewService(store, broker, testBrokerURI)
	service.retryCfg = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return service, store
}

func TestGetSubscriptionInfoProvisionsTopic(t *testing.T) {
	broker := &fakeBroker{}
	service, store := newTestService(broker)

	resp, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{
		EntityID:    testEntityID,
		Constraints: []subscription.Constraint{{Type: "frequency_ms", Value: "3000"}},
	})
	require.NoError(t, err)
	assert.Equal(t, BrokerProtocol, resp.Protocol)
	assert.Equal(t, testBrokerURI, resp.URI)
	require.NotEmpty(t, resp.Context)

	entityID, ok := store.GetEntityID(resp.Context)
	require.True(t, ok)
	assert.Equal(t, testEntityID, entityID)

	messages := broker.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, testCallbackURI, messages[0].subject)

	request, err := subscription.DecodeTopicManagementRequest(messages[0].data)
	require.NoError(t, err)
	assert.Equal(t, subscription.ActionPublish, request.Action)
	assert.Equal(t, testEntityID, request.Payload.EntityID)
	assert.Equal(t, resp.Context, request.Payload.Topic)
	assert.Equal(t, []subscription.Constraint{{Type: "frequency_ms", Value: "3000"}}, request.Payload.Constraints)
	require.NotNil(t, request.Payload.Subscription)
	assert.Equal(t, testBrokerURI, request.Payload.Subscription.URI)
}

func TestGetSubscriptionInfoEachCallGetsOwnTopic(t *testing.T) {
	broker := &fakeBroker{}
	service, _ := newTestService(broker)

	first, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: testEntityID})
	require.NoError(t, err)
	second, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: testEntityID})
	require.NoError(t, err)
	assert.NotEqual(t, first.Context, second.Context)
}

func TestGetSubscriptionInfoRejectsUnknownEntity(t *testing.T) {
	service, _ := newTestService(&fakeBroker{})

	_, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: "dtmi:org:example:sdv:Unknown;1"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: "not-a-dtmi"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetSubscriptionInfoRetriesThenRollsBack(t *testing.T) {
	// Two transient failures are retried away.
	broker := &fakeBroker{failures: 2}
	service, store := newTestService(broker)

	resp, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: testEntityID})
	require.NoError(t, err)
	_, ok := store.GetEntityID(resp.Context)
	assert.True(t, ok)

	// A broker that stays down exhausts the retry budget and the topic
	// must not linger.
	broker = &fakeBroker{failures: 100}
	service, store = newTestService(broker)

	_, err = service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: testEntityID})
	assert.Equal(t, codes.Unavailable, status.Code(err))
	metadata, ok := store.GetEntityMetadata(testEntityID)
	require.True(t, ok)
	assert.Empty(t, metadata.Topics)
}

func TestUnsubscribeStopsPublishing(t *testing.T) {
	broker := &fakeBroker{}
	service, store := newTestService(broker)

	resp, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: testEntityID})
	require.NoError(t, err)

	_, err = service.Unsubscribe(context.Background(), &UnsubscribeRequest{EntityID: testEntityID, Topic: resp.Context})
	require.NoError(t, err)

	_, ok := store.GetEntityID(resp.Context)
	assert.False(t, ok)

	messages := broker.messages()
	require.Len(t, messages, 2)
	request, err := subscription.DecodeTopicManagementRequest(messages[1].data)
	require.NoError(t, err)
	assert.Equal(t, subscription.ActionStopPublish, request.Action)
	assert.Equal(t, resp.Context, request.Payload.Topic)
}

func TestUnsubscribeErrors(t *testing.T) {
	broker := &fakeBroker{}
	service, _ := newTestService(broker)

	_, err := service.Unsubscribe(context.Background(), &UnsubscribeRequest{Topic: "no-such-topic"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err := service.GetSubscriptionInfo(context.Background(), &SubscriptionInfoRequest{EntityID: testEntityID})
	require.NoError(t, err)

	_, err = service.Unsubscribe(context.Background(), &UnsubscribeRequest{EntityID: "dtmi:org:example:sdv:Other;1", Topic: resp.Context})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSubscriptionWireRoundTrip(t *testing.T) {
	request := &SubscriptionInfoRequest{
		EntityID:    testEntityID,
		Constraints: []subscription.Constraint{{Type: "frequency_ms", Value: "3000"}},
	}
	decodedRequest := new(SubscriptionInfoRequest)
	require.NoError(t, decodedRequest.UnmarshalWire(request.MarshalWire()))
	assert.Equal(t, request, decodedRequest)

	response := &SubscriptionInfoResponse{Protocol: BrokerProtocol, URI: testBrokerURI, Context: "some-topic"}
	decodedResponse := new(SubscriptionInfoResponse)
	require.NoError(t, decodedResponse.UnmarshalWire(response.MarshalWire()))
	assert.Equal(t, response, decodedResponse)

	unsubscribe := &UnsubscribeRequest{EntityID: testEntityID, Topic: "some-topic"}
	decodedUnsubscribe := new(UnsubscribeRequest)
	require.NoError(t, decodedUnsubscribe.UnmarshalWire(unsubscribe.MarshalWire()))
	assert.Equal(t, unsubscribe, decodedUnsubscribe)
}
