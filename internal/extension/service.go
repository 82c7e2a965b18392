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

// Package extension hosts the managed subscribe service. Consumers that find
// an entity endpoint pointing at this service ask it for subscription info;
// the service provisions a broker topic, tells the provider to start
// publishing on it through the callback recorded at registration time, and
// hands the consumer the broker coordinates. Unsubscribing reverses the
// exchange.
package extension

import (
	"context"
	"log"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/retry"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/subscription"
	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"
)

const componentName = "managed-subscribe"

// ServiceName is the fully qualified gRPC service name of the extension.
const ServiceName = "core.ManagedSubscribe"

// BrokerProtocol is the protocol consumers use to reach provisioned topics.
const BrokerProtocol = "nats"

// ManagedSubscribeServer is the extension RPC surface.
type ManagedSubscribeServer interface {
	GetSubscriptionInfo(ctx context.Context, req *SubscriptionInfoRequest) (*SubscriptionInfoResponse, error)
	Unsubscribe(ctx context.Context, req *UnsubscribeRequest) (*UnsubscribeResponse, error)
}

// Service implements ManagedSubscribeServer. It shares its store with the
// registration interceptor, which records provider callbacks there. Locks
// are never held across broker calls: state is read or mutated through the
// store, then the callback is delivered.
type Service struct {
	store     *subscription.Store
	broker    Broker
	brokerURI string
	retryCfg  retry.Config
}

// NewService wires the extension service to the shared subscription store
// and the broker. brokerURI is what consumers are told to connect to.
func NewService(store *subscription.Store, broker Broker, brokerURI string) *Service {
	return &Service{
		store:     store,
		broker:    broker,
		brokerURI: brokerURI,
		retryCfg:  retry.DefaultConfig(),
	}
}

func (s *Service) notifyProvider(ctx context.Context, callback subscription.Callback, request subscription.TopicManagementRequest) error {
	data, err := subscription.EncodeTopicManagementRequest(request)
	if err != nil {
		return err
	}
	return retry.Do(ctx, s.retryCfg, func() error {
		return s.broker.Publish(callback.URI, data)
	})
}

// GetSubscriptionInfo provisions a fresh topic for the entity, asks the
// provider to publish on it and returns the broker coordinates.
func (s *Service) GetSubscriptionInfo(ctx context.Context, req *SubscriptionInfoRequest) (*SubscriptionInfoResponse, error) {
	if _, err := dtmi.Parse(req.EntityID); err != nil {
		log.Printf("📨 [%s] Error in GetSubscriptionInfo: bad request (entityId=%q): %v", componentName, req.EntityID, err)
		return nil, status.Errorf(codes.InvalidArgument, "entity id %q is not a valid DTMI: %v", req.EntityID, err)
	}

	topic := uuid.NewString()
	if err := s.store.AddTopic(req.EntityID, topic, req.Constraints); err != nil {
		log.Printf("📨 [%s] Error in GetSubscriptionInfo: not found (entityId=%q): %v", componentName, req.EntityID, err)
		return nil, status.Errorf(codes.NotFound, "entity %q has no managed subscribe registration", req.EntityID)
	}

	metadata, ok := s.store.GetEntityMetadata(req.EntityID)
	if !ok {
		return nil, status.Errorf(codes.Internal, "entity %q vanished while provisioning topic", req.EntityID)
	}

	err := s.notifyProvider(ctx, metadata.Callback, subscription.TopicManagementRequest{
		Action: subscription.ActionPublish,
		Payload: subscription.CallbackPayload{
			EntityID:    req.EntityID,
			Topic:       topic,
			Constraints: req.Constraints,
			Subscription: &subscription.SubscriptionInfo{
				Protocol: BrokerProtocol,
				URI:      s.brokerURI,
			},
		},
	})
	if err != nil {
		s.store.RemoveTopic(topic)
		log.Printf("📨 [%s] Error in GetSubscriptionInfo: provider callback failed (entityId=%q topic=%q): %v", componentName, req.EntityID, topic, err)
		return nil, status.Errorf(codes.Unavailable, "provider for entity %q is not reachable: %v", req.EntityID, err)
	}

	log.Printf("📨 [%s] Provisioned topic %q for entity %q", componentName, topic, req.EntityID)
	return &SubscriptionInfoResponse{
		Protocol: BrokerProtocol,
		URI:      s.brokerURI,
		Context:  topic,
	}, nil
}

// Unsubscribe removes the topic and tells the provider to stop publishing.
func (s *Service) Unsubscribe(ctx context.Context, req *UnsubscribeRequest) (*UnsubscribeResponse, error) {
	entityID, ok := s.store.GetEntityID(req.Topic)
	if !ok {
		log.Printf("📨 [%s] Error in Unsubscribe: not found (topic=%q)", componentName, req.Topic)
		return nil, status.Errorf(codes.NotFound, "no managed topic %q", req.Topic)
	}
	if req.EntityID != "" && req.EntityID != entityID {
		return nil, status.Errorf(codes.InvalidArgument, "topic %q does not belong to entity %q", req.Topic, req.EntityID)
	}
	s.store.RemoveTopic(req.Topic)

	metadata, ok := s.store.GetEntityMetadata(entityID)
	if !ok {
		return nil, status.Errorf(codes.Internal, "entity %q vanished while removing topic", entityID)
	}

	err := s.notifyProvider(ctx, metadata.Callback, subscription.TopicManagementRequest{
		Action: subscription.ActionStopPublish,
		Payload: subscription.CallbackPayload{
			EntityID: entityID,
			Topic:    req.Topic,
		},
	})
	if err != nil {
		log.Printf("📨 [%s] Error in Unsubscribe: provider callback failed (entityId=%q topic=%q): %v", componentName, entityID, req.Topic, err)
		return nil, status.Errorf(codes.Unavailable, "provider for entity %q is not reachable: %v", entityID, err)
	}

	log.Printf("📨 [%s] Removed topic %q of entity %q", componentName, req.Topic, entityID)
	return &UnsubscribeResponse{}, nil
}

func getSubscriptionInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubscriptionInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagedSubscribeServer).GetSubscriptionInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetSubscriptionInfo"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManagedSubscribeServer).GetSubscriptionInfo(ctx, req.(*SubscriptionInfoRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func unsubscribeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UnsubscribeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagedSubscribeServer).Unsubscribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Unsubscribe"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManagedSubscribeServer).Unsubscribe(ctx, req.(*UnsubscribeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-written gRPC service descriptor for the extension.
// The server it is registered on must use wire.Codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ManagedSubscribeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSubscriptionInfo", Handler: getSubscriptionInfoHandler},
		{MethodName: "Unsubscribe", Handler: unsubscribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "managed_subscribe.proto",
}
