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

// Package subscription holds the shared managed-subscription state: the
// entity/topic store populated by the Register interceptor and consumed by
// the extension service, plus the topic-management payload contract spoken
// to providers.
package subscription

import (
	"fmt"
	"sync"
)

// Callback is the provider endpoint recorded when a ManagedSubscribe-tagged
// registration is intercepted: where topic-management requests for the
// entity go, and over which protocol.
type Callback struct {
	URI      string `json:"uri"`
	Protocol string `json:"protocol"`
}

// Constraint narrows a managed subscription, e.g. a sampling frequency.
type Constraint struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// TopicInfo describes one dynamic topic provisioned for an entity.
type TopicInfo struct {
	Topic       string       `json:"topic"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// EntityMetadata is the read-model snapshot of one entity's subscription
// state. Snapshots are value copies: callers may use them after releasing
// any interest in the store, which is what keeps lock scopes away from
// network calls.
type EntityMetadata struct {
	EntityID string               `json:"entityId"`
	Callback Callback             `json:"callback"`
	Topics   map[string]TopicInfo `json:"topics,omitempty"`
}

type entityRecord struct {
	callback Callback
	topics   map[string]TopicInfo
}

// Store is the process-wide managed-subscription state, shared between the
// interceptor that records entity callbacks during registration and the
// extension service that provisions and tears down topics. A single
// read-write lock guards it: writers hold the write lock only for the
// mutation itself, readers copy out what they need and release. The store is
// single-instance; nothing here provides distributed consistency.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*entityRecord
	byTopic  map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entities: make(map[string]*entityRecord),
		byTopic:  make(map[string]string),
	}
}

// AddEntity records the management callback for an entity, replacing any
// previous callback but keeping existing topics.
func (s *Store) AddEntity(entityID string, callback Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.entities[entityID]; ok {
		record.callback = callback
		return
	}
	s.entities[entityID] = &entityRecord{
		callback: callback,
		topics:   make(map[string]TopicInfo),
	}
}

// ContainsEntity reports whether the entity has a recorded callback.
func (s *Store) ContainsEntity(entityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[entityID]
	return ok
}

// GetEntityMetadata returns a value-copy snapshot of the entity's state.
func (s *Store) GetEntityMetadata(entityID string) (EntityMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.entities[entityID]
	if !ok {
		return EntityMetadata{}, false
	}
	meta := EntityMetadata{
		EntityID: entityID,
		Callback: record.callback,
		Topics:   make(map[string]TopicInfo, len(record.topics)),
	}
	for topic, info := range record.topics {
		copied := info
		copied.Constraints = append([]Constraint(nil), info.Constraints...)
		meta.Topics[topic] = copied
	}
	return meta, true
}

// GetEntityID resolves a topic back to the entity it was provisioned for.
func (s *Store) GetEntityID(topic string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entityID, ok := s.byTopic[topic]
	return entityID, ok
}

// AddTopic attaches a provisioned topic to an entity. The entity must have
// been recorded first and topics are unique across entities.
func (s *Store) AddTopic(entityID, topic string, constraints []Constraint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("no callback recorded for entity %q", entityID)
	}
	if owner, taken := s.byTopic[topic]; taken {
		return fmt.Errorf("topic %q already provisioned for entity %q", topic, owner)
	}
	record.topics[topic] = TopicInfo{
		Topic:       topic,
		Constraints: append([]Constraint(nil), constraints...),
	}
	s.byTopic[topic] = entityID
	return nil
}

// RemoveTopic detaches a topic and returns the entity it belonged to.
func (s *Store) RemoveTopic(topic string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entityID, ok := s.byTopic[topic]
	if !ok {
		return "", false
	}
	delete(s.byTopic, topic)
	if record, ok := s.entities[entityID]; ok {
		delete(record.topics, topic)
	}
	return entityID, true
}

// EntityIDs returns the ids of all entities with recorded callbacks.
func (s *Store) EntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	return ids
}
