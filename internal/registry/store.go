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

// Package registry keeps the in-memory record of who provides which digital
// twin entity. Providers register entity access information, consumers look
// entities up by instance id or by model id, and registrations that carry
// DTDL source additionally feed the parsed model index used for inspection.
package registry

import (
	"sort"
	"sync"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry/wire"
	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtdl"
)

// Store is the shared registration state. It is safe for concurrent use; all
// reads hand out deep copies so callers can never alias live records.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*wire.EntityAccessInfo
	byModel  map[string]map[string]struct{}
	models   map[string]dtdl.Entity
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entities: make(map[string]*wire.EntityAccessInfo),
		byModel:  make(map[string]map[string]struct{}),
		models:   make(map[string]dtdl.Entity),
	}
}

func cloneRecord(record *wire.EntityAccessInfo) *wire.EntityAccessInfo {
	clone := new(wire.EntityAccessInfo)
	// Round-tripping through the wire form copies every field, including
	// unknown ones carried over from the original registration.
	if err := clone.UnmarshalWire(record.MarshalWire()); err != nil {
		// The input was produced by MarshalWire and always re-decodes.
		panic(err)
	}
	return clone
}

// Upsert stores a registration record, replacing any previous registration
// of the same instance id. The record is copied on the way in.
func (s *Store) Upsert(record *wire.EntityAccessInfo) {
	clone := cloneRecord(record)

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.entities[clone.InstanceID]; ok && previous.ModelID != clone.ModelID {
		delete(s.byModel[previous.ModelID], clone.InstanceID)
		if len(s.byModel[previous.ModelID]) == 0 {
			delete(s.byModel, previous.ModelID)
		}
	}
	s.entities[clone.InstanceID] = clone
	if s.byModel[clone.ModelID] == nil {
		s.byModel[clone.ModelID] = make(map[string]struct{})
	}
	s.byModel[clone.ModelID][clone.InstanceID] = struct{}{}
}

// FindByID returns a copy of the registration for the given instance id.
func (s *Store) FindByID(instanceID string) (*wire.EntityAccessInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.entities[instanceID]
	if !ok {
		return nil, false
	}
	return cloneRecord(record), true
}

// FindByModel returns copies of every registration of the given model id,
// ordered by instance id.
func (s *Store) FindByModel(modelID string) []*wire.EntityAccessInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byModel[modelID]))
	for id := range s.byModel[modelID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]*wire.EntityAccessInfo, 0, len(ids))
	for _, id := range ids {
		records = append(records, cloneRecord(s.entities[id]))
	}
	return records
}

// InstanceIDs returns the sorted instance ids of every registration.
func (s *Store) InstanceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PutModelEntities merges parsed DTDL entities into the model index. Later
// registrations of the same entity id win.
func (s *Store) PutModelEntities(entities []dtdl.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entity := range entities {
		s.models[entity.Base().ID.Value()] = entity
	}
}

// ModelEntity returns the parsed DTDL entity with the given id, if the model
// index holds one.
func (s *Store) ModelEntity(id string) (dtdl.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.models[id]
	return entity, ok
}

// ModelEntityIDs returns the sorted ids of the model index.
func (s *Store) ModelEntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
