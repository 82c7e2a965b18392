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
	"fmt"
	"sort"

	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"
)

// ModelDictionary maps DTMIs to parsed entities. It is built incrementally by
// one parse call and never mutated afterwards, so a returned dictionary is
// safe to share read-only across goroutines. Every entity id is unique within
// a dictionary; Add refuses colliding ids.
type ModelDictionary struct {
	entities map[string]Entity
}

// NewModelDictionary returns an empty dictionary.
func NewModelDictionary() *ModelDictionary {
	return &ModelDictionary{entities: make(map[string]Entity)}
}

// Add inserts an entity keyed by its id. It returns an error when the
// dictionary already holds an entity with the same DTMI.
func (d *ModelDictionary) Add(e Entity) error {
	key := e.Base().ID.Value()
	if key == "" {
		return fmt.Errorf("entity of kind %s has no id", e.EntityKind())
	}
	if _, exists := d.entities[key]; exists {
		return fmt.Errorf("duplicate entity id %s", key)
	}
	d.entities[key] = e
	return nil
}

// Get returns the entity registered under id.
func (d *ModelDictionary) Get(id dtmi.Dtmi) (Entity, bool) {
	e, ok := d.entities[id.Value()]
	return e, ok
}

// GetInterface returns the interface entity registered under id, or false
// when the id is absent or names a non-interface entity.
func (d *ModelDictionary) GetInterface(id dtmi.Dtmi) (*InterfaceInfo, bool) {
	e, ok := d.entities[id.Value()]
	if !ok {
		return nil, false
	}
	iface, ok := e.(*InterfaceInfo)
	return iface, ok
}

// Len returns the number of entities in the dictionary.
func (d *ModelDictionary) Len() int { return len(d.entities) }

// IDs returns the sorted identifier strings of all entities.
func (d *ModelDictionary) IDs() []string {
	ids := make([]string, 0, len(d.entities))
	for id := range d.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entities returns all entities ordered by id.
func (d *ModelDictionary) Entities() []Entity {
	out := make([]Entity, 0, len(d.entities))
	for _, id := range d.IDs() {
		out = append(out, d.entities[id])
	}
	return out
}
