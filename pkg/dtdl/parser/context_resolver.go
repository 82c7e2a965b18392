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

package parser

import (
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// ContextResolver inlines well-known JSON-LD @context references into a raw
// document before expansion. Context names such as "dtmi:dtdl:context;2" map
// to on-disk context JSON files; resolution replaces any matching string
// entry of an @context value with the loaded context object. Unknown names
// are left untouched so future context versions pass through unchanged.
//
// Resolution is a pure transformation: the input document is never mutated,
// a new tree is returned.
type ContextResolver struct {
	mu     sync.Mutex
	files  map[string]string
	loaded map[string]interface{}
}

// NewContextResolver returns a resolver with no registered contexts.
func NewContextResolver() *ContextResolver {
	return &ContextResolver{
		files:  make(map[string]string),
		loaded: make(map[string]interface{}),
	}
}

// RegisterFile associates a context name with the path of its JSON file. The
// file is loaded lazily on first use and cached.
func (r *ContextResolver) RegisterFile(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[name] = path
}

// Register associates a context name with an already-loaded context value.
func (r *ContextResolver) Register(name string, context interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[name] = context
}

// Resolve returns a copy of doc in which every @context string entry naming a
// registered context has been replaced by the loaded context value. It
// recurses into arrays and nested documents uniformly and fails when a
// registered context file cannot be read or parsed.
func (r *ContextResolver) Resolve(doc interface{}) (interface{}, error) {
	switch v := doc.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if key == "@context" {
				replaced, err := r.resolveContextValue(value)
				if err != nil {
					return nil, err
				}
				out[key] = replaced
				continue
			}
			nested, err := r.Resolve(value)
			if err != nil {
				return nil, err
			}
			out[key] = nested
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			nested, err := r.Resolve(item)
			if err != nil {
				return nil, err
			}
			out[i] = nested
		}
		return out, nil
	default:
		return doc, nil
	}
}

// resolveContextValue handles the three shapes an @context value may take:
// a single string, an array of strings and objects, or an object.
func (r *ContextResolver) resolveContextValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		context, known, err := r.lookup(v)
		if err != nil {
			return nil, err
		}
		if !known {
			return v, nil
		}
		return context, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			replaced, err := r.resolveContextValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = replaced
		}
		return out, nil
	default:
		// Inline context objects stay as they are.
		return value, nil
	}
}

func (r *ContextResolver) lookup(name string) (interface{}, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if context, ok := r.loaded[name]; ok {
		return context, true, nil
	}
	path, ok := r.files[name]
	if !ok {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s for context %q: %v", ErrContextUnavailable, path, name, err)
	}
	var doc interface{}
	var json = jsoniter.ConfigCompatibleWithStandardLibrary
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("%w: parsing %s for context %q: %v", ErrContextUnavailable, path, name, err)
	}

	// Context files wrap their term definitions in a top-level @context
	// member; substitution inlines that member's value.
	context := doc
	if m, ok := doc.(map[string]interface{}); ok {
		if inner, ok := m["@context"]; ok {
			context = inner
		}
	}

	r.loaded[name] = context
	return context, true, nil
}
