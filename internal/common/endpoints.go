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

package common

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// AddHealthEndpoint registers GET {contextPath}/health answering
// {"status":"UP"} with HTTP 200. Load balancers and container orchestrators
// probe it to decide whether the service is up.
func AddHealthEndpoint(r *chi.Mux, config *Config) {
	r.Get(config.Server.ContextPath+"/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("{\"status\":\"UP\"}"))
		if err != nil {
			http.Error(w, "Failed to write response", http.StatusInternalServerError)
		}
	})
}

// AddInspectionEndpoints registers the read-only side channel over the
// registry store:
//
//   - GET {contextPath}/entities       sorted registered instance ids
//   - GET {contextPath}/models         sorted parsed model entity ids
//   - GET {contextPath}/models?id=...  one parsed model entity as JSON
//
// Model ids are DTMIs and contain fragments and semicolons, so the route
// uses a query parameter rather than a path segment.
func AddInspectionEndpoints(r *chi.Mux, config *Config, store *registry.Store) {
	// url.ParseQuery treats ";" as an invalid separator, which would reject
	// every versioned DTMI. Split the raw query on "&" only.
	queryID := func(rawQuery string) string {
		for _, pair := range strings.Split(rawQuery, "&") {
			value, found := strings.CutPrefix(pair, "id=")
			if !found {
				continue
			}
			id, err := url.QueryUnescape(value)
			if err != nil {
				return ""
			}
			return id
		}
		return ""
	}

	writeJSON := func(w http.ResponseWriter, value interface{}) {
		w.Header().Set("Content-Type", "application/json")
		data, err := jsonAPI.Marshal(value)
		if err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(data)
	}

	r.Get(config.Server.ContextPath+"/entities", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, store.InstanceIDs())
	})

	r.Get(config.Server.ContextPath+"/models", func(w http.ResponseWriter, req *http.Request) {
		id := queryID(req.URL.RawQuery)
		if id == "" {
			writeJSON(w, store.ModelEntityIDs())
			return
		}
		entity, ok := store.ModelEntity(id)
		if !ok {
			http.Error(w, "no model entity with id "+id, http.StatusNotFound)
			return
		}
		writeJSON(w, entity)
	})
}
