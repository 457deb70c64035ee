// Copyright 2026 The Crux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cruxhq/crux/internal/authz"
)

// Events streams review changes for the caller's tenant as server-sent
// events. Tenant-scoped users stream their session tenant; super admins
// name a tenant with the tenant_id query parameter.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	if GetRole(r.Context()) == authz.RoleSuperAdmin {
		tenantID = r.URL.Query().Get("tenant_id")
	}
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "tenant context is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	changes, cancel := h.broker.Subscribe(tenantID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Opening comment so proxies and clients see bytes immediately
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, open := <-changes:
			if !open {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Kind, payload)
			flusher.Flush()
		}
	}
}
