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
	"net/http"

	"github.com/cruxhq/crux/internal/tenant"
)

// GetSettings returns the resolved tenant's business settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.tenants.GetSettings(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the resolved tenant's business settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings tenant.BusinessSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The tenant comes from the resolved context, never the body
	settings.TenantID = GetTenantID(r.Context())

	if err := h.tenants.UpdateSettings(r.Context(), &settings, GetUserID(r.Context())); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}
