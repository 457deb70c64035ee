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
	"net/http"
)

// ListAuditLog returns the resolved tenant's audit trail, newest first
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	records, err := h.auditRepo.ListByTenant(r.Context(), GetTenantID(r.Context()), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"entries": records,
	})
}
