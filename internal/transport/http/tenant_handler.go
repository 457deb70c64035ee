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
	"errors"
	"net/http"
	"strconv"

	"github.com/cruxhq/crux/internal/plan"
	"github.com/cruxhq/crux/internal/tenant"
)

// CreateTenantRequest carries the new tenant and its initial admin
type CreateTenantRequest struct {
	Name             string `json:"name"`
	Domain           string `json:"domain"`
	Plan             string `json:"plan"`
	OwnerEmail       string `json:"owner_email"`
	OwnerDisplayName string `json:"owner_display_name"`
	OwnerPassword    string `json:"owner_password"`
}

// CreateTenant provisions a tenant together with its initial admin
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tn, owner, err := h.tenants.CreateTenant(r.Context(), tenant.CreateParams{
		Name:             req.Name,
		Domain:           req.Domain,
		Plan:             req.Plan,
		OwnerEmail:       req.OwnerEmail,
		OwnerDisplayName: req.OwnerDisplayName,
		OwnerPassword:    req.OwnerPassword,
	}, GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantAlreadyExists):
			respondError(w, http.StatusConflict, "tenant domain already in use")
		case errors.Is(err, plan.ErrUnknownTier):
			respondError(w, http.StatusBadRequest, "unknown plan tier")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"tenant": tn,
		"owner":  userResponse(owner),
	})
}

// ListTenants lists tenants with optional search
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	tenants, err := h.tenants.ListTenants(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
	})
}

// GetTenant returns a single tenant
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tn, err := h.tenants.GetTenant(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}

	respondJSON(w, http.StatusOK, tn)
}

// UpdateTenantRequest carries mutable tenant fields
type UpdateTenantRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Plan   string `json:"plan"`
}

// UpdateTenant updates a tenant's name, domain or plan
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tn, err := h.tenants.GetTenant(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}

	if req.Name != "" {
		tn.Name = req.Name
	}
	if req.Domain != "" {
		tn.Domain = req.Domain
	}
	if req.Plan != "" {
		tn.Plan = req.Plan
	}

	if err := h.tenants.UpdateTenant(r.Context(), tn, GetUserID(r.Context())); err != nil {
		switch {
		case errors.Is(err, plan.ErrUnknownTier):
			respondError(w, http.StatusBadRequest, "unknown plan tier")
		case errors.Is(err, tenant.ErrTenantAlreadyExists):
			respondError(w, http.StatusConflict, "tenant domain already in use")
		default:
			respondError(w, http.StatusInternalServerError, "failed to update tenant")
		}
		return
	}

	respondJSON(w, http.StatusOK, tn)
}

// DeleteTenant removes a tenant and all of its data
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.DeleteTenant(r.Context(), GetTenantID(r.Context()), GetUserID(r.Context())); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete tenant")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "tenant deleted",
	})
}

// SuspendTenant suspends a tenant. Suspension stops public review
// submission and member logins.
func (h *Handler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setTenantStatus(w, r, tenant.StatusSuspended)
}

// ActivateTenant reactivates a suspended tenant
func (h *Handler) ActivateTenant(w http.ResponseWriter, r *http.Request) {
	h.setTenantStatus(w, r, tenant.StatusActive)
}

func (h *Handler) setTenantStatus(w http.ResponseWriter, r *http.Request, status string) {
	err := h.tenants.SetStatus(r.Context(), GetTenantID(r.Context()), status, GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update tenant status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": status,
	})
}

// GetUsage returns the tenant's current plan usage
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.reviews.UsageByTenantID(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to evaluate usage")
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// pagination reads limit/offset query parameters with sane bounds
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
