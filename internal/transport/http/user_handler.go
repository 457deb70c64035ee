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

	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/go-chi/chi/v5"
)

// ListUsers lists the resolved tenant's users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	tenantID := GetTenantID(r.Context())

	users, err := h.identities.ListUsers(r.Context(), &tenantID, r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	payload := make([]map[string]any, 0, len(users))
	for _, u := range users {
		payload = append(payload, userResponse(u))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"users": payload,
	})
}

// ProvisionUserRequest carries a directly provisioned user
type ProvisionUserRequest struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// ProvisionUser creates a user inside the resolved tenant. Only tenant
// roles can be granted this way.
func (h *Handler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	var req ProvisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Role == "" {
		req.Role = authz.RoleUser
	}
	if req.Role == authz.RoleSuperAdmin {
		respondError(w, http.StatusBadRequest, "cannot provision a super admin into a tenant")
		return
	}

	tenantID := GetTenantID(r.Context())
	user, err := h.identities.ProvisionIdentity(r.Context(), &tenantID, req.Email, req.Role, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrInvalidRole):
			respondError(w, http.StatusBadRequest, "invalid role")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	if req.Password != "" {
		if err := h.identities.AddPassword(r.Context(), user.ID, req.Password); err != nil {
			respondError(w, http.StatusBadRequest, "failed to set password: "+err.Error())
			return
		}
	}

	respondJSON(w, http.StatusCreated, userResponse(user))
}

// SetUserRoleRequest carries the role to grant
type SetUserRoleRequest struct {
	Role string `json:"role"`
}

// SetUserRole changes a tenant member's role. The caller can only grant
// roles their own role satisfies, and only within the resolved tenant.
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req SetUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authz.Satisfies(GetRole(r.Context()), req.Role) {
		respondError(w, http.StatusForbidden, "cannot grant a role above your own")
		return
	}

	target, err := h.tenantMember(r, chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.identities.SetRole(r.Context(), target.ID, req.Role, GetUserID(r.Context())); err != nil {
		if errors.Is(err, identity.ErrInvalidRole) {
			respondError(w, http.StatusBadRequest, "invalid role")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to set role")
		return
	}

	// Live sessions carry the role granted at login; end them so the
	// change takes effect immediately rather than at session expiry.
	if target.Role != req.Role {
		if err := h.sessions.DestroyByUser(r.Context(), target.ID); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to revoke user sessions")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": target.ID,
		"role":    req.Role,
	})
}

// DeactivateUser soft-deletes a tenant member and revokes their sessions
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	target, err := h.tenantMember(r, chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if target.ID == GetUserID(r.Context()) {
		respondError(w, http.StatusBadRequest, "cannot deactivate yourself")
		return
	}

	if err := h.identities.Deactivate(r.Context(), target.ID, GetUserID(r.Context())); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to deactivate user")
		return
	}

	if err := h.sessions.DestroyByUser(r.Context(), target.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to revoke user sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "user deactivated",
	})
}

// tenantMember loads a user and verifies they belong to the resolved
// tenant. Users outside the tenant read as not found.
func (h *Handler) tenantMember(r *http.Request, userID string) (*identity.User, error) {
	user, err := h.identities.GetUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user.TenantID == nil || *user.TenantID != GetTenantID(r.Context()) {
		return nil, identity.ErrUserNotFound
	}
	return user, nil
}
