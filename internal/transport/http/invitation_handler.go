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
	"github.com/cruxhq/crux/internal/invitation"
	"github.com/go-chi/chi/v5"
)

// CreateInvitationRequest carries a new invitation
type CreateInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateInvitation issues a single-use invitation into the resolved
// tenant and emails the accept link.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = authz.RoleUser
	}

	tenantID := GetTenantID(r.Context())
	tn, err := h.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}

	inv, err := h.invitations.Create(r.Context(), tenantID, tn.Name, req.Email, req.Role, GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, invitation.ErrInvalidInviteRole):
			respondError(w, http.StatusBadRequest, "invitations can only grant tenant roles")
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "a user with this email already exists")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create invitation")
		}
		return
	}

	respondJSON(w, http.StatusCreated, inv)
}

// ListInvitations lists the resolved tenant's invitations
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	invitations, err := h.invitations.ListByTenant(r.Context(), GetTenantID(r.Context()), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list invitations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"invitations": invitations,
	})
}

// RevokeInvitation deletes a pending invitation
func (h *Handler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	err := h.invitations.Revoke(r.Context(),
		chi.URLParam(r, "invitationID"), GetTenantID(r.Context()), GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "invitation not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "invitation revoked",
	})
}

// InspectInvitation validates an invitation token without consuming it.
// The accept form calls this to pre-fill the invited email.
func (h *Handler) InspectInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invitations.Inspect(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respondInvitationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"email":      inv.Email,
		"role":       inv.Role,
		"tenant_id":  inv.TenantID,
		"expires_at": inv.ExpiresAt.Format(http.TimeFormat),
	})
}

// AcceptInvitationRequest carries the accept form payload
type AcceptInvitationRequest struct {
	Token       string `json:"token"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AcceptInvitation consumes an invitation, provisions the invited user
// and signs them in.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.invitations.Accept(r.Context(), req.Token, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet requirements")
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "a user with this email already exists")
		default:
			respondInvitationError(w, err)
		}
		return
	}

	h.openSession(w, r, user)
}

func respondInvitationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invitation.ErrInvitationExpired):
		respondError(w, http.StatusGone, "invitation has expired")
	case errors.Is(err, invitation.ErrInvitationUsed):
		respondError(w, http.StatusGone, "invitation has already been used")
	case errors.Is(err, invitation.ErrInvitationNotFound):
		respondError(w, http.StatusNotFound, "invitation not found")
	default:
		respondError(w, http.StatusInternalServerError, "failed to process invitation")
	}
}
