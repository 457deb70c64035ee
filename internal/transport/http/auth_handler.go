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
	"log/slog"
	"net/http"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/cruxhq/crux/internal/observability/logger"
	"github.com/cruxhq/crux/internal/tenant"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password and opens a session.
// Members of suspended tenants cannot log in.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identities.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLoginFailed,
			ActorID:   audit.ActorSystem,
			Resource:  "session",
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
			Metadata:  map[string]any{audit.AttrEmail: req.Email, audit.AttrReason: "invalid_credentials"},
		})
		if errors.Is(err, identity.ErrAccountLocked) {
			respondError(w, http.StatusUnauthorized, "account is temporarily locked")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.requireActiveTenant(r, user); err != nil {
		respondError(w, http.StatusForbidden, "tenant is suspended")
		return
	}

	h.openSession(w, r, user)
}

// openSession creates a session for an authenticated user, sets the
// cookie and writes the user payload.
func (h *Handler) openSession(w http.ResponseWriter, r *http.Request, user *identity.User) {
	sess, err := h.sessions.Create(r.Context(), user.ID, user.Role, user.TenantID, getIPAddress(r), r.UserAgent())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setSessionCookie(w, sess.ID)

	tenantID := ""
	if user.TenantID != nil {
		tenantID = *user.TenantID
	}
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLoginSuccess,
		TenantID:  tenantID,
		ActorID:   user.ID,
		Resource:  "session",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, userResponse(user))
}

// requireActiveTenant rejects tenant-scoped users whose tenant is not
// active. Super admins carry no tenant and always pass.
func (h *Handler) requireActiveTenant(r *http.Request, user *identity.User) error {
	if user.TenantID == nil {
		return nil
	}
	tn, err := h.tenants.GetTenant(r.Context(), *user.TenantID)
	if err != nil {
		return err
	}
	if !tn.IsActive() {
		return tenant.ErrInvalidStatus
	}
	return nil
}

// Logout destroys the current session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLogout,
		TenantID:  GetTenantID(r.Context()),
		ActorID:   GetUserID(r.Context()),
		Resource:  "session",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	if err := h.sessions.Destroy(r.Context(), sessionID); err != nil {
		slog.WarnContext(r.Context(), "failed to destroy session", logger.Error(err))
	}
	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user's profile
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identities.GetUser(r.Context(), GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// MagicLinkRequest carries the address to send a sign-in link to
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// RequestMagicLink emails a one-time sign-in link. The response does not
// reveal whether the address is registered.
func (h *Handler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted := map[string]string{"message": "if the address is registered, a sign-in link has been sent"}

	user, err := h.identities.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondJSON(w, http.StatusOK, accepted)
		return
	}
	if err := h.requireActiveTenant(r, user); err != nil {
		respondJSON(w, http.StatusOK, accepted)
		return
	}

	token, err := h.issuer.Issue(r.Context(), user.ID, identity.PurposeMagicLink, h.magicLinkTTL)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue magic link", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue sign-in link")
		return
	}

	if err := h.mailer.Send(r.Context(), h.mailBuilder.MagicLink(user.Email, token)); err != nil {
		slog.ErrorContext(r.Context(), "failed to send magic link", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to send sign-in link")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeMagicLinkRequested,
		ActorID:   user.ID,
		Resource:  "magic_link",
		IPAddress: getIPAddress(r),
		Metadata:  map[string]any{audit.AttrEmail: user.Email},
	})

	respondJSON(w, http.StatusOK, accepted)
}

// RedeemMagicLink consumes a one-time sign-in token and opens a session
func (h *Handler) RedeemMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := h.issuer.Redeem(r.Context(), token, identity.PurposeMagicLink)
	if err != nil {
		respondTokenError(w, err)
		return
	}

	user, err := h.identities.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid sign-in link")
		return
	}
	if err := h.requireActiveTenant(r, user); err != nil {
		respondError(w, http.StatusForbidden, "tenant is suspended")
		return
	}

	// The emailed link proves mailbox control
	if !user.EmailVerified {
		if err := h.identities.MarkEmailVerified(r.Context(), user.ID); err != nil {
			slog.WarnContext(r.Context(), "failed to mark email verified", logger.Error(err))
		}
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeMagicLinkRedeemed,
		ActorID:   user.ID,
		Resource:  "magic_link",
		IPAddress: getIPAddress(r),
	})

	h.openSession(w, r, user)
}

// PasswordResetRequest carries the address to send a reset link to
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset emails a one-time password reset link. The
// response does not reveal whether the address is registered.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted := map[string]string{"message": "if the address is registered, a reset link has been sent"}

	user, err := h.identities.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondJSON(w, http.StatusOK, accepted)
		return
	}

	token, err := h.issuer.Issue(r.Context(), user.ID, identity.PurposePasswordReset, h.passwordResetTTL)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue reset token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue reset link")
		return
	}

	if err := h.mailer.Send(r.Context(), h.mailBuilder.PasswordReset(user.Email, token)); err != nil {
		slog.ErrorContext(r.Context(), "failed to send reset link", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to send reset link")
		return
	}

	respondJSON(w, http.StatusOK, accepted)
}

// PasswordResetConfirm carries the reset token and the new password
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset consumes a reset token, sets the new password
// and revokes every existing session of the user.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := h.issuer.Redeem(r.Context(), req.Token, identity.PurposePasswordReset)
	if err != nil {
		respondTokenError(w, err)
		return
	}

	if err := h.identities.ResetPassword(r.Context(), userID, req.NewPassword); err != nil {
		if errors.Is(err, identity.ErrWeakPassword) {
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	// Any session opened before the reset is no longer trustworthy
	if err := h.sessions.DestroyByUser(r.Context(), userID); err != nil {
		slog.WarnContext(r.Context(), "failed to revoke sessions after reset", logger.Error(err))
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypePasswordReset,
		ActorID:   userID,
		Resource:  "user_credentials",
		IPAddress: getIPAddress(r),
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password reset successfully",
	})
}

// ChangePasswordRequest represents password change data
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword changes the authenticated user's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.identities.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid old password")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "new password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypePasswordChanged,
		TenantID:  GetTenantID(r.Context()),
		ActorID:   userID,
		Resource:  "user_credentials",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}

// UpdateProfileRequest carries profile fields the user may edit
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateProfile updates the authenticated user's profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.identities.UpdateProfile(r.Context(), GetUserID(r.Context()), req.DisplayName); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "profile updated successfully",
	})
}

// respondTokenError maps one-time token errors to HTTP statuses
func respondTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrTokenExpired):
		respondError(w, http.StatusUnauthorized, "link has expired")
	case errors.Is(err, identity.ErrTokenUsed):
		respondError(w, http.StatusUnauthorized, "link has already been used")
	default:
		respondError(w, http.StatusUnauthorized, "link is invalid")
	}
}

// userResponse is the canonical user payload
func userResponse(user *identity.User) map[string]any {
	resp := map[string]any{
		"user_id":        user.ID,
		"email":          user.Email,
		"role":           user.Role,
		"display_name":   user.DisplayName,
		"email_verified": user.EmailVerified,
	}
	if user.TenantID != nil {
		resp["tenant_id"] = *user.TenantID
	}
	return resp
}
