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
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/observability/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Tenant context resolution:
// - Tenant context is derived EXCLUSIVELY from the session.
// - The X-Tenant-ID header is forbidden on authenticated requests.
// - Super admins carry no session tenant; they address tenants through
//   URL parameters, which ResolveTenant validates per role.

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Log request start
			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware validates the session cookie and adds user, role and
// tenant context to the request.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := h.getSessionFromCookie(r)
		if sessionID == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		sess, err := h.sessions.Get(r.Context(), sessionID)
		if err != nil {
			h.clearSessionCookie(w)
			respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		// Tenant context is derived exclusively from the session
		if r.Header.Get("X-Tenant-ID") != "" {
			slog.WarnContext(r.Context(), "tenant header spoofing attempt on authenticated route",
				logger.UserID(sess.UserID),
			)
			respondError(w, http.StatusBadRequest, "X-Tenant-ID header is not allowed; tenant is derived from session")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		ctx = context.WithValue(ctx, sessionIDKey, sess.ID)
		ctx = context.WithValue(ctx, roleKey, sess.Role)

		sessionTenant := ""
		if sess.TenantID != nil {
			sessionTenant = *sess.TenantID
		}
		ctx = context.WithValue(ctx, tenantIDKey, sessionTenant)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces a minimum role for a route subtree.
func RequireRole(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authz.Satisfies(GetRole(r.Context()), required) {
				respondError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResolveTenant resolves the tenant a request addresses. Tenant-scoped
// roles always operate on their own tenant; super admins take the tenant
// from the URL parameter. A tenant-scoped user naming another tenant in
// the URL is rejected.
func ResolveTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlTenant := chi.URLParam(r, "tenantID")
		sessionTenant := GetTenantID(r.Context())
		role := GetRole(r.Context())

		target := sessionTenant
		if role == authz.RoleSuperAdmin {
			target = urlTenant
		} else if urlTenant != "" && urlTenant != sessionTenant {
			respondError(w, http.StatusForbidden, "cannot address another tenant")
			return
		}

		if target == "" {
			respondError(w, http.StatusBadRequest, "tenant context is required")
			return
		}

		ctx := context.WithValue(r.Context(), tenantIDKey, target)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
