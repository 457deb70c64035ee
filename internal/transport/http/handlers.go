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
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/cruxhq/crux/internal/invitation"
	"github.com/cruxhq/crux/internal/mail"
	"github.com/cruxhq/crux/internal/review"
	"github.com/cruxhq/crux/internal/session"
	"github.com/cruxhq/crux/internal/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identities  *identity.Service
	sessions    *session.Service
	tenants     *tenant.Service
	invitations *invitation.Service
	reviews     *review.Service
	broker      *review.Broker
	auditRepo   audit.Repository
	auditLogger audit.Logger
	issuer      *identity.TokenIssuer
	mailer      mail.Sender
	mailBuilder *mail.Builder

	sessionConfig    SessionConfig
	magicLinkTTL     time.Duration
	passwordResetTTL time.Duration
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	Lifetime       time.Duration
}

// HandlerParams collects the dependencies of the HTTP layer
type HandlerParams struct {
	Identities  *identity.Service
	Sessions    *session.Service
	Tenants     *tenant.Service
	Invitations *invitation.Service
	Reviews     *review.Service
	Broker      *review.Broker
	AuditRepo   audit.Repository
	AuditLogger audit.Logger
	Issuer      *identity.TokenIssuer
	Mailer      mail.Sender
	MailBuilder *mail.Builder

	SessionConfig    SessionConfig
	MagicLinkTTL     time.Duration
	PasswordResetTTL time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		identities:       p.Identities,
		sessions:         p.Sessions,
		tenants:          p.Tenants,
		invitations:      p.Invitations,
		reviews:          p.Reviews,
		broker:           p.Broker,
		auditRepo:        p.AuditRepo,
		auditLogger:      p.AuditLogger,
		issuer:           p.Issuer,
		mailer:           p.Mailer,
		mailBuilder:      p.MailBuilder,
		sessionConfig:    p.SessionConfig,
		magicLinkTTL:     p.MagicLinkTTL,
		passwordResetTTL: p.PasswordResetTTL,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", h.HealthCheck)

		// Public review form. Anonymous, addressed by tenant id.
		r.Route("/public/{tenantID}", func(r chi.Router) {
			r.Get("/form", h.GetPublicForm)
			r.Post("/reviews", h.SubmitReview)
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// The SSE stream stays open for the life of a dashboard tab, so
		// it is mounted outside the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/events", h.Events)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Unauthenticated auth flows
			r.Post("/auth/login", h.Login)
			r.Post("/auth/magic-link", h.RequestMagicLink)
			r.Get("/auth/magic", h.RedeemMagicLink)
			r.Post("/auth/password-reset", h.RequestPasswordReset)
			r.Post("/auth/password-reset/confirm", h.ConfirmPasswordReset)

			// Invitation acceptance is public: the token is the credential
			r.Get("/invitations/inspect", h.InspectInvitation)
			r.Post("/invitations/accept", h.AcceptInvitation)

			// Authenticated routes
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)

				r.Post("/auth/logout", h.Logout)
				r.Get("/auth/me", h.GetCurrentUser)
				r.Post("/auth/change-password", h.ChangePassword)
				r.Put("/profile", h.UpdateProfile)

				// Tenant dashboard. Tenant admins operate on their own
				// tenant, resolved from the session.
				r.Group(func(r chi.Router) {
					r.Use(RequireRole(authz.RoleTenantAdmin))
					r.Use(ResolveTenant)

					r.Get("/reviews", h.ListReviews)
					r.Get("/reviews/{reviewID}", h.GetReview)
					r.Post("/reviews/{reviewID}/flag", h.FlagReview)
					r.Delete("/reviews/{reviewID}/flag", h.UnflagReview)
					r.Post("/reviews/{reviewID}/archive", h.ArchiveReview)
					r.Delete("/reviews/{reviewID}/archive", h.UnarchiveReview)
					r.Delete("/reviews/{reviewID}", h.DeleteReview)

					r.Get("/usage", h.GetUsage)

					r.Get("/settings", h.GetSettings)
					r.Put("/settings", h.UpdateSettings)

					r.Get("/invitations", h.ListInvitations)
					r.Post("/invitations", h.CreateInvitation)
					r.Delete("/invitations/{invitationID}", h.RevokeInvitation)

					r.Get("/users", h.ListUsers)
					r.Post("/users", h.ProvisionUser)
					r.Put("/users/{userID}/role", h.SetUserRole)
					r.Delete("/users/{userID}", h.DeactivateUser)

					r.Get("/audit", h.ListAuditLog)
				})

				// Master dashboard. Super admins address any tenant by URL.
				r.Route("/tenants", func(r chi.Router) {
					r.Use(RequireRole(authz.RoleSuperAdmin))

					r.Post("/", h.CreateTenant)
					r.Get("/", h.ListTenants)

					r.Route("/{tenantID}", func(r chi.Router) {
						r.Use(ResolveTenant)

						r.Get("/", h.GetTenant)
						r.Put("/", h.UpdateTenant)
						r.Delete("/", h.DeleteTenant)
						r.Post("/suspend", h.SuspendTenant)
						r.Post("/activate", h.ActivateTenant)

						r.Get("/usage", h.GetUsage)
						r.Get("/reviews", h.ListReviews)
						r.Get("/invitations", h.ListInvitations)
						r.Get("/users", h.ListUsers)
						r.Post("/users", h.ProvisionUser)
						r.Put("/users/{userID}/role", h.SetUserRole)
						r.Delete("/users/{userID}", h.DeactivateUser)
						r.Get("/audit", h.ListAuditLog)
					})
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "crux",
	})
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    sessionID,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   int(h.sessionConfig.Lifetime.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessionConfig.CookieName,
		Value:  "",
		Path:   h.sessionConfig.CookiePath,
		Domain: h.sessionConfig.CookieDomain,
		MaxAge: -1,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
