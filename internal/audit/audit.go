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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Event types
const (
	TypeLoginSuccess       = "login_success"
	TypeLoginFailed        = "login_failed"
	TypeLogout             = "logout"
	TypeMagicLinkRequested = "magic_link_requested"
	TypeMagicLinkRedeemed  = "magic_link_redeemed"
	TypePasswordReset      = "password_reset"
	TypePasswordChanged    = "password_changed"
	TypeUserCreated        = "user_created"
	TypeUserLocked         = "user_locked"
	TypeUserDeactivated    = "user_deactivated"
	TypeRoleChanged        = "role_changed"
	TypeTenantCreated      = "tenant_created"
	TypeTenantUpdated      = "tenant_updated"
	TypeTenantSuspended    = "tenant_suspended"
	TypeTenantActivated    = "tenant_activated"
	TypeInviteCreated      = "invitation_created"
	TypeInviteAccepted     = "invitation_accepted"
	TypeInviteRevoked      = "invitation_revoked"
	TypeReviewSubmitted    = "review_submitted"
	TypeReviewFlagged      = "review_flagged"
	TypeReviewDeleted      = "review_deleted"
	TypeSettingsUpdated    = "settings_updated"
)

// Common metadata attribute keys
const (
	AttrReason   = "reason"
	AttrAttempts = "attempts"
	AttrEmail    = "email"
	AttrRole     = "role"
	AttrTenantID = "tenant_id"
)

// ActorSystem marks events produced by the service itself (bootstrap,
// scheduled cleanup) rather than a user.
const ActorSystem = "system"

// Event represents an auditable action
type Event struct {
	Type      string
	TenantID  string
	ActorID   string
	Resource  string
	Metadata  map[string]any
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// Fanout sends each event to every sink.
type Fanout []Logger

// NewFanout combines multiple audit sinks into one Logger.
func NewFanout(sinks ...Logger) Fanout {
	return Fanout(sinks)
}

// Log forwards the event to all sinks.
func (f Fanout) Log(ctx context.Context, event Event) {
	for _, l := range f {
		l.Log(ctx, event)
	}
}

// isSecret checks if a metadata key likely carries a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	secrets := []string{"password", "secret", "token", "key", "hash", "credential", "authorization"}
	for _, s := range secrets {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
