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
	"time"

	"github.com/google/uuid"
)

// Record is a persisted audit log row. The table is append-only: records
// are inserted and listed, never updated or deleted.
type Record struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Repository defines the interface for audit log persistence
type Repository interface {
	Insert(ctx context.Context, record *Record) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Record, error)
}

// StoreLogger implements Logger against an append-only repository.
// Writes are best-effort: a failed insert is logged and swallowed so the
// primary user action is never disrupted by audit unavailability.
type StoreLogger struct {
	repo Repository
}

// NewStoreLogger creates a persisting audit logger
func NewStoreLogger(repo Repository) *StoreLogger {
	return &StoreLogger{repo: repo}
}

// Log persists an audit event
func (l *StoreLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	details := make(map[string]any, len(event.Metadata))
	for k, v := range event.Metadata {
		if isSecret(k) {
			v = "[REDACTED]"
		}
		details[k] = v
	}

	record := &Record{
		ID:        uuid.NewString(),
		TenantID:  event.TenantID,
		ActorID:   event.ActorID,
		Action:    event.Type,
		Resource:  event.Resource,
		Details:   details,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		CreatedAt: event.Timestamp,
	}

	if err := l.repo.Insert(ctx, record); err != nil {
		slog.WarnContext(ctx, "failed to persist audit record",
			slog.String("audit_type", event.Type),
			slog.String("error", err.Error()),
		)
	}
}
