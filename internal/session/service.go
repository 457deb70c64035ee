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

package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"
)

// Service manages session lifecycle. Sessions expire at a hard deadline
// and also lapse after an idle timeout.
type Service struct {
	repo        Repository
	ttl         time.Duration
	idleTimeout time.Duration
}

// NewService creates a new session service
func NewService(repo Repository, ttl, idleTimeout time.Duration) *Service {
	return &Service{
		repo:        repo,
		ttl:         ttl,
		idleTimeout: idleTimeout,
	}
}

// newSessionID returns a 256-bit random ID. The ID is the bearer secret
// stored in the cookie, so it must be unguessable.
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create opens a session for an authenticated user
func (s *Service) Create(ctx context.Context, userID, role string, tenantID *string, ipAddress, userAgent string) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:         id,
		TenantID:   tenantID,
		UserID:     userID,
		Role:       role,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		LastSeenAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get validates a session and refreshes its last-seen time. Expired or
// idle sessions are destroyed and read as expired.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.IsExpired() || sess.IsIdle(s.idleTimeout) {
		if err := s.repo.Delete(ctx, sessionID); err != nil {
			slog.WarnContext(ctx, "failed to delete lapsed session", slog.String("error", err.Error()))
		}
		return nil, ErrSessionExpired
	}

	sess.LastSeenAt = time.Now()
	if err := s.repo.Update(ctx, sess); err != nil {
		slog.WarnContext(ctx, "failed to refresh session", slog.String("error", err.Error()))
	}

	return sess, nil
}

// Destroy ends a single session
func (s *Service) Destroy(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

// DestroyByUser ends every session of a user. Called on deactivation and
// password change.
func (s *Service) DestroyByUser(ctx context.Context, userID string) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// CleanupExpired removes expired sessions from storage
func (s *Service) CleanupExpired(ctx context.Context) error {
	return s.repo.DeleteExpired(ctx)
}
