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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cruxhq/crux/internal/identity"
)

// TokenRepository implements identity.OneTimeTokenStore
type TokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new one-time token repository
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save persists a newly issued token record
func (r *TokenRepository) Save(ctx context.Context, token *identity.OneTimeToken) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO one_time_tokens (id, user_id, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, token.ID, token.UserID, token.Purpose, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert one-time token: %w", err)
	}
	return nil
}

// Consume marks a token used. The used_at IS NULL guard makes a raced
// double redemption lose cleanly.
func (r *TokenRepository) Consume(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE one_time_tokens SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL AND expires_at > $2
	`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to consume one-time token: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM one_time_tokens WHERE id = $1 AND used_at IS NOT NULL)
		`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check one-time token: %w", err)
		}
		if exists {
			return identity.ErrTokenUsed
		}
		return identity.ErrTokenInvalid
	}

	return nil
}

// DeleteExpired removes expired token records
func (r *TokenRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM one_time_tokens WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return nil
}
