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
	"database/sql"
	"fmt"

	"github.com/cruxhq/crux/internal/invitation"
	"github.com/jackc/pgx/v5"
)

// InvitationRepository implements invitation.Repository
type InvitationRepository struct {
	db *DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create creates a new invitation
func (r *InvitationRepository) Create(ctx context.Context, inv *invitation.Invitation) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO invitations (id, tenant_id, email, role, token, expires_at, invited_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.TenantID, inv.Email, inv.Role, inv.Token, inv.ExpiresAt, inv.InvitedBy, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

const invitationColumns = `id, tenant_id, email, role, token, expires_at, used_at, invited_by, created_at`

func scanInvitation(row pgx.Row) (*invitation.Invitation, error) {
	var inv invitation.Invitation
	var usedAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &inv.Role, &inv.Token,
		&inv.ExpiresAt, &usedAt, &inv.InvitedBy, &inv.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, invitation.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}

	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}

	return &inv, nil
}

// GetByID retrieves an invitation by ID
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*invitation.Invitation, error) {
	return scanInvitation(r.db.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE id = $1
	`, id))
}

// GetByToken retrieves an invitation by its token
func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*invitation.Invitation, error) {
	return scanInvitation(r.db.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE token = $1
	`, token))
}

// ListByTenant retrieves a tenant's invitations, newest first
func (r *InvitationRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*invitation.Invitation, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*invitation.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

// MarkUsed stamps used_at exactly once. The used_at IS NULL guard makes
// a raced double-accept lose cleanly.
func (r *InvitationRepository) MarkUsed(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE invitations SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark invitation used: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either missing or already consumed
		var exists bool
		if err := r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invitation: %w", err)
		}
		if exists {
			return invitation.ErrInvitationUsed
		}
		return invitation.ErrInvitationNotFound
	}

	return nil
}

// Release clears used_at so an invitation claimed by an accept that
// failed partway through can be redeemed again.
func (r *InvitationRepository) Release(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE invitations SET used_at = NULL WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to release invitation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return invitation.ErrInvitationNotFound
	}

	return nil
}

// Delete removes an invitation
func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM invitations WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return invitation.ErrInvitationNotFound
	}

	return nil
}
