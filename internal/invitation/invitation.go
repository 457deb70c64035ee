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

package invitation

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationUsed     = errors.New("invitation has already been used")
	ErrInvalidInviteRole  = errors.New("invitations may only grant tenant roles")
)

// DefaultTTL is how long an invitation stays redeemable.
const DefaultTTL = 7 * 24 * time.Hour

// Invitation is a single-use, time-limited offer to join a tenant with a
// given role.
type Invitation struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	InvitedBy string     `json:"invited_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// Valid reports whether the invitation is still consumable: never used AND
// not past its expiry.
func (i *Invitation) Valid() bool {
	return i.UsedAt == nil && i.ExpiresAt.After(time.Now())
}

// Repository defines the interface for invitation persistence
type Repository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Invitation, error)

	// MarkUsed stamps used_at exactly once. Returns ErrInvitationUsed when
	// the invitation was already consumed.
	MarkUsed(ctx context.Context, id string) error

	// Release clears used_at so a claim abandoned by a failed accept can
	// be retried.
	Release(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error
}
