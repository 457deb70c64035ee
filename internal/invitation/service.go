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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/cruxhq/crux/internal/mail"
	"github.com/google/uuid"
)

// Service provides invitation business logic
type Service struct {
	repo        Repository
	identities  *identity.Service
	issuer      *identity.TokenIssuer
	mailer      mail.Sender
	mailBuilder *mail.Builder
	auditLogger audit.Logger
	ttl         time.Duration
}

// NewService creates a new invitation service
func NewService(
	repo Repository,
	identities *identity.Service,
	issuer *identity.TokenIssuer,
	mailer mail.Sender,
	mailBuilder *mail.Builder,
	auditLogger audit.Logger,
	ttl time.Duration,
) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:        repo,
		identities:  identities,
		issuer:      issuer,
		mailer:      mailer,
		mailBuilder: mailBuilder,
		auditLogger: auditLogger,
		ttl:         ttl,
	}
}

// Create issues an invitation for email to join tenantID with role and
// emails the accept link. Only tenant roles can be granted by invitation.
func (s *Service) Create(ctx context.Context, tenantID, tenantName, email, role, invitedBy string) (*Invitation, error) {
	if role != authz.RoleTenantAdmin && role != authz.RoleUser {
		return nil, ErrInvalidInviteRole
	}
	email = strings.ToLower(email)

	if existing, err := s.identities.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, identity.ErrUserAlreadyExists
	}

	now := time.Now()
	inv := &Invitation{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
		InvitedBy: invitedBy,
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	signed, err := s.issuer.Sign(inv.Token, email, identity.PurposeInvite, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign invitation token: %w", err)
	}

	if err := s.mailer.Send(ctx, s.mailBuilder.Invitation(email, tenantName, signed)); err != nil {
		return nil, fmt.Errorf("failed to send invitation email: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInviteCreated,
		TenantID: tenantID,
		ActorID:  invitedBy,
		Resource: "invitation",
		Metadata: map[string]any{audit.AttrEmail: email, audit.AttrRole: role},
	})

	return inv, nil
}

// Inspect validates a signed invitation token and returns the invitation
// without consuming it. The accept form uses this to pre-fill the email.
func (s *Service) Inspect(ctx context.Context, signedToken string) (*Invitation, error) {
	claims, err := s.issuer.Parse(signedToken, identity.PurposeInvite)
	if err != nil {
		if err == identity.ErrTokenExpired {
			return nil, ErrInvitationExpired
		}
		return nil, ErrInvitationNotFound
	}

	inv, err := s.repo.GetByToken(ctx, claims.ID)
	if err != nil {
		return nil, err
	}

	if inv.UsedAt != nil {
		return nil, ErrInvitationUsed
	}
	if !inv.ExpiresAt.After(time.Now()) {
		return nil, ErrInvitationExpired
	}

	return inv, nil
}

// Accept consumes an invitation and provisions the invited identity with
// the granted role and the chosen password. The invitation is claimed
// before the identity is created so that a raced double-accept cannot
// succeed twice.
func (s *Service) Accept(ctx context.Context, signedToken, password, displayName string) (*identity.User, error) {
	inv, err := s.Inspect(ctx, signedToken)
	if err != nil {
		return nil, err
	}

	// Everything the invitee can get wrong is rejected before the claim,
	// so a failed accept leaves the invitation redeemable.
	if err := identity.ValidatePassword(password); err != nil {
		return nil, err
	}
	if existing, err := s.identities.GetByEmail(ctx, inv.Email); err == nil && existing != nil {
		return nil, identity.ErrUserAlreadyExists
	}

	if err := s.repo.MarkUsed(ctx, inv.ID); err != nil {
		return nil, err
	}

	user, err := s.identities.ProvisionIdentity(ctx, &inv.TenantID, inv.Email, inv.Role, displayName)
	if err != nil {
		s.releaseClaim(ctx, inv.ID)
		return nil, fmt.Errorf("failed to provision invited user: %w", err)
	}

	if err := s.identities.AddPassword(ctx, user.ID, password); err != nil {
		s.releaseClaim(ctx, inv.ID)
		return nil, err
	}

	// Accepting the emailed link proves mailbox control
	if err := s.identities.MarkEmailVerified(ctx, user.ID); err != nil {
		slog.WarnContext(ctx, "failed to mark invited user verified", slog.String("user_id", user.ID))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInviteAccepted,
		TenantID: inv.TenantID,
		ActorID:  user.ID,
		Resource: "invitation",
		Metadata: map[string]any{audit.AttrEmail: inv.Email, audit.AttrRole: inv.Role},
	})

	return user, nil
}

// releaseClaim hands a claimed invitation back after provisioning failed
// mid-accept. Best effort: if the release itself fails the invitation
// stays consumed and the admin has to reissue it.
func (s *Service) releaseClaim(ctx context.Context, id string) {
	if err := s.repo.Release(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to release claimed invitation",
			slog.String("invitation_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// ListByTenant lists a tenant's invitations
func (s *Service) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Invitation, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit, offset)
}

// Revoke deletes a pending invitation
func (s *Service) Revoke(ctx context.Context, id, tenantID, revokedBy string) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.TenantID != tenantID {
		return ErrInvitationNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInviteRevoked,
		TenantID: tenantID,
		ActorID:  revokedBy,
		Resource: "invitation",
		Metadata: map[string]any{audit.AttrEmail: inv.Email},
	})

	return nil
}
