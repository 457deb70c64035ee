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

package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
	"github.com/cruxhq/crux/internal/identity"
	"github.com/cruxhq/crux/internal/plan"
	"github.com/google/uuid"
)

// Service provides tenant management business logic
type Service struct {
	repo         Repository
	settingsRepo SettingsRepository
	hasher       *identity.PasswordHasher
	auditLogger  audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, settingsRepo SettingsRepository, hasher *identity.PasswordHasher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:         repo,
		settingsRepo: settingsRepo,
		hasher:       hasher,
		auditLogger:  auditLogger,
	}
}

// CreateParams holds the inputs for provisioning a tenant with its initial
// admin user.
type CreateParams struct {
	Name             string
	Domain           string
	Plan             string
	OwnerEmail       string
	OwnerDisplayName string
	OwnerPassword    string
}

// CreateTenant provisions a tenant together with its first tenant admin.
// Both writes run in one transaction; a failure leaves no partial state.
func (s *Service) CreateTenant(ctx context.Context, p CreateParams, createdBy string) (*Tenant, *identity.User, error) {
	if p.Name == "" {
		return nil, nil, fmt.Errorf("tenant name is required")
	}
	if p.OwnerEmail == "" {
		return nil, nil, fmt.Errorf("owner email is required")
	}
	if p.Plan == "" {
		p.Plan = plan.DefaultTier
	}
	if _, err := plan.Lookup(p.Plan); err != nil {
		return nil, nil, err
	}

	if p.Domain != "" {
		if _, err := s.repo.GetByDomain(ctx, p.Domain); err == nil {
			return nil, nil, ErrTenantAlreadyExists
		}
	}

	now := time.Now()
	t := &Tenant{
		ID:        uuid.NewString(),
		Name:      p.Name,
		Domain:    p.Domain,
		Status:    StatusActive,
		Plan:      p.Plan,
		Settings:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	owner := &identity.User{
		ID:          uuid.NewString(),
		TenantID:    &t.ID,
		Email:       p.OwnerEmail,
		Role:        authz.RoleTenantAdmin,
		DisplayName: p.OwnerDisplayName,
	}

	var credentials *identity.Credentials
	if p.OwnerPassword != "" {
		hash, err := s.hasher.Hash(p.OwnerPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash owner password: %w", err)
		}
		credentials = &identity.Credentials{UserID: owner.ID, PasswordHash: hash}
	}

	if err := s.repo.CreateWithOwner(ctx, t, owner, credentials); err != nil {
		return nil, nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  createdBy,
		Resource: "tenant",
		Metadata: map[string]any{
			"name":          t.Name,
			"plan":          t.Plan,
			"owner_user_id": owner.ID,
		},
	})

	return t, owner, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// GetTenantByDomain retrieves a tenant by domain
func (s *Service) GetTenantByDomain(ctx context.Context, domain string) (*Tenant, error) {
	return s.repo.GetByDomain(ctx, domain)
}

// ListTenants lists tenants with pagination and an optional search over
// name and domain
func (s *Service) ListTenants(ctx context.Context, search string, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, search, limit, offset)
}

// UpdateTenant updates name, domain, plan and settings blob
func (s *Service) UpdateTenant(ctx context.Context, t *Tenant, updatedBy string) error {
	if _, err := plan.Lookup(t.Plan); err != nil {
		return err
	}

	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantUpdated,
		TenantID: t.ID,
		ActorID:  updatedBy,
		Resource: "tenant",
		Metadata: map[string]any{"name": t.Name, "plan": t.Plan},
	})

	return nil
}

// SetStatus moves the tenant between active, suspended and pending
func (s *Service) SetStatus(ctx context.Context, id, status, changedBy string) error {
	switch status {
	case StatusActive, StatusSuspended, StatusPending:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}

	eventType := audit.TypeTenantSuspended
	if status == StatusActive {
		eventType = audit.TypeTenantActivated
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: id,
		ActorID:  changedBy,
		Resource: "tenant",
		Metadata: map[string]any{"status": status},
	})

	return nil
}

// DeleteTenant removes a tenant
func (s *Service) DeleteTenant(ctx context.Context, id, deletedBy string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantUpdated,
		TenantID: id,
		ActorID:  deletedBy,
		Resource: "tenant",
		Metadata: map[string]any{"deleted": true},
	})

	return nil
}

// GetSettings retrieves the tenant's business settings, falling back to an
// empty default when none have been saved yet.
func (s *Service) GetSettings(ctx context.Context, tenantID string) (*BusinessSettings, error) {
	settings, err := s.settingsRepo.Get(ctx, tenantID)
	if err == ErrSettingsNotFound {
		return &BusinessSettings{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings upserts the tenant's business settings
func (s *Service) UpdateSettings(ctx context.Context, settings *BusinessSettings, updatedBy string) error {
	settings.UpdatedAt = time.Now()
	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSettingsUpdated,
		TenantID: settings.TenantID,
		ActorID:  updatedBy,
		Resource: "business_settings",
	})

	return nil
}
