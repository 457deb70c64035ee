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

package identity

import (
	"context"
	"fmt"
	"os"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/authz"
)

const (
	EnvBootstrapAdminEmail = "CRUX_BOOTSTRAP_ADMIN_EMAIL"
)

// BootstrapService promotes the configured account to super admin on first
// run. It is a no-op once any super admin exists.
type BootstrapService struct {
	identityService *Service
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		auditLogger:     auditLogger,
	}
}

// Bootstrap checks for bootstrap configuration and executes it if necessary
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	count, err := s.identityService.repo.CountByRole(ctx, authz.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("failed to check for existing super admin: %w", err)
	}
	if count > 0 {
		// Already bootstrapped, skip silently
		return nil
	}

	user, err := s.identityService.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("bootstrap user not found (email: %s): %w", email, err)
	}

	if err := s.identityService.repo.UpdateRole(ctx, user.ID, authz.RoleSuperAdmin); err != nil {
		return fmt.Errorf("failed to promote bootstrap super admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleChanged,
		ActorID:  audit.ActorSystem,
		Resource: "user",
		Metadata: map[string]any{
			"user_id":        user.ID,
			audit.AttrEmail:  email,
			audit.AttrRole:   authz.RoleSuperAdmin,
			audit.AttrReason: "bootstrap",
		},
	})

	fmt.Printf("Successfully bootstrapped initial super admin: %s\n", email)
	return nil
}
