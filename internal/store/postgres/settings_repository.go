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

	"github.com/cruxhq/crux/internal/tenant"
	"github.com/jackc/pgx/v5"
)

// SettingsRepository implements tenant.SettingsRepository
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new business settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a tenant's business settings
func (r *SettingsRepository) Get(ctx context.Context, tenantID string) (*tenant.BusinessSettings, error) {
	var s tenant.BusinessSettings

	err := r.db.pool.QueryRow(ctx, `
		SELECT tenant_id, contact_name, contact_email, contact_phone,
			external_review_url, form_title, form_message, accent_color, updated_at
		FROM business_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(
		&s.TenantID, &s.ContactName, &s.ContactEmail, &s.ContactPhone,
		&s.ExternalReviewURL, &s.FormTitle, &s.FormMessage, &s.AccentColor, &s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get business settings: %w", err)
	}

	return &s, nil
}

// Upsert writes a tenant's business settings, one row per tenant
func (r *SettingsRepository) Upsert(ctx context.Context, s *tenant.BusinessSettings) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO business_settings (
			tenant_id, contact_name, contact_email, contact_phone,
			external_review_url, form_title, form_message, accent_color, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			contact_name = $2,
			contact_email = $3,
			contact_phone = $4,
			external_review_url = $5,
			form_title = $6,
			form_message = $7,
			accent_color = $8,
			updated_at = NOW()
	`,
		s.TenantID, s.ContactName, s.ContactEmail, s.ContactPhone,
		s.ExternalReviewURL, s.FormTitle, s.FormMessage, s.AccentColor,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert business settings: %w", err)
	}

	return nil
}
