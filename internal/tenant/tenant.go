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
	"time"
)

// Status constants
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusPending   = "pending"
)

// Tenant represents a customer organization, the unit of data isolation.
type Tenant struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Domain    string         `json:"domain"`
	Status    string         `json:"status"`
	Plan      string         `json:"plan"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsActive reports whether the tenant may serve logins and public review
// submissions.
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// BusinessSettings holds the tenant's public review form configuration.
// One row per tenant.
type BusinessSettings struct {
	TenantID          string    `json:"tenant_id"`
	ContactName       string    `json:"contact_name"`
	ContactEmail      string    `json:"contact_email"`
	ContactPhone      string    `json:"contact_phone"`
	ExternalReviewURL string    `json:"external_review_url"`
	FormTitle         string    `json:"form_title"`
	FormMessage       string    `json:"form_message"`
	AccentColor       string    `json:"accent_color"`
	UpdatedAt         time.Time `json:"updated_at"`
}
