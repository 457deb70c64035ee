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

package review

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrReviewNotFound   = errors.New("review not found")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrMissingCustomer  = errors.New("customer name is required")
	ErrTenantInactive   = errors.New("tenant is not accepting reviews")
	ErrPlanLimitReached = errors.New("monthly review limit reached for the current plan")
)

// Review is a customer review submitted through a tenant's public form.
type Review struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Rating        int       `json:"rating"`
	Text          string    `json:"text,omitempty"`
	Flagged       bool      `json:"flagged"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilter narrows a tenant's review listing.
type ListFilter struct {
	// Search matches against customer name and review text
	Search string

	// Flagged, when set, restricts to flagged or unflagged reviews
	Flagged *bool

	// Archived, when set, restricts to archived or live reviews.
	// Listings default to live reviews only.
	Archived *bool

	Limit  int
	Offset int
}

// Repository defines the interface for review persistence
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	ListByTenant(ctx context.Context, tenantID string, filter ListFilter) ([]*Review, error)

	// CountByTenantSince counts a tenant's reviews created at or after the
	// given instant. Plan limits are evaluated against this count.
	CountByTenantSince(ctx context.Context, tenantID string, since time.Time) (int, error)

	SetFlagged(ctx context.Context, id string, flagged bool) error
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error
}
