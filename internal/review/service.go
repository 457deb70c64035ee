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
	"fmt"
	"strings"
	"time"

	"github.com/cruxhq/crux/internal/audit"
	"github.com/cruxhq/crux/internal/plan"
	"github.com/cruxhq/crux/internal/tenant"
	"github.com/google/uuid"
)

// TenantDirectory is the slice of the tenant service the review flow
// needs: resolving the tenant behind a public form.
type TenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
}

// Service provides review business logic
type Service struct {
	repo        Repository
	tenants     TenantDirectory
	broker      *Broker
	auditLogger audit.Logger
}

// NewService creates a new review service
func NewService(repo Repository, tenants TenantDirectory, broker *Broker, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		tenants:     tenants,
		broker:      broker,
		auditLogger: auditLogger,
	}
}

// SubmitParams is the public review form payload.
type SubmitParams struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Rating        int    `json:"rating"`
	Text          string `json:"text"`
}

// monthStart returns the beginning of the current calendar month in UTC.
// Plan limits are evaluated per calendar month.
func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Submit records an anonymous review for a tenant. The tenant must be
// active and under its plan's monthly review limit.
func (s *Service) Submit(ctx context.Context, tenantID string, params SubmitParams) (*Review, error) {
	if strings.TrimSpace(params.CustomerName) == "" {
		return nil, ErrMissingCustomer
	}
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}

	tn, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tn.IsActive() {
		return nil, ErrTenantInactive
	}

	usage, err := s.Usage(ctx, tn)
	if err != nil {
		return nil, err
	}
	if !usage.Allowed {
		return nil, ErrPlanLimitReached
	}

	now := time.Now()
	r := &Review{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		CustomerName:  strings.TrimSpace(params.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(params.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(params.CustomerPhone),
		Rating:        params.Rating,
		Text:          params.Text,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeReviewSubmitted,
		TenantID: tenantID,
		ActorID:  audit.ActorSystem,
		Resource: "review",
		Metadata: map[string]any{"review_id": r.ID, "rating": r.Rating},
	})

	s.broker.Publish(tenantID, Change{Kind: ChangeCreated, Review: r})

	return r, nil
}

// Usage evaluates the tenant's current month against its plan tier.
func (s *Service) Usage(ctx context.Context, tn *tenant.Tenant) (plan.Usage, error) {
	count, err := s.repo.CountByTenantSince(ctx, tn.ID, monthStart(time.Now()))
	if err != nil {
		return plan.Usage{}, fmt.Errorf("failed to count reviews: %w", err)
	}
	return plan.Evaluate(count, tn.Plan)
}

// UsageByTenantID resolves the tenant and evaluates its plan usage.
func (s *Service) UsageByTenantID(ctx context.Context, tenantID string) (plan.Usage, error) {
	tn, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return plan.Usage{}, err
	}
	return s.Usage(ctx, tn)
}

// Get returns a review scoped to a tenant. A review belonging to another
// tenant reads as not found.
func (s *Service) Get(ctx context.Context, id, tenantID string) (*Review, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.TenantID != tenantID {
		return nil, ErrReviewNotFound
	}
	return r, nil
}

// List returns a tenant's reviews, live ones by default.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Review, error) {
	if filter.Archived == nil {
		live := false
		filter.Archived = &live
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	return s.repo.ListByTenant(ctx, tenantID, filter)
}

// SetFlagged flags or unflags a review for follow-up.
func (s *Service) SetFlagged(ctx context.Context, id, tenantID string, flagged bool, actorID string) (*Review, error) {
	r, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if r.Flagged != flagged {
		if err := s.repo.SetFlagged(ctx, id, flagged); err != nil {
			return nil, err
		}
		r.Flagged = flagged
		r.UpdatedAt = time.Now()

		if flagged {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeReviewFlagged,
				TenantID: tenantID,
				ActorID:  actorID,
				Resource: "review",
				Metadata: map[string]any{"review_id": id},
			})
		}
	}

	s.broker.Publish(tenantID, Change{Kind: ChangeUpdated, Review: r})
	return r, nil
}

// SetArchived archives or restores a review.
func (s *Service) SetArchived(ctx context.Context, id, tenantID string, archived bool, actorID string) (*Review, error) {
	r, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if r.Archived != archived {
		if err := s.repo.SetArchived(ctx, id, archived); err != nil {
			return nil, err
		}
		r.Archived = archived
		r.UpdatedAt = time.Now()
	}

	s.broker.Publish(tenantID, Change{Kind: ChangeUpdated, Review: r})
	return r, nil
}

// Delete permanently removes a review.
func (s *Service) Delete(ctx context.Context, id, tenantID, actorID string) error {
	r, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeReviewDeleted,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "review",
		Metadata: map[string]any{"review_id": id, "rating": r.Rating},
	})

	s.broker.Publish(tenantID, Change{Kind: ChangeDeleted, Review: &Review{ID: id, TenantID: tenantID}})
	return nil
}
