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
	"strings"
	"time"

	"github.com/cruxhq/crux/internal/review"
	"github.com/jackc/pgx/v5"
)

// ReviewRepository implements review.Repository
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create creates a new review
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO reviews (
			id, tenant_id, customer_name, customer_email, customer_phone,
			rating, review_text, flagged, archived, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		rv.ID, rv.TenantID, rv.CustomerName, rv.CustomerEmail, rv.CustomerPhone,
		rv.Rating, rv.Text, rv.Flagged, rv.Archived, rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

const reviewColumns = `id, tenant_id, customer_name, customer_email, customer_phone,
	rating, review_text, flagged, archived, created_at, updated_at`

func scanReview(row pgx.Row) (*review.Review, error) {
	var rv review.Review

	err := row.Scan(
		&rv.ID, &rv.TenantID, &rv.CustomerName, &rv.CustomerEmail, &rv.CustomerPhone,
		&rv.Rating, &rv.Text, &rv.Flagged, &rv.Archived, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, review.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}

	return &rv, nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*review.Review, error) {
	return scanReview(r.db.pool.QueryRow(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE id = $1
	`, id))
}

// ListByTenant retrieves a tenant's reviews, newest first
func (r *ReviewRepository) ListByTenant(ctx context.Context, tenantID string, filter review.ListFilter) ([]*review.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE tenant_id = $1`
	args := []any{tenantID}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(customer_name) LIKE $%d OR LOWER(review_text) LIKE $%d)", len(args), len(args))
	}
	if filter.Flagged != nil {
		args = append(args, *filter.Flagged)
		query += fmt.Sprintf(" AND flagged = $%d", len(args))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		query += fmt.Sprintf(" AND archived = $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*review.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}

	return reviews, rows.Err()
}

// CountByTenantSince counts a tenant's reviews created at or after since
func (r *ReviewRepository) CountByTenantSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM reviews
		WHERE tenant_id = $1 AND created_at >= $2
	`, tenantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// SetFlagged updates the flagged marker
func (r *ReviewRepository) SetFlagged(ctx context.Context, id string, flagged bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE reviews SET flagged = $2, updated_at = NOW()
		WHERE id = $1
	`, id, flagged)
	if err != nil {
		return fmt.Errorf("failed to update review flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return review.ErrReviewNotFound
	}

	return nil
}

// SetArchived updates the archived marker
func (r *ReviewRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE reviews SET archived = $2, updated_at = NOW()
		WHERE id = $1
	`, id, archived)
	if err != nil {
		return fmt.Errorf("failed to update review archive state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return review.ErrReviewNotFound
	}

	return nil
}

// Delete permanently removes a review
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM reviews WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	if result.RowsAffected() == 0 {
		return review.ErrReviewNotFound
	}

	return nil
}
