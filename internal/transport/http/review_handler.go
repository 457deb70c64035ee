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

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cruxhq/crux/internal/review"
	"github.com/cruxhq/crux/internal/tenant"
	"github.com/go-chi/chi/v5"
)

// GetPublicForm returns the review form customization for a tenant. This
// is the anonymous endpoint the public form renders from.
func (h *Handler) GetPublicForm(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	tn, err := h.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	if !tn.IsActive() {
		respondError(w, http.StatusForbidden, "this business is not accepting reviews")
		return
	}

	settings, err := h.tenants.GetSettings(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load form")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenant_id":    tn.ID,
		"tenant_name":  tn.Name,
		"form_title":   settings.FormTitle,
		"form_message": settings.FormMessage,
		"accent_color": settings.AccentColor,
	})
}

// SubmitReview accepts an anonymous public review for a tenant
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var params review.SubmitParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rv, err := h.reviews.Submit(r.Context(), chi.URLParam(r, "tenantID"), params)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrMissingCustomer):
			respondError(w, http.StatusBadRequest, "customer name is required")
		case errors.Is(err, review.ErrInvalidRating):
			respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		case errors.Is(err, review.ErrTenantInactive):
			respondError(w, http.StatusForbidden, "this business is not accepting reviews")
		case errors.Is(err, review.ErrPlanLimitReached):
			respondError(w, http.StatusTooManyRequests, "this business has reached its monthly review limit")
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, "tenant not found")
		default:
			respondError(w, http.StatusInternalServerError, "failed to submit review")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"id":      rv.ID,
		"message": "thank you for your review",
	})
}

// ListReviews lists the resolved tenant's reviews. Live reviews by
// default; archived=true switches to the archive.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()

	filter := review.ListFilter{
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	}
	if v, err := strconv.ParseBool(q.Get("flagged")); err == nil {
		filter.Flagged = &v
	}
	if v, err := strconv.ParseBool(q.Get("archived")); err == nil {
		filter.Archived = &v
	}

	reviews, err := h.reviews.List(r.Context(), GetTenantID(r.Context()), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"reviews": reviews,
	})
}

// GetReview returns a single review within the resolved tenant
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.reviews.Get(r.Context(), chi.URLParam(r, "reviewID"), GetTenantID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "review not found")
		return
	}

	respondJSON(w, http.StatusOK, rv)
}

// FlagReview marks a review for follow-up
func (h *Handler) FlagReview(w http.ResponseWriter, r *http.Request) {
	h.setReviewFlag(w, r, true)
}

// UnflagReview clears the follow-up flag
func (h *Handler) UnflagReview(w http.ResponseWriter, r *http.Request) {
	h.setReviewFlag(w, r, false)
}

func (h *Handler) setReviewFlag(w http.ResponseWriter, r *http.Request, flagged bool) {
	rv, err := h.reviews.SetFlagged(r.Context(),
		chi.URLParam(r, "reviewID"), GetTenantID(r.Context()), flagged, GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "review not found")
		return
	}

	respondJSON(w, http.StatusOK, rv)
}

// ArchiveReview moves a review out of the live list
func (h *Handler) ArchiveReview(w http.ResponseWriter, r *http.Request) {
	h.setReviewArchived(w, r, true)
}

// UnarchiveReview restores an archived review
func (h *Handler) UnarchiveReview(w http.ResponseWriter, r *http.Request) {
	h.setReviewArchived(w, r, false)
}

func (h *Handler) setReviewArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	rv, err := h.reviews.SetArchived(r.Context(),
		chi.URLParam(r, "reviewID"), GetTenantID(r.Context()), archived, GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "review not found")
		return
	}

	respondJSON(w, http.StatusOK, rv)
}

// DeleteReview permanently removes a review
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	err := h.reviews.Delete(r.Context(),
		chi.URLParam(r, "reviewID"), GetTenantID(r.Context()), GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "review not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "review deleted",
	})
}
