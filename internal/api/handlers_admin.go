/**
 * @description
 * This file contains the HTTP handlers for the admin API surface: event,
 * category, candidate, vote bundle, and promo code management, plus the
 * payment lookup used when investigating a reconciliation.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/domain, internal/store: For models and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/app"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
)

// CreateEventHandler handles admin requests to create a voting event.
func (h *VotingHandlers) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	event, err := h.service.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeAdminError(w, "create_event", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, event)
}

// CreateCategoryHandler handles admin requests to create a category.
func (h *VotingHandlers) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		h.writeAdminError(w, "create_category", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, category)
}

// CreateCandidateHandler handles admin requests to approve a nomination into a
// candidate record.
func (h *VotingHandlers) CreateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	candidate, err := h.service.CreateCandidate(r.Context(), req)
	if err != nil {
		h.writeAdminError(w, "create_candidate", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, candidate)
}

// NominateCandidateHandler adds an existing candidate to another category of
// its event.
func (h *VotingHandlers) NominateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	referenceCode := chi.URLParam(r, "referenceCode")
	categoryID, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	candidate, err := h.service.NominateCandidateIntoCategory(r.Context(), referenceCode, categoryID)
	if err != nil {
		h.writeAdminError(w, "nominate_candidate", err)
		return
	}
	h.writeJSON(w, http.StatusOK, candidate)
}

// CreateVoteBundleHandler handles admin requests to create a vote bundle.
func (h *VotingHandlers) CreateVoteBundleHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateVoteBundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	bundle, err := h.service.CreateVoteBundle(r.Context(), req)
	if err != nil {
		h.writeAdminError(w, "create_vote_bundle", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bundle)
}

// ListVoteBundlesHandler lists the bundles configured for an event.
func (h *VotingHandlers) ListVoteBundlesHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid event ID format")
		return
	}

	bundles, err := h.service.ListVoteBundles(r.Context(), eventID)
	if err != nil {
		h.writeAdminError(w, "list_vote_bundles", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"bundles": bundles})
}

// CreatePromoCodeHandler handles admin requests to create a promo code.
func (h *VotingHandlers) CreatePromoCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePromoCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	promo, err := h.service.CreatePromoCode(r.Context(), req)
	if err != nil {
		h.writeAdminError(w, "create_promo_code", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, promo)
}

// ListPromoCodesHandler lists all promo codes.
func (h *VotingHandlers) ListPromoCodesHandler(w http.ResponseWriter, r *http.Request) {
	promos, err := h.service.ListPromoCodes(r.Context())
	if err != nil {
		h.writeAdminError(w, "list_promo_codes", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"promo_codes": promos})
}

// ListCandidateVotesHandler lists the vote records behind a candidate's
// tally, newest first. Supports limit and offset query parameters.
func (h *VotingHandlers) ListCandidateVotesHandler(w http.ResponseWriter, r *http.Request) {
	candidateID, err := uuid.Parse(chi.URLParam(r, "candidateID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid candidate ID format")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	votes, err := h.service.ListCandidateVotes(r.Context(), candidateID, limit, offset)
	if err != nil {
		h.writeAdminError(w, "list_candidate_votes", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"votes": votes})
}

// GetPaymentHandler returns the locally mirrored gateway payment for a
// reference, used when investigating a stuck reconciliation.
func (h *VotingHandlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	payment, err := h.service.GetPayment(r.Context(), reference)
	if err != nil {
		h.writeAdminError(w, "get_payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, payment)
}

func (h *VotingHandlers) writeAdminError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrEventNotFound),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrCandidateNotFound),
		errors.Is(err, store.ErrVoteBundleNotFound),
		errors.Is(err, store.ErrPromoCodeNotFound),
		errors.Is(err, store.ErrPaymentNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateReferenceCode),
		errors.Is(err, store.ErrDuplicatePromoCode):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrCategoryNotInEvent):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"admin request failed\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
