/**
 * @description
 * This file sets up the HTTP router for the voting-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// VotingRoutes creates and returns a new router for the voting service.
func VotingRoutes(h *VotingHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public voting endpoints. Casting is open to voters; abuse control lives
	// in the service-side rate limiter keyed by client IP.
	r.Post("/votes", h.CastVoteHandler)
	r.Get("/votes/results/{eventID}/{categoryID}", h.GetResultsHandler)

	// Group routes that require admin authentication.
	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(jwksURL))

		r.Post("/votes/manual-reconcile", h.ManualReconcileHandler)

		// Catalog management endpoints
		r.Post("/admin/events", h.CreateEventHandler)
		r.Post("/admin/categories", h.CreateCategoryHandler)
		r.Post("/admin/candidates", h.CreateCandidateHandler)
		r.Post("/admin/candidates/{referenceCode}/categories/{categoryID}", h.NominateCandidateHandler)
		r.Post("/admin/bundles", h.CreateVoteBundleHandler)
		r.Get("/admin/events/{eventID}/bundles", h.ListVoteBundlesHandler)
		r.Post("/admin/promo-codes", h.CreatePromoCodeHandler)
		r.Get("/admin/promo-codes", h.ListPromoCodesHandler)
		r.Get("/admin/candidates/{candidateID}/votes", h.ListCandidateVotesHandler)
		r.Get("/admin/payments/{reference}", h.GetPaymentHandler)
	})

	return r
}
