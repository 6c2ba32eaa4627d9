/**
 * @description
 * This file implements the vote-by-payment reconciliation workflow: the
 * validation pipeline that turns an externally verified payment into a
 * weighted vote record. Both entry points share the same stages:
 *
 *   identity chain -> payment verification -> metadata match -> pricing
 *     -> promo discount -> amount reconciliation -> transactional commit
 *
 * `CastVote` serves the public cast endpoint (selection in the request,
 * order-level promo code in payment metadata). `ReconcileManualPayment`
 * serves the admin endpoint (selection and per-line discount codes carried
 * entirely inside the payment's metadata).
 *
 * Every stage fails fast with a distinguishable error; nothing is retried.
 * The commit is a single database transaction, so a payment is redeemed at
 * most once and no vote can exist without its payment marked redeemed.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
	"github.com/votely/voting-service/pkg/gatewayclient"
)

// CastVote validates and commits a vote purchase against a verified gateway
// payment. voterIP identifies the caller for rate limiting and provenance.
func (s *Service) CastVote(ctx context.Context, req domain.CastVoteRequest, voterIP string) (*domain.Vote, error) {
	if err := s.consumeCastRateLimit(ctx, voterIP); err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(req.PaymentReferenceCode)
	if reference == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrPaymentNotVerified)
	}
	lines, err := normalizeSelection(req.Vote)
	if err != nil {
		return nil, err
	}

	candidate, err := s.validateIdentityChain(ctx, req.CandidateReferenceCode, req.EventID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	verification, err := s.verifyPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	// When the gateway recorded a bundle selection at charge time, the
	// caller-supplied selection must structurally match it.
	recordedSelection, hasRecorded, err := selectionFromMetadata(verification.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVoteMetadataMismatch, err)
	}
	if hasRecorded && !selectionsEqual(req.Vote, recordedSelection) {
		return nil, ErrVoteMetadataMismatch
	}

	pricing, err := s.resolvePricing(ctx, req.EventID, req.CategoryID, lines)
	if err != nil {
		return nil, err
	}

	expectedAmount := pricing.totalAmount
	var promoUsages []store.PromoUsageParams
	if code := discountCodeFromMetadata(verification.Metadata); code != "" {
		discounted, promo, err := s.applyPromoDiscount(ctx, code, pricing.totalAmount, pricing.bundleIDs)
		if err != nil {
			return nil, err
		}
		expectedAmount = discounted
		promoUsages = append(promoUsages, store.PromoUsageParams{
			PromoCodeID:       promo.ID,
			CustomerReference: promoCustomerReference(voterIP, reference),
		})
	}

	if err := reconcileAmount(verification.Amount, expectedAmount, s.amountTolerance); err != nil {
		return nil, err
	}

	vote := &domain.Vote{
		ID:               uuid.New(),
		CandidateID:      candidate.ID,
		EventID:          req.EventID,
		CategoryID:       req.CategoryID,
		NumberOfVotes:    pricing.totalVotes,
		VoterIP:          voterIP,
		PaymentReference: reference,
		VoteBundleIDs:    pricing.bundleIDs,
	}
	committed, err := s.repo.RedeemPaymentAndRecordVote(ctx, store.RedeemAndRecordVoteParams{
		Payment: domain.Payment{
			Reference: reference,
			Amount:    verification.Amount,
			Status:    verification.Status,
			Metadata:  verification.Metadata,
		},
		RedeemedBy:  promoCustomerReference(voterIP, reference),
		Vote:        vote,
		PromoUsages: promoUsages,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=service flow=cast_vote outcome=committed vote_id=%s candidate_id=%s votes=%d payment_reference=%s amount=%d",
		committed.ID, committed.CandidateID, committed.NumberOfVotes, reference, verification.Amount)
	s.invalidateTallyCache(ctx, req.EventID, req.CategoryID)
	s.publishVoteRecorded(ctx, committed, verification.Amount)
	return committed, nil
}

// ReconcileManualPayment redeems a gateway payment whose bundle selection and
// per-line discount codes were recorded in the payment's own metadata. Used by
// operators to settle payments whose cast request never completed.
func (s *Service) ReconcileManualPayment(ctx context.Context, req domain.ManualReconcileRequest, operator string) (*domain.Vote, error) {
	reference := strings.TrimSpace(req.PaymentReferenceCode)
	if reference == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrPaymentNotVerified)
	}

	// A missing local mirror is expected here: manual reconciliation settles
	// payments the webhook consumer never saw, and the commit inserts the row.
	payment, err := s.repo.FindPaymentByReference(ctx, reference)
	if err != nil && !errors.Is(err, store.ErrPaymentNotFound) {
		return nil, err
	}
	if payment != nil && payment.Redeemed {
		return nil, store.ErrPaymentAlreadyRedeemed
	}

	verification, err := s.verifyPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	candidate, err := s.validateIdentityChain(ctx, req.CandidateReferenceCode, req.EventID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	// The locally mirrored metadata is authoritative for the selection; fall
	// back to the verifier's copy for payments the webhook consumer missed.
	var metadata map[string]interface{}
	if payment != nil {
		metadata = payment.Metadata
	}
	metadataLines, hasLines, err := bundleLinesFromMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundleSelection, err)
	}
	if !hasLines {
		metadata = verification.Metadata
		metadataLines, hasLines, err = bundleLinesFromMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBundleSelection, err)
		}
	}
	if !hasLines || len(metadataLines) == 0 {
		return nil, fmt.Errorf("%w: payment metadata carries no bundle selection", ErrInvalidBundleSelection)
	}

	lines := make([]bundleLine, 0, len(metadataLines))
	for _, metadataLine := range metadataLines {
		bundleID, err := uuid.Parse(strings.TrimSpace(metadataLine.BundleID))
		if err != nil {
			return nil, fmt.Errorf("%w: bad bundle id %q", ErrInvalidBundleSelection, metadataLine.BundleID)
		}
		if metadataLine.Quantity < 1 || metadataLine.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity %d for bundle %s", ErrInvalidBundleSelection, metadataLine.Quantity, bundleID)
		}
		lines = append(lines, bundleLine{
			bundleID:     bundleID,
			quantity:     metadataLine.Quantity,
			discountCode: metadataLine.DiscountCode,
		})
	}

	pricing, err := s.resolvePricing(ctx, req.EventID, req.CategoryID, lines)
	if err != nil {
		return nil, err
	}

	// Per-line promo application: each line's discount code is validated
	// against that line's bundle and applied to that line's amount only.
	var expectedAmount int64
	var promoUsages []store.PromoUsageParams
	seenPromoIDs := make(map[uuid.UUID]bool)
	for _, line := range pricing.lines {
		if line.discountCode == "" {
			expectedAmount += line.amount
			continue
		}
		discounted, promo, err := s.applyPromoDiscount(ctx, line.discountCode, line.amount, []uuid.UUID{line.bundleID})
		if err != nil {
			return nil, err
		}
		expectedAmount += discounted
		if !seenPromoIDs[promo.ID] {
			seenPromoIDs[promo.ID] = true
			promoUsages = append(promoUsages, store.PromoUsageParams{
				PromoCodeID:       promo.ID,
				CustomerReference: reference,
			})
		}
	}

	if err := reconcileAmount(verification.Amount, expectedAmount, s.amountTolerance); err != nil {
		return nil, err
	}

	vote := &domain.Vote{
		ID:               uuid.New(),
		CandidateID:      candidate.ID,
		EventID:          req.EventID,
		CategoryID:       req.CategoryID,
		NumberOfVotes:    pricing.totalVotes,
		PaymentReference: reference,
		VoteBundleIDs:    pricing.bundleIDs,
	}
	committed, err := s.repo.RedeemPaymentAndRecordVote(ctx, store.RedeemAndRecordVoteParams{
		Payment: domain.Payment{
			Reference: reference,
			Amount:    verification.Amount,
			Status:    verification.Status,
			Metadata:  metadata,
		},
		RedeemedBy:  operator,
		Vote:        vote,
		PromoUsages: promoUsages,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=service flow=manual_reconcile outcome=committed vote_id=%s candidate_id=%s votes=%d payment_reference=%s operator=%s",
		committed.ID, committed.CandidateID, committed.NumberOfVotes, reference, operator)
	s.invalidateTallyCache(ctx, req.EventID, req.CategoryID)
	s.publishVoteRecorded(ctx, committed, verification.Amount)
	return committed, nil
}

// validateIdentityChain checks candidate, event, and category existence and
// their relationships: candidate.event_id == event.id and
// category.id in candidate.category_ids.
func (s *Service) validateIdentityChain(ctx context.Context, candidateReferenceCode string, eventID, categoryID uuid.UUID) (*domain.Candidate, error) {
	candidate, err := s.repo.FindCandidateByReferenceCode(ctx, candidateReferenceCode)
	if err != nil {
		return nil, err
	}
	event, err := s.repo.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if candidate.EventID != event.ID {
		return nil, ErrCandidateNotInEvent
	}
	if category.EventID != event.ID {
		return nil, ErrCategoryNotInEvent
	}
	if !containsUUID(candidate.CategoryIDs, category.ID) {
		return nil, ErrCandidateNotInCategory
	}
	return candidate, nil
}

func (s *Service) verifyPayment(ctx context.Context, reference string) (*gatewayclient.VerificationResult, error) {
	if s.gateway == nil {
		return nil, errors.New("payment verifier is not configured")
	}
	verification, err := s.gateway.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", reference, err)
	}
	if !verification.Verified {
		reason := strings.TrimSpace(verification.Reason)
		if reason == "" {
			reason = "gateway rejected the reference"
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotVerified, reason)
	}
	if verification.Redeemed {
		return nil, store.ErrPaymentAlreadyRedeemed
	}
	return verification, nil
}

func (s *Service) consumeCastRateLimit(ctx context.Context, voterIP string) error {
	if s.rateLimiter == nil || s.castRateLimit <= 0 || strings.TrimSpace(voterIP) == "" {
		return nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, rateLimitScopeVoteCast, voterIP, s.castRateLimit, rateLimitWindowVoteCast)
	if err != nil {
		// Fail open: a broken limiter must not block voting.
		log.Printf("level=warn component=service flow=cast_vote msg=\"rate limiter unavailable; allowing request\" voter_ip=%s err=%v", voterIP, err)
		return nil
	}
	if count > s.castRateLimit {
		return &RateLimitedError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

// reconcileAmount accepts a gap of at most tolerance minor units between the
// verified payment amount and the computed expected charge, to absorb
// discount rounding.
func reconcileAmount(actual, expected, tolerance int64) error {
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		return &AmountMismatchError{Actual: actual, Expected: expected}
	}
	return nil
}

// promoCustomerReference picks the identifier recorded against a promo code's
// usage audit: the voter IP when known, otherwise the payment reference.
func promoCustomerReference(voterIP, paymentReference string) string {
	if trimmed := strings.TrimSpace(voterIP); trimmed != "" {
		return trimmed
	}
	return paymentReference
}
