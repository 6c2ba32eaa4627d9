/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the voting-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Event, category, and candidate methods
	CreateEvent(ctx context.Context, event *domain.Event) error
	FindEventByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*domain.Category, error)
	CreateCandidate(ctx context.Context, candidate *domain.Candidate) error
	FindCandidateByReferenceCode(ctx context.Context, referenceCode string) (*domain.Candidate, error)
	AddCandidateToCategory(ctx context.Context, candidateID, categoryID uuid.UUID) error

	// Vote bundle methods
	CreateVoteBundle(ctx context.Context, bundle *domain.VoteBundle) error
	FindVoteBundleByID(ctx context.Context, bundleID uuid.UUID) (*domain.VoteBundle, error)
	ListVoteBundlesByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.VoteBundle, error)

	// Promo code methods
	CreatePromoCode(ctx context.Context, promo *domain.PromoCode) error
	FindPromoCodeByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error)

	// Payment methods
	FindPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error)
	UpsertPaymentFromGateway(ctx context.Context, payment *domain.Payment) error

	// Vote methods
	RedeemPaymentAndRecordVote(ctx context.Context, params RedeemAndRecordVoteParams) (*domain.Vote, error)
	TallyVotes(ctx context.Context, eventID, categoryID uuid.UUID) ([]domain.CandidateTally, error)
	FindVotesByCandidate(ctx context.Context, candidateID uuid.UUID, limit, offset int) ([]domain.Vote, error)
}

// PromoUsageParams records one promo application inside the commit transaction.
// The customer reference keys the exactly-once usage audit row.
type PromoUsageParams struct {
	PromoCodeID       uuid.UUID
	CustomerReference string
}

// RedeemAndRecordVoteParams carries everything the single-transaction commit
// needs: the gateway payment snapshot (inserted if the webhook consumer has not
// stored it yet), the redeemer identity, the vote to record, and any promo
// usages to persist atomically with the redemption.
type RedeemAndRecordVoteParams struct {
	Payment     domain.Payment
	RedeemedBy  string
	Vote        *domain.Vote
	PromoUsages []PromoUsageParams
}
