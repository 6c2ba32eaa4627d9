/**
 * @description
 * This file defines the core domain models for the voting-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit, which avoids floating-point inaccuracies with financial data. This is
 *   the single currency convention of the service; no major-unit comparisons exist.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a voting event with a time window.
// Read-only in the vote-casting workflow.
type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	EndsAt    time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Category represents an award category within an event.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	EventID   uuid.UUID `json:"event_id" db:"event_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Candidate represents a nominee that can receive votes. A candidate is created
// on nomination approval and gains category memberships as it is nominated into
// additional categories. It is never hard-deleted by the voting flow.
type Candidate struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	ReferenceCode string      `json:"reference_code" db:"reference_code"`
	Name          string      `json:"name" db:"name"`
	EventID       uuid.UUID   `json:"event_id" db:"event_id"`
	CategoryIDs   []uuid.UUID `json:"category_ids" db:"category_ids"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// VoteBundle is the purchasable pricing unit: it defines how many votes a
// payment buys and at what price per vote.
type VoteBundle struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	EventID       uuid.UUID   `json:"event_id" db:"event_id"`
	CategoryIDs   []uuid.UUID `json:"category_ids" db:"category_ids"`
	Name          string      `json:"name" db:"name"`
	PricePerVote  int64       `json:"price_per_vote" db:"price_per_vote"` // minor units
	VotesInBundle int64       `json:"votes_in_bundle" db:"votes_in_bundle"`
	Active        bool        `json:"active" db:"active"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// PromoCode is a discount token limited by expiry, usage count, and bundle
// applicability. UsedCount is maintained by a guarded increment in the store;
// the append-only usage audit lives in promo_code_usages.
type PromoCode struct {
	ID                  uuid.UUID   `json:"id" db:"id"`
	Code                string      `json:"code" db:"code"`
	Discount            int         `json:"discount" db:"discount"` // percentage, 0-100
	ApplicableBundleIDs []uuid.UUID `json:"applicable_bundle_ids" db:"applicable_bundle_ids"`
	ExpirationDate      *time.Time  `json:"expiration_date,omitempty" db:"expiration_date"`
	UsageLimit          *int        `json:"usage_limit,omitempty" db:"usage_limit"` // nil = unlimited
	UsedCount           int         `json:"used_count" db:"used_count"`
	Active              bool        `json:"active" db:"active"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
}

// Payment mirrors an externally verified gateway payment. The identity is the
// gateway-assigned reference. Redemption transitions redeemed false -> true
// exactly once; the store enforces this with a conditional update.
type Payment struct {
	Reference  string                 `json:"reference" db:"reference"`
	Amount     int64                  `json:"amount" db:"amount"` // minor units
	Status     string                 `json:"status" db:"status"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Redeemed   bool                   `json:"redeemed" db:"redeemed"`
	RedeemedAt *time.Time             `json:"redeemed_at,omitempty" db:"redeemed_at"`
	RedeemedBy *string                `json:"redeemed_by,omitempty" db:"redeemed_by"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}

// Vote is the weighted vote record created by a successful reconciliation.
// Immutable once created.
type Vote struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	CandidateID      uuid.UUID   `json:"candidate_id" db:"candidate_id"`
	EventID          uuid.UUID   `json:"event_id" db:"event_id"`
	CategoryID       uuid.UUID   `json:"category_id" db:"category_id"`
	NumberOfVotes    int64       `json:"number_of_votes" db:"number_of_votes"`
	VoterIP          string      `json:"voter_ip" db:"voter_ip"`
	PaymentReference string      `json:"payment_reference" db:"payment_reference"`
	VoteBundleIDs    []uuid.UUID `json:"vote_bundle_ids" db:"vote_bundle_ids"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// CastVoteRequest is the DTO for the public vote-casting endpoint. The bundle
// selection maps vote bundle id to purchased quantity; the promo code, if any,
// is carried at order level inside the payment's metadata.
type CastVoteRequest struct {
	CandidateReferenceCode string           `json:"candidate_reference_code"`
	EventID                uuid.UUID        `json:"event_id"`
	CategoryID             uuid.UUID        `json:"category_id"`
	Vote                   map[string]int64 `json:"vote"`
	PaymentReferenceCode   string           `json:"payment_reference_code"`
}

// ManualReconcileRequest is the DTO for the admin manual reconciliation
// endpoint. The bundle selection and per-line discount codes are read from the
// payment's own metadata (metadata.bundles).
type ManualReconcileRequest struct {
	PaymentReferenceCode   string    `json:"payment_reference_code"`
	CandidateReferenceCode string    `json:"candidate_reference_code"`
	EventID                uuid.UUID `json:"event_id"`
	CategoryID             uuid.UUID `json:"category_id"`
}

// PaymentBundleLine is one line of a per-bundle purchase carried in payment
// metadata, with an optional per-line discount code.
type PaymentBundleLine struct {
	BundleID     string `json:"bundle_id"`
	Quantity     int64  `json:"quantity"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// CreateVoteBundleRequest is the admin DTO for creating a vote bundle.
type CreateVoteBundleRequest struct {
	EventID       uuid.UUID   `json:"event_id"`
	CategoryIDs   []uuid.UUID `json:"category_ids"`
	Name          string      `json:"name"`
	PricePerVote  int64       `json:"price_per_vote"`
	VotesInBundle int64       `json:"votes_in_bundle"`
	Active        bool        `json:"active"`
}

// CreatePromoCodeRequest is the admin DTO for creating a promo code.
type CreatePromoCodeRequest struct {
	Code                string      `json:"code"`
	Discount            int         `json:"discount"`
	ApplicableBundleIDs []uuid.UUID `json:"applicable_bundle_ids"`
	ExpirationDate      *time.Time  `json:"expiration_date,omitempty"`
	UsageLimit          *int        `json:"usage_limit,omitempty"`
	Active              bool        `json:"active"`
}

// CreateEventRequest is the admin DTO for creating an event.
type CreateEventRequest struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// CreateCategoryRequest is the admin DTO for creating a category.
type CreateCategoryRequest struct {
	EventID uuid.UUID `json:"event_id"`
	Name    string    `json:"name"`
}

// CreateCandidateRequest is the admin DTO for approving a nomination into a
// candidate record.
type CreateCandidateRequest struct {
	ReferenceCode string      `json:"reference_code"`
	Name          string      `json:"name"`
	EventID       uuid.UUID   `json:"event_id"`
	CategoryIDs   []uuid.UUID `json:"category_ids"`
}

// CandidateTally is one row of the per-category results view.
type CandidateTally struct {
	CandidateID   uuid.UUID `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	TotalVotes    int64     `json:"total_votes"`
}
