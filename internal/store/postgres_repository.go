/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to events, categories, candidates, vote bundles, promo codes, payments,
 * and votes.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/votely/voting-service/internal/domain"
)

var (
	ErrEventNotFound           = errors.New("event not found")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrCandidateNotFound       = errors.New("candidate not found")
	ErrVoteBundleNotFound      = errors.New("vote bundle not found")
	ErrPromoCodeNotFound       = errors.New("promo code not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentAlreadyRedeemed  = errors.New("payment already redeemed")
	ErrPromoUsageLimitExceeded = errors.New("promo code usage limit exceeded")
	ErrDuplicateReferenceCode  = errors.New("candidate reference code already exists")
	ErrDuplicatePromoCode      = errors.New("promo code already exists")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateEvent inserts a new voting event.
func (r *PostgresRepository) CreateEvent(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, name, starts_at, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query, event.ID, event.Name, event.StartsAt, event.EndsAt).Scan(&event.CreatedAt)
}

// FindEventByID retrieves an event by its ID.
func (r *PostgresRepository) FindEventByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	var event domain.Event
	query := `SELECT id, name, starts_at, ends_at, created_at FROM events WHERE id = $1`
	err := r.db.QueryRow(ctx, query, eventID).Scan(&event.ID, &event.Name, &event.StartsAt, &event.EndsAt, &event.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// CreateCategory inserts a new category for an event.
func (r *PostgresRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, event_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query, category.ID, category.EventID, category.Name).Scan(&category.CreatedAt)
}

// FindCategoryByID retrieves a category by its ID.
func (r *PostgresRepository) FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*domain.Category, error) {
	var category domain.Category
	query := `SELECT id, event_id, name, created_at FROM categories WHERE id = $1`
	err := r.db.QueryRow(ctx, query, categoryID).Scan(&category.ID, &category.EventID, &category.Name, &category.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// CreateCandidate inserts a candidate record produced by nomination approval.
func (r *PostgresRepository) CreateCandidate(ctx context.Context, candidate *domain.Candidate) error {
	query := `
		INSERT INTO candidates (id, reference_code, name, event_id, category_ids)
		VALUES ($1, btrim($2), $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		candidate.ID,
		candidate.ReferenceCode,
		candidate.Name,
		candidate.EventID,
		candidate.CategoryIDs,
	).Scan(&candidate.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateReferenceCode
	}
	return err
}

// FindCandidateByReferenceCode retrieves a candidate by its public reference code.
func (r *PostgresRepository) FindCandidateByReferenceCode(ctx context.Context, referenceCode string) (*domain.Candidate, error) {
	var candidate domain.Candidate
	query := `
		SELECT id, btrim(reference_code), name, event_id, category_ids, created_at
		FROM candidates
		WHERE lower(btrim(reference_code)) = lower(btrim($1))
	`
	err := r.db.QueryRow(ctx, query, referenceCode).Scan(
		&candidate.ID,
		&candidate.ReferenceCode,
		&candidate.Name,
		&candidate.EventID,
		&candidate.CategoryIDs,
		&candidate.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

// AddCandidateToCategory appends a category to a candidate's membership set.
// The array_append is guarded so repeated nominations into the same category
// do not duplicate the membership.
func (r *PostgresRepository) AddCandidateToCategory(ctx context.Context, candidateID, categoryID uuid.UUID) error {
	query := `
		UPDATE candidates
		SET category_ids = array_append(category_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY(category_ids))
	`
	_, err := r.db.Exec(ctx, query, candidateID, categoryID)
	return err
}

// CreateVoteBundle inserts a new vote bundle.
func (r *PostgresRepository) CreateVoteBundle(ctx context.Context, bundle *domain.VoteBundle) error {
	query := `
		INSERT INTO vote_bundles (id, event_id, category_ids, name, price_per_vote, votes_in_bundle, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		bundle.ID,
		bundle.EventID,
		bundle.CategoryIDs,
		bundle.Name,
		bundle.PricePerVote,
		bundle.VotesInBundle,
		bundle.Active,
	).Scan(&bundle.CreatedAt)
}

// FindVoteBundleByID retrieves a vote bundle by its ID.
func (r *PostgresRepository) FindVoteBundleByID(ctx context.Context, bundleID uuid.UUID) (*domain.VoteBundle, error) {
	var bundle domain.VoteBundle
	query := `
		SELECT id, event_id, category_ids, name, price_per_vote, votes_in_bundle, active, created_at
		FROM vote_bundles
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, bundleID).Scan(
		&bundle.ID,
		&bundle.EventID,
		&bundle.CategoryIDs,
		&bundle.Name,
		&bundle.PricePerVote,
		&bundle.VotesInBundle,
		&bundle.Active,
		&bundle.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrVoteBundleNotFound
		}
		return nil, err
	}
	return &bundle, nil
}

// ListVoteBundlesByEvent retrieves all vote bundles configured for an event.
func (r *PostgresRepository) ListVoteBundlesByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.VoteBundle, error) {
	query := `
		SELECT id, event_id, category_ids, name, price_per_vote, votes_in_bundle, active, created_at
		FROM vote_bundles
		WHERE event_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bundles []domain.VoteBundle
	for rows.Next() {
		var bundle domain.VoteBundle
		if err := rows.Scan(
			&bundle.ID,
			&bundle.EventID,
			&bundle.CategoryIDs,
			&bundle.Name,
			&bundle.PricePerVote,
			&bundle.VotesInBundle,
			&bundle.Active,
			&bundle.CreatedAt,
		); err != nil {
			return nil, err
		}
		bundles = append(bundles, bundle)
	}
	return bundles, rows.Err()
}

// CreatePromoCode inserts a new promo code.
func (r *PostgresRepository) CreatePromoCode(ctx context.Context, promo *domain.PromoCode) error {
	query := `
		INSERT INTO promo_codes (id, code, discount, applicable_bundle_ids, expiration_date, usage_limit, used_count, active)
		VALUES ($1, upper(btrim($2)), $3, $4, $5, $6, 0, $7)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Code,
		promo.Discount,
		promo.ApplicableBundleIDs,
		promo.ExpirationDate,
		promo.UsageLimit,
		promo.Active,
	).Scan(&promo.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePromoCode
	}
	return err
}

// FindPromoCodeByCode retrieves a promo code by its code string, case-insensitively.
func (r *PostgresRepository) FindPromoCodeByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	query := `
		SELECT id, code, discount, applicable_bundle_ids, expiration_date, usage_limit, used_count, active, created_at
		FROM promo_codes
		WHERE upper(btrim(code)) = upper(btrim($1))
	`
	err := r.db.QueryRow(ctx, query, code).Scan(
		&promo.ID,
		&promo.Code,
		&promo.Discount,
		&promo.ApplicableBundleIDs,
		&promo.ExpirationDate,
		&promo.UsageLimit,
		&promo.UsedCount,
		&promo.Active,
		&promo.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPromoCodeNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// ListPromoCodes retrieves all promo codes.
func (r *PostgresRepository) ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	query := `
		SELECT id, code, discount, applicable_bundle_ids, expiration_date, usage_limit, used_count, active, created_at
		FROM promo_codes
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []domain.PromoCode
	for rows.Next() {
		var promo domain.PromoCode
		if err := rows.Scan(
			&promo.ID,
			&promo.Code,
			&promo.Discount,
			&promo.ApplicableBundleIDs,
			&promo.ExpirationDate,
			&promo.UsageLimit,
			&promo.UsedCount,
			&promo.Active,
			&promo.CreatedAt,
		); err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}
	return promos, rows.Err()
}

// FindPaymentByReference retrieves a payment by its gateway reference.
func (r *PostgresRepository) FindPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	var payment domain.Payment
	query := `
		SELECT reference, amount, status, metadata, redeemed, redeemed_at, redeemed_by, created_at, updated_at
		FROM payments
		WHERE reference = btrim($1)
	`
	err := r.db.QueryRow(ctx, query, reference).Scan(
		&payment.Reference,
		&payment.Amount,
		&payment.Status,
		&payment.Metadata,
		&payment.Redeemed,
		&payment.RedeemedAt,
		&payment.RedeemedBy,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// UpsertPaymentFromGateway stores or refreshes a gateway payment record. The
// redeemed flag is never touched here: only the redemption commit may flip it.
func (r *PostgresRepository) UpsertPaymentFromGateway(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (reference, amount, status, metadata)
		VALUES (btrim($1), $2, $3, $4)
		ON CONFLICT (reference) DO UPDATE SET
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, payment.Reference, payment.Amount, payment.Status, payment.Metadata)
	if err != nil {
		return fmt.Errorf("upsert payment %s: %w", payment.Reference, err)
	}
	return nil
}

// TallyVotes sums weighted votes per candidate for one event/category pair.
func (r *PostgresRepository) TallyVotes(ctx context.Context, eventID, categoryID uuid.UUID) ([]domain.CandidateTally, error) {
	query := `
		SELECT v.candidate_id, c.name, COALESCE(SUM(v.number_of_votes), 0)
		FROM votes v
		JOIN candidates c ON c.id = v.candidate_id
		WHERE v.event_id = $1 AND v.category_id = $2
		GROUP BY v.candidate_id, c.name
		ORDER BY SUM(v.number_of_votes) DESC
	`
	rows, err := r.db.Query(ctx, query, eventID, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tallies []domain.CandidateTally
	for rows.Next() {
		var tally domain.CandidateTally
		if err := rows.Scan(&tally.CandidateID, &tally.CandidateName, &tally.TotalVotes); err != nil {
			return nil, err
		}
		tallies = append(tallies, tally)
	}
	return tallies, rows.Err()
}

// FindVotesByCandidate lists vote records for a candidate, newest first.
func (r *PostgresRepository) FindVotesByCandidate(ctx context.Context, candidateID uuid.UUID, limit, offset int) ([]domain.Vote, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT id, candidate_id, event_id, category_id, number_of_votes, voter_ip, payment_reference, vote_bundle_ids, created_at
		FROM votes
		WHERE candidate_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, candidateID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var vote domain.Vote
		if err := rows.Scan(
			&vote.ID,
			&vote.CandidateID,
			&vote.EventID,
			&vote.CategoryID,
			&vote.NumberOfVotes,
			&vote.VoterIP,
			&vote.PaymentReference,
			&vote.VoteBundleIDs,
			&vote.CreatedAt,
		); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}
