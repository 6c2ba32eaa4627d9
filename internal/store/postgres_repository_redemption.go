package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/votely/voting-service/internal/domain"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RedeemPaymentAndRecordVote performs the redemption commit as a single
// database transaction:
//
//  1. Insert the gateway payment snapshot if the webhook consumer has not
//     stored it yet (ON CONFLICT DO NOTHING keeps an existing row untouched).
//  2. Flip redeemed false -> true with a conditional update. Zero rows
//     affected means another request redeemed the reference first, and the
//     whole commit aborts with ErrPaymentAlreadyRedeemed.
//  3. Record promo usages: an exactly-once audit row per (code, customer)
//     plus a guarded used_count increment that re-checks the usage limit.
//  4. Insert the immutable vote record.
//
// Wrapping all four writes in one transaction removes the window where a vote
// exists without its payment marked redeemed, and makes concurrent redemption
// of the same reference yield exactly one vote.
func (r *PostgresRepository) RedeemPaymentAndRecordVote(ctx context.Context, params RedeemAndRecordVoteParams) (*domain.Vote, error) {
	if params.Vote == nil {
		return nil, errors.New("vote record is required")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin redemption transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertPaymentQuery := `
		INSERT INTO payments (reference, amount, status, metadata)
		VALUES (btrim($1), $2, $3, $4)
		ON CONFLICT (reference) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertPaymentQuery,
		params.Payment.Reference,
		params.Payment.Amount,
		params.Payment.Status,
		params.Payment.Metadata,
	); err != nil {
		return nil, fmt.Errorf("store payment %s: %w", params.Payment.Reference, err)
	}

	redeemQuery := `
		UPDATE payments
		SET redeemed = TRUE, redeemed_at = NOW(), redeemed_by = $2, updated_at = NOW()
		WHERE reference = btrim($1) AND redeemed = FALSE
	`
	redeemResult, err := tx.Exec(ctx, redeemQuery, params.Payment.Reference, params.RedeemedBy)
	if err != nil {
		return nil, fmt.Errorf("redeem payment %s: %w", params.Payment.Reference, err)
	}
	if redeemResult.RowsAffected() == 0 {
		return nil, ErrPaymentAlreadyRedeemed
	}

	for _, usage := range params.PromoUsages {
		usageInsertQuery := `
			INSERT INTO promo_code_usages (promo_code_id, customer_reference, used_at)
			VALUES ($1, btrim($2), NOW())
			ON CONFLICT (promo_code_id, customer_reference) DO NOTHING
		`
		usageResult, err := tx.Exec(ctx, usageInsertQuery, usage.PromoCodeID, usage.CustomerReference)
		if err != nil {
			return nil, fmt.Errorf("record promo usage for %s: %w", usage.PromoCodeID, err)
		}
		if usageResult.RowsAffected() == 0 {
			// Same customer already counted against this code; do not
			// increment used_count a second time.
			continue
		}

		incrementQuery := `
			UPDATE promo_codes
			SET used_count = used_count + 1
			WHERE id = $1 AND active = TRUE AND (usage_limit IS NULL OR used_count < usage_limit)
		`
		incrementResult, err := tx.Exec(ctx, incrementQuery, usage.PromoCodeID)
		if err != nil {
			return nil, fmt.Errorf("increment promo usage for %s: %w", usage.PromoCodeID, err)
		}
		if incrementResult.RowsAffected() == 0 {
			return nil, ErrPromoUsageLimitExceeded
		}
	}

	voteInsertQuery := `
		INSERT INTO votes (id, candidate_id, event_id, category_id, number_of_votes, voter_ip, payment_reference, vote_bundle_ids)
		VALUES ($1, $2, $3, $4, $5, $6, btrim($7), $8)
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, voteInsertQuery,
		params.Vote.ID,
		params.Vote.CandidateID,
		params.Vote.EventID,
		params.Vote.CategoryID,
		params.Vote.NumberOfVotes,
		params.Vote.VoterIP,
		params.Vote.PaymentReference,
		params.Vote.VoteBundleIDs,
	).Scan(&params.Vote.CreatedAt); err != nil {
		return nil, fmt.Errorf("record vote: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redemption transaction: %w", err)
	}
	return params.Vote, nil
}
