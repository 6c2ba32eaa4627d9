package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
)

var (
	ErrPromoNotFound      = errors.New("promo code not found or inactive")
	ErrPromoNotApplicable = errors.New("promo code is not applicable to the selected bundles")
	ErrPromoExpired       = errors.New("promo code has expired")
	ErrPromoExhausted     = errors.New("promo code usage limit reached")
)

// applyPromoDiscount validates a promo code against the target bundles and
// returns the discounted charge plus the validated promo record. An empty code
// is a no-op: the amount is returned unchanged with a nil promo.
//
// Validation order follows the redemption pipeline: lookup/active,
// applicability, expiry, usage limit. The usage side effect is NOT recorded
// here; callers collect a store.PromoUsageParams and persist it inside the
// redemption commit so a rejected or retried request never inflates the usage
// count.
func (s *Service) applyPromoDiscount(ctx context.Context, code string, amount int64, bundleIDs []uuid.UUID) (int64, *domain.PromoCode, error) {
	if code == "" {
		return amount, nil, nil
	}

	promo, err := s.repo.FindPromoCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrPromoCodeNotFound) {
			return 0, nil, ErrPromoNotFound
		}
		return 0, nil, fmt.Errorf("fetch promo code %q: %w", code, err)
	}
	if !promo.Active {
		return 0, nil, ErrPromoNotFound
	}

	for _, bundleID := range bundleIDs {
		if !containsUUID(promo.ApplicableBundleIDs, bundleID) {
			return 0, nil, fmt.Errorf("%w: bundle %s", ErrPromoNotApplicable, bundleID)
		}
	}
	if promo.ExpirationDate != nil && promo.ExpirationDate.Before(time.Now().UTC()) {
		return 0, nil, ErrPromoExpired
	}
	if promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit {
		return 0, nil, ErrPromoExhausted
	}

	return discountedAmount(amount, promo.Discount), promo, nil
}

// discountedAmount computes round(amount - amount*discount/100) in minor units.
func discountedAmount(amount int64, discount int) int64 {
	return int64(math.Round(float64(amount) - float64(amount)*float64(discount)/100.0))
}
