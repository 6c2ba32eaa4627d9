package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/store"
)

var (
	ErrBundleNotInEvent    = errors.New("vote bundle does not belong to the event")
	ErrBundleNotInCategory = errors.New("vote bundle does not belong to the category")
	ErrBundleInactive      = errors.New("vote bundle is not active")
)

// maxLineQuantity caps the purchasable quantity per selection line. Quantities
// past this never reflect a real purchase and open the door to int64 wraps in
// the charge computation.
const maxLineQuantity = 1_000_000

// bundleLine is one normalized entry of a purchase: a bundle, the purchased
// quantity, and an optional per-line discount code (manual reconciliation only).
type bundleLine struct {
	bundleID     uuid.UUID
	quantity     int64
	discountCode string
}

// pricingLine is the priced counterpart of a bundleLine before discounts.
type pricingLine struct {
	bundleID     uuid.UUID
	quantity     int64
	votes        int64
	amount       int64
	discountCode string
}

// pricingResult aggregates a priced selection. Lines are retained so promo
// codes can be applied either once to the whole order or per line item.
type pricingResult struct {
	totalVotes  int64
	totalAmount int64
	lines       []pricingLine
	bundleIDs   []uuid.UUID
}

// normalizeSelection converts the wire-level bundle-id -> quantity mapping into
// deterministic, validated lines sorted by bundle id.
func normalizeSelection(raw map[string]int64) ([]bundleLine, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidBundleSelection
	}
	lines := make([]bundleLine, 0, len(raw))
	for rawID, quantity := range raw {
		bundleID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad bundle id %q", ErrInvalidBundleSelection, rawID)
		}
		if quantity < 1 || quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity %d for bundle %s", ErrInvalidBundleSelection, quantity, bundleID)
		}
		lines = append(lines, bundleLine{bundleID: bundleID, quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].bundleID.String() < lines[j].bundleID.String()
	})
	return lines, nil
}

// resolvePricing validates each line's bundle against the target event and
// category and accumulates vote and charge totals. Pure computation over
// fetched records; no side effects.
func (s *Service) resolvePricing(ctx context.Context, eventID, categoryID uuid.UUID, lines []bundleLine) (*pricingResult, error) {
	if len(lines) == 0 {
		return nil, ErrInvalidBundleSelection
	}

	result := &pricingResult{}
	for _, line := range lines {
		bundle, err := s.repo.FindVoteBundleByID(ctx, line.bundleID)
		if err != nil {
			if errors.Is(err, store.ErrVoteBundleNotFound) {
				return nil, fmt.Errorf("%w: %s", store.ErrVoteBundleNotFound, line.bundleID)
			}
			return nil, fmt.Errorf("fetch vote bundle %s: %w", line.bundleID, err)
		}
		if bundle.EventID != eventID {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotInEvent, bundle.ID)
		}
		if !containsUUID(bundle.CategoryIDs, categoryID) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotInCategory, bundle.ID)
		}
		if !bundle.Active {
			return nil, fmt.Errorf("%w: %s", ErrBundleInactive, bundle.ID)
		}

		votes, ok := mulInt64(bundle.VotesInBundle, line.quantity)
		if !ok {
			return nil, fmt.Errorf("%w: selection for bundle %s is too large", ErrInvalidBundleSelection, bundle.ID)
		}
		amount, ok := mulInt64(bundle.PricePerVote, votes)
		if !ok {
			return nil, fmt.Errorf("%w: selection for bundle %s is too large", ErrInvalidBundleSelection, bundle.ID)
		}
		if result.totalVotes, ok = addInt64(result.totalVotes, votes); !ok {
			return nil, fmt.Errorf("%w: selection is too large", ErrInvalidBundleSelection)
		}
		if result.totalAmount, ok = addInt64(result.totalAmount, amount); !ok {
			return nil, fmt.Errorf("%w: selection is too large", ErrInvalidBundleSelection)
		}
		result.lines = append(result.lines, pricingLine{
			bundleID:     bundle.ID,
			quantity:     line.quantity,
			votes:        votes,
			amount:       amount,
			discountCode: line.discountCode,
		})
		result.bundleIDs = append(result.bundleIDs, bundle.ID)
	}
	return result, nil
}

// mulInt64 multiplies two positive int64 values, reporting false when the
// product would wrap.
func mulInt64(a, b int64) (int64, bool) {
	if a <= 0 || b <= 0 {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}

// addInt64 adds two non-negative int64 values, reporting false on wrap.
func addInt64(a, b int64) (int64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

func containsUUID(haystack []uuid.UUID, needle uuid.UUID) bool {
	for _, id := range haystack {
		if id == needle {
			return true
		}
	}
	return false
}
