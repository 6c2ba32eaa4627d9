package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
)

type pricingRepoStub struct {
	store.Repository

	bundles map[uuid.UUID]*domain.VoteBundle
}

func (s *pricingRepoStub) FindVoteBundleByID(ctx context.Context, bundleID uuid.UUID) (*domain.VoteBundle, error) {
	bundle, ok := s.bundles[bundleID]
	if !ok {
		return nil, store.ErrVoteBundleNotFound
	}
	return bundle, nil
}

func TestNormalizeSelection(t *testing.T) {
	idA := uuid.New()
	idB := uuid.New()

	t.Run("empty selection rejected", func(t *testing.T) {
		if _, err := normalizeSelection(nil); !errors.Is(err, ErrInvalidBundleSelection) {
			t.Fatalf("expected ErrInvalidBundleSelection, got %v", err)
		}
	})

	t.Run("malformed bundle id rejected", func(t *testing.T) {
		_, err := normalizeSelection(map[string]int64{"not-a-uuid": 1})
		if !errors.Is(err, ErrInvalidBundleSelection) {
			t.Fatalf("expected ErrInvalidBundleSelection, got %v", err)
		}
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		_, err := normalizeSelection(map[string]int64{idA.String(): 0})
		if !errors.Is(err, ErrInvalidBundleSelection) {
			t.Fatalf("expected ErrInvalidBundleSelection, got %v", err)
		}
	})

	t.Run("quantity above the purchase cap rejected", func(t *testing.T) {
		_, err := normalizeSelection(map[string]int64{idA.String(): maxLineQuantity + 1})
		if !errors.Is(err, ErrInvalidBundleSelection) {
			t.Fatalf("expected ErrInvalidBundleSelection, got %v", err)
		}
	})

	t.Run("lines come back sorted by bundle id", func(t *testing.T) {
		lines, err := normalizeSelection(map[string]int64{idA.String(): 1, idB.String(): 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}
		if lines[0].bundleID.String() > lines[1].bundleID.String() {
			t.Fatal("expected lines sorted by bundle id")
		}
	})
}

func TestResolvePricing(t *testing.T) {
	eventID := uuid.New()
	otherEventID := uuid.New()
	catID := uuid.New()
	starterID := uuid.New()
	jumboID := uuid.New()
	foreignID := uuid.New()
	inactiveID := uuid.New()

	repo := &pricingRepoStub{bundles: map[uuid.UUID]*domain.VoteBundle{
		starterID: {ID: starterID, EventID: eventID, CategoryIDs: []uuid.UUID{catID}, PricePerVote: 100, VotesInBundle: 10, Active: true},
		jumboID:   {ID: jumboID, EventID: eventID, CategoryIDs: []uuid.UUID{catID}, PricePerVote: 80, VotesInBundle: 50, Active: true},
		foreignID: {ID: foreignID, EventID: otherEventID, CategoryIDs: []uuid.UUID{catID}, PricePerVote: 100, VotesInBundle: 10, Active: true},
		inactiveID: {
			ID: inactiveID, EventID: eventID, CategoryIDs: []uuid.UUID{catID}, PricePerVote: 100, VotesInBundle: 10, Active: false,
		},
	}}
	svc := NewService(repo, nil, nil, 1)

	t.Run("accumulates votes and amounts across lines", func(t *testing.T) {
		result, err := svc.resolvePricing(context.Background(), eventID, catID, []bundleLine{
			{bundleID: starterID, quantity: 2},
			{bundleID: jumboID, quantity: 1},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.totalVotes != 70 {
			t.Fatalf("expected 70 votes, got %d", result.totalVotes)
		}
		if result.totalAmount != 6000 {
			t.Fatalf("expected amount 6000, got %d", result.totalAmount)
		}
		if len(result.lines) != 2 || result.lines[0].amount != 2000 || result.lines[1].amount != 4000 {
			t.Fatalf("unexpected per-line amounts: %+v", result.lines)
		}
	})

	t.Run("unknown bundle", func(t *testing.T) {
		_, err := svc.resolvePricing(context.Background(), eventID, catID, []bundleLine{{bundleID: uuid.New(), quantity: 1}})
		if !errors.Is(err, store.ErrVoteBundleNotFound) {
			t.Fatalf("expected ErrVoteBundleNotFound, got %v", err)
		}
	})

	t.Run("bundle from another event", func(t *testing.T) {
		_, err := svc.resolvePricing(context.Background(), eventID, catID, []bundleLine{{bundleID: foreignID, quantity: 1}})
		if !errors.Is(err, ErrBundleNotInEvent) {
			t.Fatalf("expected ErrBundleNotInEvent, got %v", err)
		}
	})

	t.Run("bundle outside category", func(t *testing.T) {
		_, err := svc.resolvePricing(context.Background(), eventID, uuid.New(), []bundleLine{{bundleID: starterID, quantity: 1}})
		if !errors.Is(err, ErrBundleNotInCategory) {
			t.Fatalf("expected ErrBundleNotInCategory, got %v", err)
		}
	})

	t.Run("inactive bundle", func(t *testing.T) {
		_, err := svc.resolvePricing(context.Background(), eventID, catID, []bundleLine{{bundleID: inactiveID, quantity: 1}})
		if !errors.Is(err, ErrBundleInactive) {
			t.Fatalf("expected ErrBundleInactive, got %v", err)
		}
	})
}

func TestResolvePricingRejectsWrappingTotals(t *testing.T) {
	eventID := uuid.New()
	catID := uuid.New()
	hugeID := uuid.New()

	repo := &pricingRepoStub{bundles: map[uuid.UUID]*domain.VoteBundle{
		hugeID: {
			ID:            hugeID,
			EventID:       eventID,
			CategoryIDs:   []uuid.UUID{catID},
			PricePerVote:  1 << 31,
			VotesInBundle: 1 << 31,
			Active:        true,
		},
	}}
	svc := NewService(repo, nil, nil, 1)

	// price_per_vote * votes_in_bundle * quantity exceeds int64 here; the
	// wrapped product must never be accepted as a charge.
	_, err := svc.resolvePricing(context.Background(), eventID, catID, []bundleLine{{bundleID: hugeID, quantity: 2}})
	if !errors.Is(err, ErrInvalidBundleSelection) {
		t.Fatalf("expected ErrInvalidBundleSelection, got %v", err)
	}
}
