package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
)

type promoRepoStub struct {
	store.Repository

	promos map[string]*domain.PromoCode
}

func (s *promoRepoStub) FindPromoCodeByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	promo, ok := s.promos[code]
	if !ok {
		return nil, store.ErrPromoCodeNotFound
	}
	return promo, nil
}

func TestDiscountedAmountRounding(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		discount int
		want     int64
	}{
		{name: "zero discount is identity", amount: 1000, discount: 0, want: 1000},
		{name: "full discount is free", amount: 1000, discount: 100, want: 0},
		{name: "clean percentage", amount: 1000, discount: 20, want: 800},
		{name: "half minor unit rounds up", amount: 999, discount: 50, want: 500},
		{name: "fraction below half rounds down", amount: 1003, discount: 33, want: 672},
		{name: "fraction above half rounds up", amount: 997, discount: 33, want: 668},
		{name: "single minor unit", amount: 1, discount: 50, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := discountedAmount(tt.amount, tt.discount)
			if got != tt.want {
				t.Fatalf("discountedAmount(%d, %d) = %d, want %d", tt.amount, tt.discount, got, tt.want)
			}
		})
	}
}

func TestApplyPromoDiscount(t *testing.T) {
	bundleID := uuid.New()
	otherBundleID := uuid.New()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	limit := 5

	newStub := func() *promoRepoStub {
		return &promoRepoStub{promos: map[string]*domain.PromoCode{
			"SAVE10": {
				ID:                  uuid.New(),
				Code:                "SAVE10",
				Discount:            10,
				ApplicableBundleIDs: []uuid.UUID{bundleID},
				Active:              true,
			},
			"INACTIVE": {
				ID:       uuid.New(),
				Code:     "INACTIVE",
				Discount: 10,
				Active:   false,
			},
			"EXPIRED": {
				ID:                  uuid.New(),
				Code:                "EXPIRED",
				Discount:            10,
				ApplicableBundleIDs: []uuid.UUID{bundleID},
				ExpirationDate:      &past,
				Active:              true,
			},
			"FRESH": {
				ID:                  uuid.New(),
				Code:                "FRESH",
				Discount:            25,
				ApplicableBundleIDs: []uuid.UUID{bundleID},
				ExpirationDate:      &future,
				Active:              true,
			},
			"SPENT": {
				ID:                  uuid.New(),
				Code:                "SPENT",
				Discount:            10,
				ApplicableBundleIDs: []uuid.UUID{bundleID},
				UsageLimit:          &limit,
				UsedCount:           5,
				Active:              true,
			},
		}}
	}

	t.Run("empty code is a no-op", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		amount, promo, err := svc.applyPromoDiscount(context.Background(), "", 1000, []uuid.UUID{bundleID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if amount != 1000 || promo != nil {
			t.Fatalf("expected pass-through, got amount=%d promo=%v", amount, promo)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		_, _, err := svc.applyPromoDiscount(context.Background(), "NOPE", 1000, []uuid.UUID{bundleID})
		if !errors.Is(err, ErrPromoNotFound) {
			t.Fatalf("expected ErrPromoNotFound, got %v", err)
		}
	})

	t.Run("inactive code behaves like unknown", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		_, _, err := svc.applyPromoDiscount(context.Background(), "INACTIVE", 1000, []uuid.UUID{bundleID})
		if !errors.Is(err, ErrPromoNotFound) {
			t.Fatalf("expected ErrPromoNotFound, got %v", err)
		}
	})

	t.Run("not applicable to bundle", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		_, _, err := svc.applyPromoDiscount(context.Background(), "SAVE10", 1000, []uuid.UUID{otherBundleID})
		if !errors.Is(err, ErrPromoNotApplicable) {
			t.Fatalf("expected ErrPromoNotApplicable, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		_, _, err := svc.applyPromoDiscount(context.Background(), "EXPIRED", 1000, []uuid.UUID{bundleID})
		if !errors.Is(err, ErrPromoExpired) {
			t.Fatalf("expected ErrPromoExpired, got %v", err)
		}
	})

	t.Run("usage limit reached", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		_, _, err := svc.applyPromoDiscount(context.Background(), "SPENT", 1000, []uuid.UUID{bundleID})
		if !errors.Is(err, ErrPromoExhausted) {
			t.Fatalf("expected ErrPromoExhausted, got %v", err)
		}
	})

	t.Run("valid future-dated code discounts", func(t *testing.T) {
		svc := NewService(newStub(), nil, nil, 1)
		amount, promo, err := svc.applyPromoDiscount(context.Background(), "FRESH", 1000, []uuid.UUID{bundleID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if amount != 750 {
			t.Fatalf("expected 750, got %d", amount)
		}
		if promo == nil || promo.Code != "FRESH" {
			t.Fatalf("expected FRESH promo record, got %v", promo)
		}
	})
}
