package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/votely/voting-service/internal/domain"
)

func TestAdminInputRejectionsWrapInvalidInput(t *testing.T) {
	svc := NewService(nil, nil, nil, 1)
	now := time.Now()
	negativeLimit := -1

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "event without name",
			call: func() error {
				_, err := svc.CreateEvent(context.Background(), domain.CreateEventRequest{StartsAt: now, EndsAt: now.Add(time.Hour)})
				return err
			},
		},
		{
			name: "event window ends before it starts",
			call: func() error {
				_, err := svc.CreateEvent(context.Background(), domain.CreateEventRequest{Name: "Awards", StartsAt: now, EndsAt: now.Add(-time.Hour)})
				return err
			},
		},
		{
			name: "category without name",
			call: func() error {
				_, err := svc.CreateCategory(context.Background(), domain.CreateCategoryRequest{})
				return err
			},
		},
		{
			name: "candidate without reference code",
			call: func() error {
				_, err := svc.CreateCandidate(context.Background(), domain.CreateCandidateRequest{Name: "Someone"})
				return err
			},
		},
		{
			name: "bundle with non-positive price",
			call: func() error {
				_, err := svc.CreateVoteBundle(context.Background(), domain.CreateVoteBundleRequest{PricePerVote: 0, VotesInBundle: 5})
				return err
			},
		},
		{
			name: "promo discount above 100",
			call: func() error {
				_, err := svc.CreatePromoCode(context.Background(), domain.CreatePromoCodeRequest{Code: "BIG", Discount: 101})
				return err
			},
		},
		{
			name: "promo with negative usage limit",
			call: func() error {
				_, err := svc.CreatePromoCode(context.Background(), domain.CreatePromoCodeRequest{Code: "NEG", Discount: 10, UsageLimit: &negativeLimit})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
