/**
 * @description
 * This file contains the core business logic for the voting-service. The `Service`
 * struct orchestrates vote casting and payment reconciliation, coordinating between
 * the database repository, the payment gateway client, the message broker, and the
 * redis cache.
 *
 * Key features:
 * - Implements the main use cases: vote casting and manual payment reconciliation.
 * - Hosts the admin CRUD pass-throughs for events, categories, candidates,
 *   vote bundles, and promo codes.
 * - Serves cached per-category vote tallies with read-through redis caching.
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - github.com/redis/go-redis/v9: Tally cache.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/gatewayclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
	"github.com/votely/voting-service/pkg/gatewayclient"
	"github.com/votely/voting-service/pkg/rabbitmq"
)

const (
	voteEventsExchange      = "voting_events"
	voteRecordedRoutingKey  = "vote.recorded"
	defaultAmountTolerance  = 1
	defaultResultsCacheTTL  = 30 * time.Second
	rateLimitScopeVoteCast  = "vote_cast"
	rateLimitWindowVoteCast = time.Minute
)

var (
	// ErrInvalidInput wraps every admin-input rejection raised before any
	// persistence happened, so handlers can map them with errors.Is.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidBundleSelection = errors.New("bundle selection is empty or malformed")
	ErrCandidateNotInEvent    = errors.New("candidate does not belong to the event")
	ErrCandidateNotInCategory = errors.New("candidate does not belong to the category")
	ErrCategoryNotInEvent     = errors.New("category does not belong to the event")
	ErrPaymentNotVerified     = errors.New("payment could not be verified")
	ErrVoteMetadataMismatch   = errors.New("vote selection does not match payment metadata")
)

// AmountMismatchError reports a reconciliation failure between the verified
// payment amount and the computed expected charge, both in minor units.
type AmountMismatchError struct {
	Actual   int64
	Expected int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %d does not match expected charge %d", e.Actual, e.Expected)
}

// RateLimitedError reports a vote-cast attempt rejected by the rate limiter.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many vote attempts; retry after %d seconds", e.RetryAfterSeconds)
}

// PaymentVerifier is the external collaborator confirming gateway payments.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, reference string) (*gatewayclient.VerificationResult, error)
}

// VoteRateLimiter is the distributed rate limiter consumed by the cast flow.
type VoteRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the voting platform.
type Service struct {
	repo            store.Repository
	gateway         PaymentVerifier
	eventProducer   rabbitmq.Publisher
	cache           redis.UniversalClient
	cachePrefix     string
	resultsCacheTTL time.Duration
	rateLimiter     VoteRateLimiter
	castRateLimit   int
	amountTolerance int64
}

// NewService creates a new voting service instance. amountTolerance is the
// maximum accepted absolute gap, in minor units, between the verified payment
// amount and the computed expected charge.
func NewService(repo store.Repository, gateway PaymentVerifier, producer rabbitmq.Publisher, amountTolerance int64) *Service {
	if amountTolerance < 0 {
		amountTolerance = defaultAmountTolerance
	}
	return &Service{
		repo:            repo,
		gateway:         gateway,
		eventProducer:   producer,
		resultsCacheTTL: defaultResultsCacheTTL,
		amountTolerance: amountTolerance,
	}
}

// SetVoteRateLimiter wires a distributed rate limiter for the cast flow.
// A nil limiter or a non-positive limit disables rate limiting.
func (s *Service) SetVoteRateLimiter(limiter VoteRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.castRateLimit = perMinute
}

// SetResultsCache wires a redis client for tally caching.
func (s *Service) SetResultsCache(client redis.UniversalClient, prefix string, ttl time.Duration) {
	s.cache = client
	s.cachePrefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if s.cachePrefix == "" {
		s.cachePrefix = "votely"
	}
	if ttl > 0 {
		s.resultsCacheTTL = ttl
	}
}

// CreateEvent creates a new voting event.
func (s *Service) CreateEvent(ctx context.Context, req domain.CreateEventRequest) (*domain.Event, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, fmt.Errorf("%w: event window must end after it starts", ErrInvalidInput)
	}
	event := &domain.Event{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(req.Name),
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// CreateCategory creates a new category under an existing event.
func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (*domain.Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if _, err := s.repo.FindEventByID(ctx, req.EventID); err != nil {
		return nil, err
	}
	category := &domain.Category{
		ID:      uuid.New(),
		EventID: req.EventID,
		Name:    strings.TrimSpace(req.Name),
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// CreateCandidate records a nomination approval as a candidate. Every supplied
// category must belong to the candidate's event.
func (s *Service) CreateCandidate(ctx context.Context, req domain.CreateCandidateRequest) (*domain.Candidate, error) {
	if strings.TrimSpace(req.ReferenceCode) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: candidate reference code and name are required", ErrInvalidInput)
	}
	if _, err := s.repo.FindEventByID(ctx, req.EventID); err != nil {
		return nil, err
	}
	for _, categoryID := range req.CategoryIDs {
		category, err := s.repo.FindCategoryByID(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		if category.EventID != req.EventID {
			return nil, ErrCategoryNotInEvent
		}
	}
	candidate := &domain.Candidate{
		ID:            uuid.New(),
		ReferenceCode: strings.TrimSpace(req.ReferenceCode),
		Name:          strings.TrimSpace(req.Name),
		EventID:       req.EventID,
		CategoryIDs:   req.CategoryIDs,
	}
	if err := s.repo.CreateCandidate(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// NominateCandidateIntoCategory grows a candidate's category membership.
func (s *Service) NominateCandidateIntoCategory(ctx context.Context, candidateReferenceCode string, categoryID uuid.UUID) (*domain.Candidate, error) {
	candidate, err := s.repo.FindCandidateByReferenceCode(ctx, candidateReferenceCode)
	if err != nil {
		return nil, err
	}
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.EventID != candidate.EventID {
		return nil, ErrCategoryNotInEvent
	}
	if err := s.repo.AddCandidateToCategory(ctx, candidate.ID, categoryID); err != nil {
		return nil, fmt.Errorf("add candidate to category: %w", err)
	}
	return s.repo.FindCandidateByReferenceCode(ctx, candidateReferenceCode)
}

// CreateVoteBundle creates a new vote bundle for an event.
func (s *Service) CreateVoteBundle(ctx context.Context, req domain.CreateVoteBundleRequest) (*domain.VoteBundle, error) {
	if req.PricePerVote <= 0 || req.VotesInBundle <= 0 {
		return nil, fmt.Errorf("%w: price per vote and votes in bundle must be positive", ErrInvalidInput)
	}
	if _, err := s.repo.FindEventByID(ctx, req.EventID); err != nil {
		return nil, err
	}
	bundle := &domain.VoteBundle{
		ID:            uuid.New(),
		EventID:       req.EventID,
		CategoryIDs:   req.CategoryIDs,
		Name:          strings.TrimSpace(req.Name),
		PricePerVote:  req.PricePerVote,
		VotesInBundle: req.VotesInBundle,
		Active:        req.Active,
	}
	if err := s.repo.CreateVoteBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("create vote bundle: %w", err)
	}
	return bundle, nil
}

// ListVoteBundles lists the bundles configured for an event.
func (s *Service) ListVoteBundles(ctx context.Context, eventID uuid.UUID) ([]domain.VoteBundle, error) {
	return s.repo.ListVoteBundlesByEvent(ctx, eventID)
}

// CreatePromoCode creates a new promo code.
func (s *Service) CreatePromoCode(ctx context.Context, req domain.CreatePromoCodeRequest) (*domain.PromoCode, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: promo code is required", ErrInvalidInput)
	}
	if req.Discount < 0 || req.Discount > 100 {
		return nil, fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidInput)
	}
	if req.UsageLimit != nil && *req.UsageLimit < 0 {
		return nil, fmt.Errorf("%w: usage limit must not be negative", ErrInvalidInput)
	}
	promo := &domain.PromoCode{
		ID:                  uuid.New(),
		Code:                strings.ToUpper(strings.TrimSpace(req.Code)),
		Discount:            req.Discount,
		ApplicableBundleIDs: req.ApplicableBundleIDs,
		ExpirationDate:      req.ExpirationDate,
		UsageLimit:          req.UsageLimit,
		Active:              req.Active,
	}
	if err := s.repo.CreatePromoCode(ctx, promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// ListPromoCodes lists all promo codes.
func (s *Service) ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	return s.repo.ListPromoCodes(ctx)
}

// ListCandidateVotes returns the vote records behind a candidate's tally,
// newest first. Limit and offset page the result set.
func (s *Service) ListCandidateVotes(ctx context.Context, candidateID uuid.UUID, limit, offset int) ([]domain.Vote, error) {
	return s.repo.FindVotesByCandidate(ctx, candidateID, limit, offset)
}

// GetPayment returns the locally mirrored gateway payment for a reference.
func (s *Service) GetPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	return s.repo.FindPaymentByReference(ctx, reference)
}

// PaymentStatusConsumer returns the consumer that keeps the local payments
// table in sync with gateway webhook events.
func (s *Service) PaymentStatusConsumer() *PaymentStatusConsumer {
	return NewPaymentStatusConsumer(s.repo)
}

// GetResults returns the weighted vote tallies for one event/category pair,
// served read-through from the redis cache when one is configured. Cache
// failures degrade to a direct database read.
func (s *Service) GetResults(ctx context.Context, eventID, categoryID uuid.UUID) ([]domain.CandidateTally, error) {
	cacheKey := s.tallyCacheKey(eventID, categoryID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var tallies []domain.CandidateTally
			if unmarshalErr := json.Unmarshal([]byte(cached), &tallies); unmarshalErr == nil {
				return tallies, nil
			}
			log.Printf("level=warn component=service flow=results msg=\"discarding undecodable cached tallies\" key=%s", cacheKey)
		} else if err != redis.Nil {
			log.Printf("level=warn component=service flow=results msg=\"tally cache read failed; falling back to database\" key=%s err=%v", cacheKey, err)
		}
	}

	tallies, err := s.repo.TallyVotes(ctx, eventID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(tallies); marshalErr == nil {
			if setErr := s.cache.Set(ctx, cacheKey, payload, s.resultsCacheTTL).Err(); setErr != nil {
				log.Printf("level=warn component=service flow=results msg=\"tally cache write failed\" key=%s err=%v", cacheKey, setErr)
			}
		}
	}
	return tallies, nil
}

func (s *Service) tallyCacheKey(eventID, categoryID uuid.UUID) string {
	prefix := s.cachePrefix
	if prefix == "" {
		prefix = "votely"
	}
	return fmt.Sprintf("%s:tallies:%s:%s", prefix, eventID, categoryID)
}

func (s *Service) invalidateTallyCache(ctx context.Context, eventID, categoryID uuid.UUID) {
	if s.cache == nil {
		return
	}
	cacheKey := s.tallyCacheKey(eventID, categoryID)
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Printf("level=warn component=service flow=vote_commit msg=\"tally cache invalidation failed\" key=%s err=%v", cacheKey, err)
	}
}

func (s *Service) publishVoteRecorded(ctx context.Context, vote *domain.Vote, amountCharged int64) {
	if s.eventProducer == nil {
		return
	}
	event := domain.VoteRecordedEvent{
		VoteID:           vote.ID.String(),
		CandidateID:      vote.CandidateID.String(),
		EventID:          vote.EventID.String(),
		CategoryID:       vote.CategoryID.String(),
		NumberOfVotes:    vote.NumberOfVotes,
		PaymentReference: vote.PaymentReference,
		AmountCharged:    amountCharged,
	}
	if err := s.eventProducer.Publish(ctx, voteEventsExchange, voteRecordedRoutingKey, event); err != nil {
		log.Printf("level=warn component=service flow=vote_commit msg=\"vote.recorded publish failed\" vote_id=%s err=%v", vote.ID, err)
	}
}
