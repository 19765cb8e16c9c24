// Package workflow orchestrates the policy request lifecycle: creation,
// fraud analysis, validation against risk ceilings, payment, subscription
// and cancellation. Every mutation loads fresh persisted state, applies
// the transition, saves, then publishes the resulting event.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-insurance/heron/internal/domain"
	"github.com/opensource-insurance/heron/internal/risk"
)

// FraudAnalyzer obtains a risk classification for a policy request.
type FraudAnalyzer interface {
	AnalyzeFraud(ctx context.Context, requestID, customerID uuid.UUID) (*domain.RiskAnalysis, error)
}

// PaymentProcessor initiates premium collection for a validated request.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, req *domain.PolicyRequest) error
}

// SubscriptionProcessor initiates underwriting for a pending request.
type SubscriptionProcessor interface {
	ProcessSubscription(ctx context.Context, req *domain.PolicyRequest) error
}

// Service is the workflow orchestrator. Collaborator failures downstream
// of creation reject the request rather than surfacing to the caller;
// persistence and publish failures always surface.
type Service struct {
	repo          domain.Repository
	publisher     domain.EventPublisher
	fraud         FraudAnalyzer
	payments      PaymentProcessor
	subscriptions SubscriptionProcessor
	cache         domain.Cache
	cacheTTL      time.Duration
	clock         func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithCache enables read-through caching of FindByID lookups.
func WithCache(cache domain.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService wires the orchestrator with its collaborators.
func NewService(
	repo domain.Repository,
	publisher domain.EventPublisher,
	fraud FraudAnalyzer,
	payments PaymentProcessor,
	subscriptions SubscriptionProcessor,
	opts ...Option,
) *Service {
	s := &Service{
		repo:          repo,
		publisher:     publisher,
		fraud:         fraud,
		payments:      payments,
		subscriptions: subscriptions,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input, persists a new request in status RECEIVED
// and publishes the created event.
func (s *Service) Create(ctx context.Context, in domain.PolicyRequestInput) (*domain.PolicyRequest, error) {
	req, err := domain.NewPolicyRequest(in, s.clock())
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("saving policy request: %w", err)
	}

	event := domain.NewEvent(saved, domain.EventPolicyRequestCreated, s.clock())
	if err := s.publisher.Publish(ctx, domain.TopicPolicyEvents, domain.KeyPolicyCreated, event); err != nil {
		return nil, fmt.Errorf("publishing created event: %w", err)
	}

	slog.Info("policy request created",
		"policy_request_id", saved.ID,
		"customer_id", saved.CustomerID,
		"category", saved.Category,
	)
	return saved, nil
}

// FindByID returns a request by id, serving from cache when available.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey(id)); err == nil && data != nil {
			var req domain.PolicyRequest
			if err := json.Unmarshal(data, &req); err == nil {
				return &req, nil
			}
		}
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(req); err == nil {
			if err := s.cache.Set(ctx, cacheKey(id), data, s.cacheTTL); err != nil {
				slog.Warn("cache set failed", "policy_request_id", id, "error", err)
			}
		}
	}
	return req, nil
}

// FindByCustomerID lists a customer's requests, newest first.
func (s *Service) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.PolicyRequest, error) {
	return s.repo.FindByCustomerID(ctx, customerID)
}

// UpdateStatus loads the request fresh, applies the transition, saves and
// publishes the change under the status-specific routing key. An illegal
// transition surfaces as InvalidTransitionError with the state unchanged.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.Status) (*domain.PolicyRequest, error) {
	return s.updateStatus(ctx, id, to, "")
}

func (s *Service) updateStatus(ctx context.Context, id uuid.UUID, to domain.Status, reason string) (*domain.PolicyRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, req, to, reason)
}

// transition applies the status change to an already-loaded aggregate,
// saves it and publishes the event.
func (s *Service) transition(ctx context.Context, req *domain.PolicyRequest, to domain.Status, reason string) (*domain.PolicyRequest, error) {
	if err := req.TransitionWithReason(to, reason, s.clock()); err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("saving policy request: %w", err)
	}
	s.invalidate(ctx, saved.ID)

	event := domain.NewEvent(saved, domain.EventPolicyRequestStatusChanged, s.clock())
	if err := s.publisher.Publish(ctx, domain.TopicPolicyEvents, domain.RoutingKeyFor(to), event); err != nil {
		return nil, fmt.Errorf("publishing status event: %w", err)
	}

	slog.Info("policy request status changed",
		"policy_request_id", saved.ID,
		"status", saved.Status,
	)
	return saved, nil
}

// Validate checks the insured amount against the ceiling for the attached
// risk classification and moves the request to VALIDATED or REJECTED. A
// request without a risk analysis cannot be validated.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, req)
}

func (s *Service) validate(ctx context.Context, req *domain.PolicyRequest) (*domain.PolicyRequest, error) {
	if req.RiskAnalysis == nil {
		return nil, &domain.PreconditionError{Reason: "risk analysis required before validation"}
	}

	if risk.Acceptable(req.RiskAnalysis.Classification, req.Category, req.InsuredAmount) {
		return s.transition(ctx, req, domain.StatusValidated, "")
	}

	ceiling := risk.CeilingFor(req.RiskAnalysis.Classification, req.Category)
	reason := fmt.Sprintf("insured amount %s exceeds limit %s for %s customer",
		req.InsuredAmount, ceiling, req.RiskAnalysis.Classification)
	slog.Info("policy request rejected by risk rules",
		"policy_request_id", req.ID,
		"classification", req.RiskAnalysis.Classification,
		"insured_amount", req.InsuredAmount,
	)
	return s.transition(ctx, req, domain.StatusRejected, reason)
}

// ProcessFraudAnalysis calls the fraud analyzer, attaches the result and
// validates. An analyzer failure rejects the request instead of bubbling
// up; only the compensating rejection failing surfaces an error.
func (s *Service) ProcessFraudAnalysis(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	analysis, err := s.fraud.AnalyzeFraud(ctx, req.ID, req.CustomerID)
	if err != nil {
		return s.rejectOnFailure(ctx, req, "fraud analysis failed", err)
	}

	req.AttachRiskAnalysis(analysis)
	saved, err := s.repo.Save(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("saving risk analysis: %w", err)
	}
	s.invalidate(ctx, saved.ID)

	return s.validate(ctx, saved)
}

// ProcessPayment initiates payment for a validated request and moves it
// to PENDING. A payment collaborator failure rejects the request.
func (s *Service) ProcessPayment(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.payments.ProcessPayment(ctx, req); err != nil {
		return s.rejectOnFailure(ctx, req, "payment processing failed", err)
	}
	return s.transition(ctx, req, domain.StatusPending, "")
}

// ProcessSubscription initiates underwriting for a pending request and
// moves it to APPROVED. A subscription collaborator failure rejects the
// request.
func (s *Service) ProcessSubscription(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.subscriptions.ProcessSubscription(ctx, req); err != nil {
		return s.rejectOnFailure(ctx, req, "subscription processing failed", err)
	}
	return s.transition(ctx, req, domain.StatusApproved, "")
}

// Cancel moves a request to CANCELLED. Approved requests cannot be
// cancelled; other terminal states fail through the transition table.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status == domain.StatusApproved {
		return nil, fmt.Errorf("%w: cannot cancel an approved policy request", domain.ErrIllegalState)
	}
	return s.transition(ctx, req, domain.StatusCancelled, "cancelled by customer request")
}

// rejectOnFailure performs the compensating rejection after a collaborator
// failure. The original error is logged and swallowed; only a failure of
// the rejection itself is returned.
func (s *Service) rejectOnFailure(ctx context.Context, req *domain.PolicyRequest, reason string, cause error) (*domain.PolicyRequest, error) {
	slog.Error("collaborator failure, rejecting policy request",
		"policy_request_id", req.ID,
		"reason", reason,
		"error", cause,
	)

	rejected, err := s.transition(ctx, req, domain.StatusRejected, reason)
	if err != nil {
		return nil, fmt.Errorf("rejecting after failure (%s): %w", reason, err)
	}
	return rejected, nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		slog.Warn("cache invalidation failed", "policy_request_id", id, "error", err)
	}
}

func cacheKey(id uuid.UUID) string {
	return "policy-request:" + id.String()
}
