// Package subscription forwards subscription requests to the insurer's
// underwriting system via the event bus.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-insurance/heron/internal/domain"
)

// Service publishes subscription requests for pending policy requests.
type Service struct {
	publisher domain.EventPublisher
	clock     func() time.Time
}

// NewService creates a subscription service. A nil clock uses time.Now.
func NewService(publisher domain.EventPublisher, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{publisher: publisher, clock: clock}
}

// ProcessSubscription requests underwriting for the policy request. Only
// pending requests are eligible; anything else is a caller bug.
func (s *Service) ProcessSubscription(ctx context.Context, req *domain.PolicyRequest) error {
	if req.Status != domain.StatusPending {
		return fmt.Errorf("%w: cannot process subscription for request in status %s",
			domain.ErrIllegalState, req.Status)
	}

	slog.Info("processing subscription", "policy_request_id", req.ID)

	event := domain.NewEvent(req, domain.EventSubscriptionRequested, s.clock())
	return s.publisher.Publish(ctx, domain.TopicPolicyEvents, domain.KeySubscriptionRequested, event)
}
