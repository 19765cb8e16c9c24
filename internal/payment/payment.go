// Package payment forwards payment requests to the payment processor
// via the event bus.
package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/opensource-insurance/heron/internal/domain"
)

// Service publishes payment requests for policy premiums. The actual
// charge is handled by an external consumer of the payment topic; a
// publish failure is the only failure mode surfaced here.
type Service struct {
	publisher domain.EventPublisher
	clock     func() time.Time
}

// NewService creates a payment service. A nil clock uses time.Now.
func NewService(publisher domain.EventPublisher, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{publisher: publisher, clock: clock}
}

// ProcessPayment requests a premium charge for the policy request.
func (s *Service) ProcessPayment(ctx context.Context, req *domain.PolicyRequest) error {
	slog.Info("processing payment",
		"policy_request_id", req.ID,
		"payment_method", req.PaymentMethod,
	)

	event := domain.NewEvent(req, domain.EventPaymentRequested, s.clock())
	return s.publisher.Publish(ctx, domain.TopicPayment, domain.KeyPaymentRequested, event)
}
