// Package worker drives the policy request workflow asynchronously from
// the event bus: created requests get fraud analysis, validated requests
// get payment, pending requests get subscription.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-insurance/heron/internal/domain"
)

// PolicyProcessor is the slice of the workflow service the worker drives.
type PolicyProcessor interface {
	ProcessFraudAnalysis(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error)
	ProcessPayment(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error)
	ProcessSubscription(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error)
}

// Worker subscribes to policy events and advances requests through the
// workflow. One subscription covers the whole policy events topic; the
// routing key decides the step.
type Worker struct {
	bus       domain.EventBus
	processor PolicyProcessor

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.Mutex
}

// NewWorker creates a worker over the bus and workflow processor.
func NewWorker(bus domain.EventBus, processor PolicyProcessor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the policy events topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicPolicyEvents, "policy.*", w.handleMessage)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("worker started", "topic", domain.TopicPolicyEvents, "pattern", sub.Pattern())
	return nil
}

// handleMessage dispatches one policy event to the matching workflow
// step. Unrecognized keys and terminal statuses are ignored.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var event domain.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse policy event",
			"message_id", msg.ID,
			"routing_key", msg.RoutingKey,
			"error", err,
		)
		return err
	}

	var (
		step string
		req  *domain.PolicyRequest
		err  error
	)
	switch msg.RoutingKey {
	case domain.KeyPolicyCreated:
		step = "fraud_analysis"
		req, err = w.processor.ProcessFraudAnalysis(ctx, event.PolicyRequestID)
	case domain.KeyPolicyValidated:
		step = "payment"
		req, err = w.processor.ProcessPayment(ctx, event.PolicyRequestID)
	case domain.KeyPolicyStatusChanged:
		if event.Status != domain.StatusPending {
			return nil
		}
		step = "subscription"
		req, err = w.processor.ProcessSubscription(ctx, event.PolicyRequestID)
	default:
		return nil
	}

	if err != nil {
		slog.Error("workflow step failed",
			"policy_request_id", event.PolicyRequestID,
			"step", step,
			"error", err,
		)
		return err
	}

	slog.Info("workflow step processed",
		"policy_request_id", req.ID,
		"step", step,
		"status", req.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop unsubscribes and stops processing.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"pattern", sub.Pattern(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Patterns          []string `json:"patterns"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	patterns := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		patterns[i] = sub.Pattern()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Patterns:          patterns,
	}
}
