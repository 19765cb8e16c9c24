package domain

import (
	"time"

	"github.com/google/uuid"
)

// Topics group related events, mirroring the broker exchanges external
// collaborators bind to.
const (
	TopicPolicyEvents  = "policy.events"
	TopicFraudAnalysis = "fraud.analysis"
	TopicPayment       = "payment"
)

// Routing keys published on the policy events topic.
const (
	KeyPolicyCreated       = "policy.created"
	KeyPolicyValidated     = "policy.validated"
	KeyPolicyRejected      = "policy.rejected"
	KeyPolicyApproved      = "policy.approved"
	KeyPolicyCancelled     = "policy.cancelled"
	KeyPolicyStatusChanged = "policy.status.changed"
)

// Routing keys for collaborator request/response traffic.
const (
	KeyFraudAnalysisRequested = "fraud.analysis.requested"
	KeyFraudAnalysisCompleted = "fraud.analysis.completed"
	KeyPaymentRequested       = "payment.requested"
	KeyPaymentCompleted       = "payment.completed"
	KeySubscriptionRequested  = "subscription.requested"
)

// Event types carried in the payload so subscribers can dispatch without
// parsing routing keys.
const (
	EventPolicyRequestCreated       = "PolicyRequestCreated"
	EventPolicyRequestStatusChanged = "PolicyRequestStatusChanged"
	EventFraudAnalysisRequested     = "FraudAnalysisRequested"
	EventPaymentRequested           = "PaymentRequested"
	EventSubscriptionRequested      = "SubscriptionRequested"
)

// Event is the payload published for every policy request state change.
type Event struct {
	PolicyRequestID uuid.UUID `json:"policyRequestId"`
	CustomerID      uuid.UUID `json:"customerId"`
	Status          Status    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	EventType       string    `json:"eventType"`
}

// NewEvent builds an event snapshot for a policy request.
func NewEvent(req *PolicyRequest, eventType string, now time.Time) Event {
	return Event{
		PolicyRequestID: req.ID,
		CustomerID:      req.CustomerID,
		Status:          req.Status,
		Timestamp:       now,
		EventType:       eventType,
	}
}

// RoutingKeyFor maps a status to the routing key its change event is
// published under. Statuses without a dedicated key fall back to the
// generic status-changed key.
func RoutingKeyFor(status Status) string {
	switch status {
	case StatusValidated:
		return KeyPolicyValidated
	case StatusRejected:
		return KeyPolicyRejected
	case StatusApproved:
		return KeyPolicyApproved
	case StatusCancelled:
		return KeyPolicyCancelled
	default:
		return KeyPolicyStatusChanged
	}
}
