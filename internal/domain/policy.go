package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsuranceCategory classifies the product line of a policy request.
type InsuranceCategory string

const (
	CategoryAuto        InsuranceCategory = "AUTO"
	CategoryLife        InsuranceCategory = "LIFE"
	CategoryResidential InsuranceCategory = "RESIDENTIAL"
	CategoryTravel      InsuranceCategory = "TRAVEL"
	CategoryOther       InsuranceCategory = "OTHER"
)

// SalesChannel records where the request originated.
type SalesChannel string

const (
	ChannelMobile     SalesChannel = "MOBILE"
	ChannelWebsite    SalesChannel = "WEBSITE"
	ChannelCallCenter SalesChannel = "CALL_CENTER"
	ChannelBroker     SalesChannel = "BROKER"
)

// PaymentMethod records how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentBankSlip     PaymentMethod = "BANK_SLIP"
	PaymentPix          PaymentMethod = "PIX"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// RiskClassification is the fraud/credit risk bucket assigned by the
// external analysis service.
type RiskClassification string

const (
	RiskRegular       RiskClassification = "REGULAR"
	RiskHigh          RiskClassification = "HIGH_RISK"
	RiskPreferred     RiskClassification = "PREFERRED"
	RiskNoInformation RiskClassification = "NO_INFORMATION"
)

// PolicyRequest is the aggregate root tracking a customer's application
// for insurance coverage through the approval workflow. All mutations go
// through TransitionTo so the status history stays complete.
type PolicyRequest struct {
	ID            uuid.UUID         `json:"id"`
	CustomerID    uuid.UUID         `json:"customerId"`
	ProductID     uuid.UUID         `json:"productId"`
	Category      InsuranceCategory `json:"category"`
	SalesChannel  SalesChannel      `json:"salesChannel"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Status        Status            `json:"status"`

	TotalMonthlyPremiumAmount decimal.Decimal `json:"totalMonthlyPremiumAmount"`
	InsuredAmount             decimal.Decimal `json:"insuredAmount"`

	Coverages   map[string]decimal.Decimal `json:"coverages"`
	Assistances []string                   `json:"assistances"`

	StatusHistory []StatusHistory `json:"statusHistory"`
	RiskAnalysis  *RiskAnalysis   `json:"riskAnalysis,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// Version is the optimistic-locking counter maintained by the
	// repository; zero for an unsaved aggregate.
	Version int64 `json:"-"`
}

// StatusHistory is one entry of the append-only transition log owned by a
// PolicyRequest. Entries are appended oldest first and never modified.
type StatusHistory struct {
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	ChangedAt  time.Time `json:"changedAt"`
	Reason     string    `json:"reason,omitempty"`
}

// RiskAnalysis is the one-to-one fraud analysis result attached to a
// policy request once the external service has answered.
type RiskAnalysis struct {
	Classification RiskClassification `json:"classification"`
	AnalyzedAt     time.Time          `json:"analyzedAt"`
	Occurrences    []RiskOccurrence   `json:"occurrences,omitempty"`
}

// RiskOccurrence is a single incident reported by the fraud analysis.
type RiskOccurrence struct {
	ProductID   uuid.UUID `json:"productId"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PolicyRequestInput carries the user-supplied fields for a new policy
// request. Status is never user-supplied.
type PolicyRequestInput struct {
	CustomerID                uuid.UUID                  `json:"customerId"`
	ProductID                 uuid.UUID                  `json:"productId"`
	Category                  InsuranceCategory          `json:"category"`
	SalesChannel              SalesChannel               `json:"salesChannel"`
	PaymentMethod             PaymentMethod              `json:"paymentMethod"`
	TotalMonthlyPremiumAmount decimal.Decimal            `json:"totalMonthlyPremiumAmount"`
	InsuredAmount             decimal.Decimal            `json:"insuredAmount"`
	Coverages                 map[string]decimal.Decimal `json:"coverages"`
	Assistances               []string                   `json:"assistances"`
}

// NewPolicyRequest validates the input and builds an aggregate in status
// RECEIVED with an empty history. Fields are checked in a fixed order and
// the first failure is reported as a ValidationError.
func NewPolicyRequest(in PolicyRequestInput, now time.Time) (*PolicyRequest, error) {
	if in.CustomerID == uuid.Nil {
		return nil, &ValidationError{Field: "customerId", Reason: "is required"}
	}
	if in.ProductID == uuid.Nil {
		return nil, &ValidationError{Field: "productId", Reason: "is required"}
	}
	if in.Category == "" {
		return nil, &ValidationError{Field: "category", Reason: "is required"}
	}
	if in.SalesChannel == "" {
		return nil, &ValidationError{Field: "salesChannel", Reason: "is required"}
	}
	if in.PaymentMethod == "" {
		return nil, &ValidationError{Field: "paymentMethod", Reason: "is required"}
	}
	if !in.TotalMonthlyPremiumAmount.IsPositive() {
		return nil, &ValidationError{Field: "totalMonthlyPremiumAmount", Reason: "must be greater than zero"}
	}
	if !in.InsuredAmount.IsPositive() {
		return nil, &ValidationError{Field: "insuredAmount", Reason: "must be greater than zero"}
	}
	if len(in.Coverages) == 0 {
		return nil, &ValidationError{Field: "coverages", Reason: "must not be empty"}
	}

	coverages := make(map[string]decimal.Decimal, len(in.Coverages))
	for name, amount := range in.Coverages {
		coverages[name] = amount
	}

	return &PolicyRequest{
		ID:                        uuid.New(),
		CustomerID:                in.CustomerID,
		ProductID:                 in.ProductID,
		Category:                  in.Category,
		SalesChannel:              in.SalesChannel,
		PaymentMethod:             in.PaymentMethod,
		Status:                    StatusReceived,
		TotalMonthlyPremiumAmount: in.TotalMonthlyPremiumAmount,
		InsuredAmount:             in.InsuredAmount,
		Coverages:                 coverages,
		Assistances:               append([]string(nil), in.Assistances...),
		CreatedAt:                 now,
	}, nil
}

// TransitionTo moves the request to a new status, appending a history
// entry. Terminal statuses stamp FinishedAt. On an illegal move it
// returns InvalidTransitionError and leaves the aggregate unchanged.
func (p *PolicyRequest) TransitionTo(to Status, now time.Time) error {
	return p.TransitionWithReason(to, "", now)
}

// TransitionWithReason is TransitionTo with a free-text reason recorded
// on the history entry, used for forced rejections.
func (p *PolicyRequest) TransitionWithReason(to Status, reason string, now time.Time) error {
	if !CanTransition(p.Status, to) {
		return &InvalidTransitionError{From: p.Status, To: to}
	}

	p.StatusHistory = append(p.StatusHistory, StatusHistory{
		FromStatus: p.Status,
		ToStatus:   to,
		ChangedAt:  now,
		Reason:     reason,
	})
	p.Status = to

	if to.Terminal() {
		p.FinishedAt = &now
	}
	return nil
}

// AttachRiskAnalysis sets or replaces the fraud analysis result. It has
// no transition side effect.
func (p *PolicyRequest) AttachRiskAnalysis(analysis *RiskAnalysis) {
	p.RiskAnalysis = analysis
}

// TotalCoverageAmount sums the coverage amounts. An empty map sums to
// zero; a nil map is a sequencing bug and fails with PreconditionError.
func (p *PolicyRequest) TotalCoverageAmount() (decimal.Decimal, error) {
	if p.Coverages == nil {
		return decimal.Zero, &PreconditionError{Reason: "coverages not initialized"}
	}
	total := decimal.Zero
	for _, amount := range p.Coverages {
		total = total.Add(amount)
	}
	return total, nil
}

// SetPremium replaces the monthly premium. Non-positive amounts fail
// with ValidationError regardless of the request's state.
func (p *PolicyRequest) SetPremium(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "totalMonthlyPremiumAmount", Reason: "must be greater than zero"}
	}
	p.TotalMonthlyPremiumAmount = amount
	return nil
}

// SetInsuredAmount replaces the insured amount. Non-positive amounts fail
// with ValidationError regardless of the request's state.
func (p *PolicyRequest) SetInsuredAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "insuredAmount", Reason: "must be greater than zero"}
	}
	p.InsuredAmount = amount
	return nil
}
