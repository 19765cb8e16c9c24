package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func validInput() PolicyRequestInput {
	return PolicyRequestInput{
		CustomerID:                uuid.New(),
		ProductID:                 uuid.New(),
		Category:                  CategoryAuto,
		SalesChannel:              ChannelMobile,
		PaymentMethod:             PaymentCreditCard,
		TotalMonthlyPremiumAmount: decimal.RequireFromString("75.25"),
		InsuredAmount:             decimal.RequireFromString("275000.50"),
		Coverages: map[string]decimal.Decimal{
			"COLLISION": decimal.RequireFromString("100000.00"),
			"THEFT":     decimal.RequireFromString("50000.00"),
		},
		Assistances: []string{"24H_TOWING"},
	}
}

func TestNewPolicyRequest(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		req, err := NewPolicyRequest(validInput(), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.ID == uuid.Nil {
			t.Error("expected generated id")
		}
		if req.Status != StatusReceived {
			t.Errorf("expected status RECEIVED, got %s", req.Status)
		}
		if len(req.StatusHistory) != 0 {
			t.Errorf("expected empty history, got %d entries", len(req.StatusHistory))
		}
		if !req.CreatedAt.Equal(now) {
			t.Errorf("expected createdAt %v, got %v", now, req.CreatedAt)
		}
		if req.FinishedAt != nil {
			t.Error("expected nil finishedAt")
		}
	})

	t.Run("ValidationOrder", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*PolicyRequestInput)
			field  string
		}{
			{"MissingCustomer", func(in *PolicyRequestInput) { in.CustomerID = uuid.Nil }, "customerId"},
			{"MissingProduct", func(in *PolicyRequestInput) { in.ProductID = uuid.Nil }, "productId"},
			{"MissingCategory", func(in *PolicyRequestInput) { in.Category = "" }, "category"},
			{"MissingChannel", func(in *PolicyRequestInput) { in.SalesChannel = "" }, "salesChannel"},
			{"MissingPayment", func(in *PolicyRequestInput) { in.PaymentMethod = "" }, "paymentMethod"},
			{"ZeroPremium", func(in *PolicyRequestInput) { in.TotalMonthlyPremiumAmount = decimal.Zero }, "totalMonthlyPremiumAmount"},
			{"NegativePremium", func(in *PolicyRequestInput) {
				in.TotalMonthlyPremiumAmount = decimal.RequireFromString("-1")
			}, "totalMonthlyPremiumAmount"},
			{"ZeroInsured", func(in *PolicyRequestInput) { in.InsuredAmount = decimal.Zero }, "insuredAmount"},
			{"NoCoverages", func(in *PolicyRequestInput) { in.Coverages = nil }, "coverages"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := validInput()
				tt.mutate(&in)

				_, err := NewPolicyRequest(in, now)
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if vErr.Field != tt.field {
					t.Errorf("expected field %s, got %s", tt.field, vErr.Field)
				}
			})
		}
	})

	t.Run("FirstFailureWins", func(t *testing.T) {
		in := validInput()
		in.CustomerID = uuid.Nil
		in.Coverages = nil

		_, err := NewPolicyRequest(in, now)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.Field != "customerId" {
			t.Errorf("expected customerId reported first, got %s", vErr.Field)
		}
	})
}

func TestTransitionTo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("AppendsHistory", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)

		later := now.Add(time.Minute)
		if err := req.TransitionTo(StatusValidated, later); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if req.Status != StatusValidated {
			t.Errorf("expected VALIDATED, got %s", req.Status)
		}
		if len(req.StatusHistory) != 1 {
			t.Fatalf("expected 1 history entry, got %d", len(req.StatusHistory))
		}
		entry := req.StatusHistory[0]
		if entry.FromStatus != StatusReceived || entry.ToStatus != StatusValidated {
			t.Errorf("unexpected history entry: %+v", entry)
		}
		if !entry.ChangedAt.Equal(later) {
			t.Errorf("expected changedAt %v, got %v", later, entry.ChangedAt)
		}
		if req.FinishedAt != nil {
			t.Error("non-terminal transition must not set finishedAt")
		}
	})

	t.Run("TerminalSetsFinishedAt", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)
		end := now.Add(time.Hour)

		if err := req.TransitionTo(StatusRejected, end); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.FinishedAt == nil || !req.FinishedAt.Equal(end) {
			t.Errorf("expected finishedAt %v, got %v", end, req.FinishedAt)
		}
	})

	t.Run("IllegalLeavesUnchanged", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)

		err := req.TransitionTo(StatusApproved, now)
		var tErr *InvalidTransitionError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if req.Status != StatusReceived {
			t.Errorf("status must stay RECEIVED, got %s", req.Status)
		}
		if len(req.StatusHistory) != 0 {
			t.Errorf("history must stay empty, got %d entries", len(req.StatusHistory))
		}
	})

	t.Run("SelfTransitionMessage", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)

		err := req.TransitionTo(StatusReceived, now)
		var tErr *InvalidTransitionError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if tErr.From != tErr.To {
			t.Errorf("expected self-transition error, got %v", tErr)
		}
		want := "cannot transition policy request from RECEIVED to itself"
		if tErr.Error() != want {
			t.Errorf("unexpected message: %s", tErr.Error())
		}
	})

	t.Run("WithReason", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)

		if err := req.TransitionWithReason(StatusRejected, "fraud analysis failed", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.StatusHistory[0].Reason != "fraud analysis failed" {
			t.Errorf("expected reason recorded, got %q", req.StatusHistory[0].Reason)
		}
	})

	t.Run("FullLifecycle", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)

		steps := []Status{StatusValidated, StatusPending, StatusApproved}
		for i, s := range steps {
			if err := req.TransitionTo(s, now.Add(time.Duration(i)*time.Minute)); err != nil {
				t.Fatalf("step %s: %v", s, err)
			}
		}

		if len(req.StatusHistory) != 3 {
			t.Fatalf("expected 3 history entries, got %d", len(req.StatusHistory))
		}
		if req.StatusHistory[0].ToStatus != StatusValidated ||
			req.StatusHistory[2].ToStatus != StatusApproved {
			t.Error("history entries out of order")
		}
	})
}

func TestTotalCoverageAmount(t *testing.T) {
	now := time.Now()

	t.Run("Sum", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)

		total, err := req.TotalCoverageAmount()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := decimal.RequireFromString("150000.00")
		if !total.Equal(want) {
			t.Errorf("expected %s, got %s", want, total)
		}
	})

	t.Run("EmptyIsZero", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)
		req.Coverages = map[string]decimal.Decimal{}

		total, err := req.TotalCoverageAmount()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !total.IsZero() {
			t.Errorf("expected zero, got %s", total)
		}
	})

	t.Run("NilFails", func(t *testing.T) {
		req, _ := NewPolicyRequest(validInput(), now)
		req.Coverages = nil

		_, err := req.TotalCoverageAmount()
		var pErr *PreconditionError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected PreconditionError, got %v", err)
		}
	})
}

func TestAmountSetters(t *testing.T) {
	req, _ := NewPolicyRequest(validInput(), time.Now())

	if err := req.SetPremium(decimal.RequireFromString("99.90")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := req.SetPremium(decimal.Zero); err == nil {
		t.Error("expected error for zero premium")
	}
	if !req.TotalMonthlyPremiumAmount.Equal(decimal.RequireFromString("99.90")) {
		t.Error("failed setter must not change the premium")
	}

	if err := req.SetInsuredAmount(decimal.RequireFromString("-5")); err == nil {
		t.Error("expected error for negative insured amount")
	}
}
