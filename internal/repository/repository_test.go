package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensource-insurance/heron/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "heron_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newRequest(t *testing.T) *domain.PolicyRequest {
	t.Helper()
	req, err := domain.NewPolicyRequest(domain.PolicyRequestInput{
		CustomerID:                uuid.New(),
		ProductID:                 uuid.New(),
		Category:                  domain.CategoryAuto,
		SalesChannel:              domain.ChannelMobile,
		PaymentMethod:             domain.PaymentCreditCard,
		TotalMonthlyPremiumAmount: decimal.RequireFromString("75.25"),
		InsuredAmount:             decimal.RequireFromString("275000.50"),
		Coverages: map[string]decimal.Decimal{
			"COLLISION": decimal.RequireFromString("100000.00"),
		},
		Assistances: []string{"24H_TOWING", "GLASS"},
	}, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return req
}

func TestSaveAndFindByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	req := newRequest(t)
	saved, err := repo.Save(ctx, req)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("expected version 1 after insert, got %d", saved.Version)
	}

	found, err := repo.FindByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	if found.ID != req.ID || found.CustomerID != req.CustomerID {
		t.Error("identity fields do not round-trip")
	}
	if found.Status != domain.StatusReceived {
		t.Errorf("expected RECEIVED, got %s", found.Status)
	}
	if !found.TotalMonthlyPremiumAmount.Equal(req.TotalMonthlyPremiumAmount) {
		t.Errorf("premium does not round-trip: %s != %s",
			found.TotalMonthlyPremiumAmount, req.TotalMonthlyPremiumAmount)
	}
	if !found.InsuredAmount.Equal(decimal.RequireFromString("275000.50")) {
		t.Errorf("insured amount does not round-trip exactly: %s", found.InsuredAmount)
	}
	if !found.Coverages["COLLISION"].Equal(decimal.RequireFromString("100000.00")) {
		t.Error("coverages do not round-trip")
	}
	if len(found.Assistances) != 2 {
		t.Errorf("expected 2 assistances, got %d", len(found.Assistances))
	}
	if found.RiskAnalysis != nil {
		t.Error("expected nil risk analysis")
	}
	if found.FinishedAt != nil {
		t.Error("expected nil finishedAt")
	}
}

func TestFindByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveUpdatesAndHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	req := newRequest(t)
	if _, err := repo.Save(ctx, req); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	req.AttachRiskAnalysis(&domain.RiskAnalysis{
		Classification: domain.RiskRegular,
		AnalyzedAt:     now,
	})
	if err := req.TransitionTo(domain.StatusValidated, now); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := req.TransitionWithReason(domain.StatusRejected, "payment processing failed", now.Add(time.Minute)); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	saved, err := repo.Save(ctx, req)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", saved.Version)
	}

	found, err := repo.FindByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Status != domain.StatusRejected {
		t.Errorf("expected REJECTED, got %s", found.Status)
	}
	if found.RiskAnalysis == nil || found.RiskAnalysis.Classification != domain.RiskRegular {
		t.Error("risk analysis does not round-trip")
	}
	if len(found.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(found.StatusHistory))
	}
	if found.StatusHistory[0].ToStatus != domain.StatusValidated {
		t.Error("history order lost")
	}
	if found.StatusHistory[1].Reason != "payment processing failed" {
		t.Errorf("reason does not round-trip: %q", found.StatusHistory[1].Reason)
	}
	if found.FinishedAt == nil {
		t.Error("expected finishedAt for terminal status")
	}
}

func TestSaveVersionConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	req := newRequest(t)
	if _, err := repo.Save(ctx, req); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Two readers load the same version
	first, err := repo.FindByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	second, err := repo.FindByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	now := time.Now().UTC()
	if err := first.TransitionTo(domain.StatusValidated, now); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	if err := second.TransitionTo(domain.StatusCancelled, now); err != nil {
		t.Fatal(err)
	}
	_, err = repo.Save(ctx, second)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for stale writer, got %v", err)
	}
}

func TestFindByCustomerID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		req := newRequest(t)
		req.CustomerID = customerID
		req.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := repo.Save(ctx, req); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	// Another customer's request must not appear
	other := newRequest(t)
	if _, err := repo.Save(ctx, other); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	found, err := repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(found))
	}
	for i := 1; i < len(found); i++ {
		if found[i-1].CreatedAt.Before(found[i].CreatedAt) {
			t.Error("expected newest-first ordering")
		}
	}

	empty, err := repo.FindByCustomerID(ctx, uuid.New())
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no requests for unknown customer, got %d", len(empty))
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}
