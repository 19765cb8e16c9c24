package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-insurance/heron/internal/bus"
	"github.com/opensource-insurance/heron/internal/cache"
	"github.com/opensource-insurance/heron/internal/domain"
	"github.com/opensource-insurance/heron/internal/payment"
	"github.com/opensource-insurance/heron/internal/repository"
	"github.com/opensource-insurance/heron/internal/subscription"
	"github.com/opensource-insurance/heron/internal/workflow"
)

// fixedAnalyzer returns the same classification for every customer so
// tests control the risk outcome.
type fixedAnalyzer struct {
	classification domain.RiskClassification
}

func (a *fixedAnalyzer) AnalyzeFraud(ctx context.Context, requestID, customerID uuid.UUID) (*domain.RiskAnalysis, error) {
	return &domain.RiskAnalysis{
		Classification: a.classification,
		AnalyzedAt:     time.Now().UTC(),
	}, nil
}

func newTestServer(t *testing.T, classification domain.RiskClassification) *Server {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "heron_api_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cacheImpl := cache.NewLRUCache(100)
	busImpl := bus.NewChannelBus(100)
	t.Cleanup(func() { busImpl.Close() })

	analyzer := &fixedAnalyzer{classification: classification}
	svc := workflow.NewService(repo, busImpl, analyzer,
		payment.NewService(busImpl, nil),
		subscription.NewService(busImpl, nil),
		workflow.WithCache(cacheImpl, time.Minute),
	)

	return NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 0}, svc, repo, cacheImpl, busImpl, "test")
}

func createBody() map[string]any {
	return map[string]any{
		"customerId":                uuid.New().String(),
		"productId":                 uuid.New().String(),
		"category":                  "AUTO",
		"salesChannel":              "MOBILE",
		"paymentMethod":             "CREDIT_CARD",
		"totalMonthlyPremiumAmount": "75.25",
		"insuredAmount":             "275000.50",
		"coverages": map[string]string{
			"COLLISION": "100000.00",
		},
		"assistances": []string{"24H_TOWING"},
	}
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeRequest(t *testing.T, rec *httptest.ResponseRecorder) *domain.PolicyRequest {
	t.Helper()
	var req domain.PolicyRequest
	if err := json.NewDecoder(rec.Body).Decode(&req); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &req
}

func mustCreate(t *testing.T, srv *Server) *domain.PolicyRequest {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests", createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: status %d body %s", rec.Code, rec.Body.String())
	}
	return decodeRequest(t, rec)
}

func TestCreatePolicyRequest(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	t.Run("Created", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests", createBody())
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		req := decodeRequest(t, rec)
		if req.Status != domain.StatusReceived {
			t.Errorf("expected RECEIVED, got %s", req.Status)
		}
		if req.ID == uuid.Nil {
			t.Error("expected generated id")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/policy-requests",
			bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		body := createBody()
		delete(body, "coverages")
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestGetPolicyRequest(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	created := mustCreate(t, srv)

	t.Run("Found", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/policy-requests/"+created.ID.String(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		req := decodeRequest(t, rec)
		if req.ID != created.ID {
			t.Error("id mismatch")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/policy-requests/"+uuid.New().String(), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("BadID", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/policy-requests/not-a-uuid", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestListByCustomer(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	body := createBody()
	customerID := body["customerId"].(string)
	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create failed: %d", rec.Code)
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/policy-requests/customer/"+customerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var reqs []*domain.PolicyRequest
	if err := json.NewDecoder(rec.Body).Decode(&reqs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(reqs) != 2 {
		t.Errorf("expected 2 requests, got %d", len(reqs))
	}

	// Unknown customer gets an empty list, not 404
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/policy-requests/customer/"+uuid.New().String(), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	created := mustCreate(t, srv)
	base := "/api/v1/policy-requests/" + created.ID.String()

	rec := doJSON(t, srv, http.MethodPost, base+"/fraud-analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fraud-analysis failed: %d %s", rec.Code, rec.Body.String())
	}
	req := decodeRequest(t, rec)
	if req.Status != domain.StatusValidated {
		t.Fatalf("expected VALIDATED, got %s", req.Status)
	}
	if req.RiskAnalysis == nil {
		t.Fatal("expected risk analysis attached")
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/payment", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("payment failed: %d %s", rec.Code, rec.Body.String())
	}
	if req = decodeRequest(t, rec); req.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", req.Status)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/subscription", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscription failed: %d %s", rec.Code, rec.Body.String())
	}
	req = decodeRequest(t, rec)
	if req.Status != domain.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", req.Status)
	}
	if len(req.StatusHistory) != 3 {
		t.Errorf("expected 3 history entries, got %d", len(req.StatusHistory))
	}
	if req.FinishedAt == nil {
		t.Error("expected finishedAt for approved request")
	}
}

func TestHighRiskRejection(t *testing.T) {
	srv := newTestServer(t, domain.RiskHigh)

	created := mustCreate(t, srv)

	// 275000.50 exceeds the HIGH_RISK AUTO ceiling of 250000
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests/"+created.ID.String()+"/fraud-analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fraud-analysis failed: %d", rec.Code)
	}
	req := decodeRequest(t, rec)
	if req.Status != domain.StatusRejected {
		t.Errorf("expected REJECTED, got %s", req.Status)
	}
}

func TestValidateWithoutRiskAnalysis(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	created := mustCreate(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests/"+created.ID.String()+"/validate", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidTransitionConflict(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	created := mustCreate(t, srv)

	// Payment before validation: RECEIVED -> PENDING is not allowed
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests/"+created.ID.String()+"/payment", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelEndpoint(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	t.Run("Cancellable", func(t *testing.T) {
		created := mustCreate(t, srv)
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/policy-requests/"+created.ID.String()+"/cancel", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if req := decodeRequest(t, rec); req.Status != domain.StatusCancelled {
			t.Errorf("expected CANCELLED, got %s", req.Status)
		}
	})

	t.Run("ApprovedNotCancellable", func(t *testing.T) {
		created := mustCreate(t, srv)
		base := "/api/v1/policy-requests/" + created.ID.String()
		for _, step := range []string{"/fraud-analysis", "/payment", "/subscription"} {
			if rec := doJSON(t, srv, http.MethodPost, base+step, nil); rec.Code != http.StatusOK {
				t.Fatalf("step %s failed: %d", step, rec.Code)
			}
		}

		rec := doJSON(t, srv, http.MethodPost, base+"/cancel", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422 for approved request, got %d", rec.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected healthy, got %s", health["status"])
	}
	if health["version"] != "test" {
		t.Errorf("expected version test, got %s", health["version"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, domain.RiskRegular)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id header on response")
	}

	// A supplied request id is echoed back
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	echo := httptest.NewRecorder()
	srv.Router().ServeHTTP(echo, req)
	if got := echo.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected req-123 echoed, got %q", got)
	}
}
