// Package fraud integrates the external fraud analysis service.
package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-insurance/heron/internal/domain"
)

// Client calls the external fraud analysis API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a fraud analysis client for the given API URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
}

type analyzeResponse struct {
	OrderID        uuid.UUID            `json:"orderId"`
	CustomerID     uuid.UUID            `json:"customerId"`
	AnalyzedAt     time.Time            `json:"analyzedAt"`
	Classification string               `json:"classification"`
	Occurrences    []occurrenceResponse `json:"occurrences"`
}

type occurrenceResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AnalyzeFraud requests a risk classification for a policy request.
func (c *Client) AnalyzeFraud(ctx context.Context, requestID, customerID uuid.UUID) (*domain.RiskAnalysis, error) {
	body, err := json.Marshal(analyzeRequest{OrderID: requestID, CustomerID: customerID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fraud analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build fraud analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fraud analysis call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fraud analysis returned status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode fraud analysis response: %w", err)
	}

	slog.Debug("fraud analysis completed",
		"request_id", requestID,
		"classification", parsed.Classification,
		"occurrences", len(parsed.Occurrences),
	)

	analysis := &domain.RiskAnalysis{
		Classification: domain.RiskClassification(parsed.Classification),
		AnalyzedAt:     parsed.AnalyzedAt,
	}
	for _, occ := range parsed.Occurrences {
		analysis.Occurrences = append(analysis.Occurrences, domain.RiskOccurrence{
			ProductID:   occ.ID,
			Type:        occ.Type,
			Description: occ.Description,
			CreatedAt:   occ.CreatedAt,
			UpdatedAt:   occ.UpdatedAt,
		})
	}

	return analysis, nil
}
