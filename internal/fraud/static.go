package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-insurance/heron/internal/domain"
)

// Static is a deterministic in-process classifier used when no fraud API
// is configured. The classification is derived from the customer id so
// repeated runs stay stable.
type Static struct {
	clock func() time.Time
}

// NewStatic creates a static classifier. A nil clock uses time.Now.
func NewStatic(clock func() time.Time) *Static {
	if clock == nil {
		clock = time.Now
	}
	return &Static{clock: clock}
}

var staticBuckets = []domain.RiskClassification{
	domain.RiskRegular,
	domain.RiskHigh,
	domain.RiskPreferred,
	domain.RiskNoInformation,
}

// AnalyzeFraud classifies the customer by hashing its id into one of the
// four risk buckets.
func (s *Static) AnalyzeFraud(ctx context.Context, requestID, customerID uuid.UUID) (*domain.RiskAnalysis, error) {
	var sum int
	for _, b := range customerID {
		sum += int(b)
	}
	return &domain.RiskAnalysis{
		Classification: staticBuckets[sum%len(staticBuckets)],
		AnalyzedAt:     s.clock(),
	}, nil
}
