// Package risk implements the fixed insured-amount ceilings applied per
// customer risk classification and insurance category.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/opensource-insurance/heron/internal/domain"
)

// ceilingTable maps a classification to its per-category ceilings. The
// fallback ceiling applies to every category without an explicit entry.
type ceilingTable struct {
	byCategory map[domain.InsuranceCategory]decimal.Decimal
	fallback   decimal.Decimal
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var ceilings = map[domain.RiskClassification]ceilingTable{
	domain.RiskRegular: {
		byCategory: map[domain.InsuranceCategory]decimal.Decimal{
			domain.CategoryLife:        money("500000.00"),
			domain.CategoryResidential: money("500000.00"),
			domain.CategoryAuto:        money("350000.00"),
		},
		fallback: money("255000.00"),
	},
	domain.RiskHigh: {
		byCategory: map[domain.InsuranceCategory]decimal.Decimal{
			domain.CategoryAuto:        money("250000.00"),
			domain.CategoryResidential: money("150000.00"),
		},
		fallback: money("125000.00"),
	},
	domain.RiskPreferred: {
		byCategory: map[domain.InsuranceCategory]decimal.Decimal{
			domain.CategoryLife:        money("800000.00"),
			domain.CategoryAuto:        money("450000.00"),
			domain.CategoryResidential: money("450000.00"),
		},
		fallback: money("375000.00"),
	},
	domain.RiskNoInformation: {
		byCategory: map[domain.InsuranceCategory]decimal.Decimal{
			domain.CategoryLife:        money("200000.00"),
			domain.CategoryResidential: money("200000.00"),
			domain.CategoryAuto:        money("75000.00"),
		},
		fallback: money("55000.00"),
	},
}

// CeilingFor returns the maximum insurable amount for a classification
// and category pair. Unknown classifications get the most restrictive
// treatment (NO_INFORMATION).
func CeilingFor(classification domain.RiskClassification, category domain.InsuranceCategory) decimal.Decimal {
	table, ok := ceilings[classification]
	if !ok {
		table = ceilings[domain.RiskNoInformation]
	}
	if ceiling, ok := table.byCategory[category]; ok {
		return ceiling
	}
	return table.fallback
}

// Acceptable reports whether an insured amount is within the ceiling for
// the classification and category. The ceiling itself is acceptable.
func Acceptable(classification domain.RiskClassification, category domain.InsuranceCategory, amount decimal.Decimal) bool {
	return amount.Cmp(CeilingFor(classification, category)) <= 0
}
