// Package convert implements the pure conversion engine: given a rate
// snapshot, currency metadata and a request, it produces rounded converted
// amounts. It performs no I/O and never fails; missing data degrades to
// documented fallbacks instead.
package convert

import (
	"math"

	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
)

// NegligibleThreshold is the rounded value below which a conversion result
// is flagged as negligible, so callers can warn that it may display as
// zero. The threshold lives here and nowhere else.
const NegligibleThreshold = 0.01

// fallbackRate substitutes for a rate missing from the snapshot. The result
// then equals the (snapped) base amount, as if destination equaled base;
// such entries carry IsFallbackRate so callers can tell real rates apart.
const fallbackRate = 1.0

// DigitsSource resolves a currency's decimal precision, including the
// absent-metadata fallback.
type DigitsSource interface {
	DecimalDigits(code currency.Code) int
}

// Round rounds v to the given number of decimal places using round half
// away from zero. Every place the engine rounds amounts uses this function
// so boundary values behave identically everywhere.
func Round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// Convert converts the request's base amount into each destination
// currency using the given snapshot. The base amount is first snapped to
// the base currency's own precision, matching how user-entered amounts are
// treated at the edge. An empty destination list yields an empty result.
func Convert(req model.ConversionRequest, snapshot *model.RateSnapshot, digits DigitsSource) model.ConversionResult {
	baseAmount := Round(req.Amount, digits.DecimalDigits(req.Base))

	result := model.ConversionResult{
		Base:       req.Base,
		BaseAmount: baseAmount,
		Amounts:    make(map[currency.Code]model.ConvertedAmount, len(req.Destinations)),
	}
	if snapshot != nil {
		result.SnapshotID = snapshot.ID
	}

	for _, dest := range req.Destinations {
		rate := fallbackRate
		fallback := true
		if snapshot != nil {
			if r, ok := snapshot.Rate(dest); ok {
				rate = r
				fallback = false
			}
		}

		rounded := Round(baseAmount*rate, digits.DecimalDigits(dest))

		result.Amounts[dest] = model.ConvertedAmount{
			Amount:         rounded,
			Rate:           rate,
			IsNegligible:   rounded < NegligibleThreshold,
			IsFallbackRate: fallback,
		}
	}

	return result
}
