package model

import (
	"time"

	"github.com/converta/converta-server/internal/currency"
	"github.com/google/uuid"
)

// Metadata holds the display metadata for one currency. It is fetched once
// per session from the provider's currencies endpoint and is read-only
// afterwards.
type Metadata struct {
	Code              currency.Code `json:"code"`
	Name              string        `json:"name"`
	NamePlural        string        `json:"namePlural"`
	Symbol            string        `json:"symbol"`
	SymbolNative      string        `json:"symbolNative"`
	DecimalDigits     int           `json:"decimalDigits"`
	RoundingIncrement float64       `json:"roundingIncrement"`
}

// RateSnapshot is an immutable set of exchange rates for one base currency,
// anchored either to "latest" (zero AsOf) or to a historical calendar date.
// A missing key in Rates means no rate data exists for that currency at this
// base/date, which is distinct from a zero rate; zero never occurs in valid
// provider data and is dropped at construction.
type RateSnapshot struct {
	ID        string                    `json:"id"`
	Base      currency.Code             `json:"base"`
	AsOf      time.Time                 `json:"asOf,omitempty"`
	FetchedAt time.Time                 `json:"fetchedAt"`
	Rates     map[currency.Code]float64 `json:"rates"`
}

// NewRateSnapshot builds an immutable snapshot, dropping non-positive rate
// values since they signal missing data rather than a real rate.
func NewRateSnapshot(base currency.Code, asOf time.Time, rates map[currency.Code]float64) *RateSnapshot {
	clean := make(map[currency.Code]float64, len(rates))
	for code, value := range rates {
		if value > 0 {
			clean[code] = value
		}
	}
	return &RateSnapshot{
		ID:        uuid.New().String(),
		Base:      base,
		AsOf:      asOf,
		FetchedAt: time.Now(),
		Rates:     clean,
	}
}

// Rate returns the rate for code and whether it is present.
func (s *RateSnapshot) Rate(code currency.Code) (float64, bool) {
	v, ok := s.Rates[code]
	return v, ok
}

// IsHistorical reports whether the snapshot is anchored to a past date
// rather than to the latest rates.
func (s *RateSnapshot) IsHistorical() bool {
	return !s.AsOf.IsZero()
}

// ConversionRequest is the input to a conversion: a base currency, the
// amount denominated in it, the destination currencies, and optionally the
// historical date the rates should be anchored to.
type ConversionRequest struct {
	Base         currency.Code   `json:"base"`
	Amount       float64         `json:"amount"`
	Destinations []currency.Code `json:"destinations"`
	AsOf         time.Time       `json:"asOf,omitempty"`
}

// ConvertedAmount is the conversion outcome for a single destination
// currency. Rate is the raw rate used so callers can render a rate-info
// line next to the rounded amount.
type ConvertedAmount struct {
	Amount         float64 `json:"amount"`
	Rate           float64 `json:"rate"`
	IsNegligible   bool    `json:"isNegligible"`
	IsFallbackRate bool    `json:"isFallbackRate"`
}

// ConversionResult maps each destination currency to its converted amount.
// BaseAmount is the base amount after snapping to the base currency's
// decimal digits, i.e. the value the conversion actually used.
type ConversionResult struct {
	RequestID  string                            `json:"requestId,omitempty"`
	Base       currency.Code                     `json:"base"`
	BaseAmount float64                           `json:"baseAmount"`
	SnapshotID string                            `json:"snapshotId,omitempty"`
	Amounts    map[currency.Code]ConvertedAmount `json:"amounts"`
}
