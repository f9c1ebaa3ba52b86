package convert

import (
	"math"
	"testing"
	"time"

	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
)

// digitsMap implements DigitsSource with the same absent-entry fallback the
// metadata store applies.
type digitsMap map[currency.Code]int

func (d digitsMap) DecimalDigits(code currency.Code) int {
	if v, ok := d[code]; ok {
		return v
	}
	return 2
}

func snapshot(base currency.Code, rates map[currency.Code]float64) *model.RateSnapshot {
	return model.NewRateSnapshot(base, time.Time{}, rates)
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		value  float64
		digits int
		want   float64
	}{
		{1317.50, 0, 1318},
		{149.999, 0, 150},
		{1.239, 2, 1.24},
		{-2.5, 0, -3},
		{0.004, 2, 0},
		{2.5, 0, 3},
		{131750.0, 0, 131750},
	}

	for _, tc := range cases {
		if got := Round(tc.value, tc.digits); got != tc.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tc.value, tc.digits, got, tc.want)
		}
	}
}

func TestRound_Idempotent(t *testing.T) {
	amounts := []float64{0, 0.004, 0.005, 1.239, 2.5, 99.995, 1317.5, 131750.0, 0.000001}

	for digits := 0; digits <= 6; digits++ {
		for _, amount := range amounts {
			once := Round(amount, digits)
			twice := Round(once, digits)
			if once != twice {
				t.Errorf("Round not idempotent: Round(%v, %d) = %v, rounding again gives %v",
					amount, digits, once, twice)
			}
		}
	}
}

func TestConvert_RoundsPerDestinationDigits(t *testing.T) {
	digits := digitsMap{"USD": 2, "KRW": 0, "JPY": 0}

	snap := snapshot("USD", map[currency.Code]float64{
		"KRW": 1317.50,
		"JPY": 149.999,
	})

	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       1,
		Destinations: []currency.Code{"KRW", "JPY"},
	}
	result := Convert(req, snap, digits)

	if got := result.Amounts["KRW"].Amount; got != 1318 {
		t.Errorf("KRW: expected 1318, got %v", got)
	}
	if got := result.Amounts["JPY"].Amount; got != 150 {
		t.Errorf("JPY: expected 150, got %v", got)
	}
	if result.Amounts["KRW"].Rate != 1317.50 {
		t.Errorf("raw rate must be preserved, got %v", result.Amounts["KRW"].Rate)
	}
}

func TestConvert_LargeAmount(t *testing.T) {
	digits := digitsMap{"USD": 2, "KRW": 0}
	snap := snapshot("USD", map[currency.Code]float64{"KRW": 1317.50})

	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       100,
		Destinations: []currency.Code{"KRW"},
	}
	result := Convert(req, snap, digits)

	if got := result.Amounts["KRW"].Amount; got != 131750 {
		t.Errorf("expected 131750, got %v", got)
	}
}

func TestConvert_SnapsBaseAmountFirst(t *testing.T) {
	digits := digitsMap{"USD": 2, "EUR": 2}
	snap := snapshot("USD", map[currency.Code]float64{"EUR": 1})

	// "1.239" entered for a 2-digit base collapses to 1.24 before use.
	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       1.239,
		Destinations: []currency.Code{"EUR"},
	}
	result := Convert(req, snap, digits)

	if result.BaseAmount != 1.24 {
		t.Errorf("expected base amount snapped to 1.24, got %v", result.BaseAmount)
	}
	if result.Amounts["EUR"].Amount != 1.24 {
		t.Errorf("expected converted amount 1.24, got %v", result.Amounts["EUR"].Amount)
	}
}

func TestConvert_AbsentRateFallsBackToOne(t *testing.T) {
	digits := digitsMap{"USD": 2}
	snap := snapshot("USD", map[currency.Code]float64{"EUR": 0.91})

	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       5.50,
		Destinations: []currency.Code{"XOF"},
	}
	result := Convert(req, snap, digits)

	entry := result.Amounts["XOF"]
	if !entry.IsFallbackRate {
		t.Error("expected fallback rate flag for absent rate")
	}
	if entry.Rate != 1.0 {
		t.Errorf("expected fallback rate 1.0, got %v", entry.Rate)
	}
	if entry.Amount != result.BaseAmount {
		t.Errorf("fallback conversion must equal snapped base amount, got %v vs %v",
			entry.Amount, result.BaseAmount)
	}
}

func TestConvert_AbsentMetadataRoundsToTwoDigits(t *testing.T) {
	digits := digitsMap{} // nothing known, everything falls back to 2
	snap := snapshot("USD", map[currency.Code]float64{"EUR": 0.912345})

	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       1,
		Destinations: []currency.Code{"EUR"},
	}
	result := Convert(req, snap, digits)

	if got := result.Amounts["EUR"].Amount; got != 0.91 {
		t.Errorf("expected 0.91 with 2-digit fallback, got %v", got)
	}
}

func TestConvert_EmptyDestinations(t *testing.T) {
	digits := digitsMap{"USD": 2}
	snap := snapshot("USD", map[currency.Code]float64{"EUR": 0.91})

	req := model.ConversionRequest{Base: "USD", Amount: 10}
	result := Convert(req, snap, digits)

	if len(result.Amounts) != 0 {
		t.Errorf("expected empty result mapping, got %d entries", len(result.Amounts))
	}
}

func TestConvert_NegligibleFlag(t *testing.T) {
	digits := digitsMap{"USD": 2, "BTC": 8, "EUR": 2}
	snap := snapshot("USD", map[currency.Code]float64{
		"BTC": 0.000037,
		"EUR": 0.91,
	})

	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       1,
		Destinations: []currency.Code{"BTC", "EUR"},
	}
	result := Convert(req, snap, digits)

	if !result.Amounts["BTC"].IsNegligible {
		t.Error("expected BTC result below 0.01 to be flagged negligible")
	}
	if result.Amounts["EUR"].IsNegligible {
		t.Error("EUR result is not negligible")
	}
}

func TestConvert_ZeroRateTreatedAsMissing(t *testing.T) {
	digits := digitsMap{"USD": 2}
	// NewRateSnapshot drops the zero entry, so conversion falls back.
	snap := snapshot("USD", map[currency.Code]float64{"EUR": 0})

	req := model.ConversionRequest{
		Base:         "USD",
		Amount:       3,
		Destinations: []currency.Code{"EUR"},
	}
	result := Convert(req, snap, digits)

	if !result.Amounts["EUR"].IsFallbackRate {
		t.Error("zero rate must behave exactly like a missing rate")
	}
}

// Converting base to destination and back through reciprocal rates from two
// independently fetched snapshots is not invertible: each conversion is
// relative to its own snapshot and rounds independently. This is
// documented behavior, not a bug.
func TestConvert_RoundTripIsNotInvertible(t *testing.T) {
	digits := digitsMap{"USD": 2, "EUR": 2}

	usdSnap := snapshot("USD", map[currency.Code]float64{"EUR": 0.9132})
	// A second snapshot fetched later with a slightly moved market.
	eurSnap := snapshot("EUR", map[currency.Code]float64{"USD": 1.0961})

	forward := Convert(model.ConversionRequest{
		Base: "USD", Amount: 100, Destinations: []currency.Code{"EUR"},
	}, usdSnap, digits)

	back := Convert(model.ConversionRequest{
		Base: "EUR", Amount: forward.Amounts["EUR"].Amount, Destinations: []currency.Code{"USD"},
	}, eurSnap, digits)

	if back.Amounts["USD"].Amount == 100 {
		t.Skip("snapshots happened to invert exactly; the property is that this is not guaranteed")
	}
	if math.Abs(back.Amounts["USD"].Amount-100) > 1 {
		t.Errorf("round trip should stay close to the original amount, got %v", back.Amounts["USD"].Amount)
	}
}
