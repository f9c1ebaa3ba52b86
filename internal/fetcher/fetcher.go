package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/converta/converta-server/internal/api"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
	"go.uber.org/zap"
)

// historicalFloor is the earliest date the provider serves historical data
// for.
var historicalFloor = time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)

// historicalLagDays is how far behind today the historical window ends,
// modelling the provider's publication latency.
const historicalLagDays = 2

// Fetcher obtains rate snapshots from the upstream provider. No
// implementation retries; a failed fetch surfaces one taxonomy error from
// the api package.
type Fetcher interface {
	// FetchLatest returns the latest rates for base. A non-empty subset
	// restricts the snapshot to those currencies.
	FetchLatest(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error)

	// FetchHistorical returns rates for base as of date. Dates before
	// 1999-01-01 or less than two days in the past are rejected with
	// api.InvalidDateError before any I/O.
	FetchHistorical(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error)

	// FetchCryptoRates returns the latest rates for base restricted to the
	// fixed crypto subset.
	FetchCryptoRates(ctx context.Context, base currency.Code) (*model.RateSnapshot, error)
}

// RatesClient is the part of the provider client the fetcher needs.
type RatesClient interface {
	Latest(ctx context.Context, base string, currencies string) (*api.RatesResponse, error)
	Historical(ctx context.Context, date string, base string) (*api.RatesResponse, error)
}

// APIFetcher implements Fetcher against the provider HTTP client.
type APIFetcher struct {
	client RatesClient
	logger *zap.Logger
	now    func() time.Time
}

// New creates a fetcher backed by client.
func New(client RatesClient, logger *zap.Logger) *APIFetcher {
	return &APIFetcher{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (f *APIFetcher) FetchLatest(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
	if !currency.IsValid(string(base)) {
		return nil, api.InvalidRequestError{Reason: "unknown base currency " + string(base)}
	}

	resp, err := f.client.Latest(ctx, string(base), subsetParam(subset))
	if err != nil {
		return nil, err
	}

	snap := snapshotFromResponse(base, time.Time{}, resp)
	f.logger.Debug("fetched latest rates",
		zap.String("base", string(base)),
		zap.Int("rates", len(snap.Rates)),
		zap.Time("lastUpdatedAt", resp.Meta.LastUpdatedAt),
	)
	return snap, nil
}

func (f *APIFetcher) FetchHistorical(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error) {
	if !currency.IsValid(string(base)) {
		return nil, api.InvalidRequestError{Reason: "unknown base currency " + string(base)}
	}

	day := truncateToDay(date)
	max := truncateToDay(f.now().AddDate(0, 0, -historicalLagDays))
	if day.Before(historicalFloor) || day.After(max) {
		return nil, api.InvalidDateError{Date: day, Min: historicalFloor, Max: max}
	}

	resp, err := f.client.Historical(ctx, day.Format("2006-01-02"), string(base))
	if err != nil {
		return nil, err
	}

	snap := snapshotFromResponse(base, day, resp)
	f.logger.Debug("fetched historical rates",
		zap.String("base", string(base)),
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("rates", len(snap.Rates)),
	)
	return snap, nil
}

func (f *APIFetcher) FetchCryptoRates(ctx context.Context, base currency.Code) (*model.RateSnapshot, error) {
	if !currency.IsValid(string(base)) {
		return nil, api.InvalidRequestError{Reason: "unknown base currency " + string(base)}
	}

	resp, err := f.client.Latest(ctx, string(base), currency.CryptoListParam())
	if err != nil {
		return nil, err
	}

	snap := snapshotFromResponse(base, time.Time{}, resp)
	f.logger.Debug("fetched crypto rates",
		zap.String("base", string(base)),
		zap.Int("rates", len(snap.Rates)),
	)
	return snap, nil
}

func snapshotFromResponse(base currency.Code, asOf time.Time, resp *api.RatesResponse) *model.RateSnapshot {
	rates := make(map[currency.Code]float64, len(resp.Data))
	for code, entry := range resp.Data {
		rates[currency.Code(code)] = entry.Value
	}
	return model.NewRateSnapshot(base, asOf, rates)
}

func subsetParam(subset []currency.Code) string {
	if len(subset) == 0 {
		return ""
	}
	parts := make([]string, len(subset))
	for i, c := range subset {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
