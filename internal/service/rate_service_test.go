package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/converta/converta-server/internal/api"
	"github.com/converta/converta-server/internal/config"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/metadata"
	"github.com/converta/converta-server/internal/metrics"
	"github.com/converta/converta-server/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MockFetcher implements fetcher.Fetcher for testing.
type MockFetcher struct {
	FetchLatestFunc     func(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error)
	FetchHistoricalFunc func(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error)
	FetchCryptoFunc     func(ctx context.Context, base currency.Code) (*model.RateSnapshot, error)
}

func (m *MockFetcher) FetchLatest(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
	if m.FetchLatestFunc != nil {
		return m.FetchLatestFunc(ctx, base, subset)
	}
	return model.NewRateSnapshot(base, time.Time{}, map[currency.Code]float64{"EUR": 0.91}), nil
}

func (m *MockFetcher) FetchHistorical(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error) {
	if m.FetchHistoricalFunc != nil {
		return m.FetchHistoricalFunc(ctx, base, date)
	}
	return model.NewRateSnapshot(base, date, map[currency.Code]float64{"EUR": 0.89}), nil
}

func (m *MockFetcher) FetchCryptoRates(ctx context.Context, base currency.Code) (*model.RateSnapshot, error) {
	if m.FetchCryptoFunc != nil {
		return m.FetchCryptoFunc(ctx, base)
	}
	return model.NewRateSnapshot(base, time.Time{}, map[currency.Code]float64{"BTC": 0.000037}), nil
}

// MockRepository implements repository.SnapshotRepository in memory.
type MockRepository struct {
	snapshots map[string]*model.RateSnapshot
	SaveFunc  func(ctx context.Context, snap *model.RateSnapshot, subset string, ttl time.Duration) error
	GetFunc   func(ctx context.Context, base currency.Code, asOf time.Time, subset string) (*model.RateSnapshot, error)
}

func NewMockRepository() *MockRepository {
	return &MockRepository{snapshots: make(map[string]*model.RateSnapshot)}
}

func mockKey(base currency.Code, asOf time.Time, subset string) string {
	return string(base) + ":" + asOf.Format("2006-01-02") + ":" + subset
}

func (m *MockRepository) SaveSnapshot(ctx context.Context, snap *model.RateSnapshot, subset string, ttl time.Duration) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, snap, subset, ttl)
	}
	m.snapshots[mockKey(snap.Base, snap.AsOf, subset)] = snap
	return nil
}

func (m *MockRepository) GetSnapshot(ctx context.Context, base currency.Code, asOf time.Time, subset string) (*model.RateSnapshot, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, base, asOf, subset)
	}
	snap, ok := m.snapshots[mockKey(base, asOf, subset)]
	if !ok {
		return nil, nil // Cache miss
	}
	return snap, nil
}

func (m *MockRepository) Health(ctx context.Context) error {
	return nil
}

// metadataClient serves a fixed currencies document.
type metadataClient struct {
	response *api.CurrenciesResponse
	err      error
}

func (c *metadataClient) Currencies(ctx context.Context) (*api.CurrenciesResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

func testMetadataResponse() *api.CurrenciesResponse {
	return &api.CurrenciesResponse{
		Data: map[string]*api.MetadataEntry{
			"USD": {Symbol: "$", Name: "US Dollar", DecimalDigits: 2, Code: "USD"},
			"EUR": {Symbol: "€", Name: "Euro", DecimalDigits: 2, Code: "EUR"},
			"KRW": {Symbol: "₩", Name: "South Korean Won", DecimalDigits: 0, Code: "KRW"},
		},
	}
}

func newTestService() (*RateService, *MockFetcher, *MockRepository) {
	cfg := &config.Config{SnapshotCacheTTL: 60}
	mockFetcher := &MockFetcher{}
	mockRepo := NewMockRepository()
	store := metadata.NewStore(&metadataClient{response: testMetadataResponse()}, zap.NewNop())
	m := metrics.New("test", prometheus.NewRegistry())

	svc := NewRateService(cfg, mockFetcher, mockRepo, store, m, zap.NewNop())
	return svc, mockFetcher, mockRepo
}

func TestLatestSnapshot_CacheMissFetchesAndSaves(t *testing.T) {
	svc, mockFetcher, mockRepo := newTestService()

	fetcherCalled := false
	mockFetcher.FetchLatestFunc = func(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
		fetcherCalled = true
		return model.NewRateSnapshot(base, time.Time{}, map[currency.Code]float64{"EUR": 0.91}), nil
	}

	snap, err := svc.LatestSnapshot(context.Background(), "USD", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fetcherCalled {
		t.Error("expected fetcher to be called on cache miss")
	}
	if snap.Base != "USD" {
		t.Errorf("unexpected base: %s", snap.Base)
	}

	if cached, _ := mockRepo.GetSnapshot(context.Background(), "USD", time.Time{}, ""); cached == nil {
		t.Error("expected snapshot to be cached after fetch")
	}
}

func TestLatestSnapshot_CacheHitSkipsFetcher(t *testing.T) {
	svc, mockFetcher, mockRepo := newTestService()

	seeded := model.NewRateSnapshot("USD", time.Time{}, map[currency.Code]float64{"EUR": 0.91})
	if err := mockRepo.SaveSnapshot(context.Background(), seeded, "", time.Minute); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	mockFetcher.FetchLatestFunc = func(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
		t.Error("fetcher must not be called on cache hit")
		return nil, errors.New("unexpected")
	}

	snap, err := svc.LatestSnapshot(context.Background(), "USD", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ID != seeded.ID {
		t.Error("expected the cached snapshot to be returned")
	}
}

func TestLatestSnapshot_CacheErrorDegradesToFetch(t *testing.T) {
	svc, mockFetcher, mockRepo := newTestService()

	mockRepo.GetFunc = func(ctx context.Context, base currency.Code, asOf time.Time, subset string) (*model.RateSnapshot, error) {
		return nil, errors.New("redis down")
	}

	fetcherCalled := false
	mockFetcher.FetchLatestFunc = func(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
		fetcherCalled = true
		return model.NewRateSnapshot(base, time.Time{}, map[currency.Code]float64{"EUR": 0.91}), nil
	}

	if _, err := svc.LatestSnapshot(context.Background(), "USD", nil); err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	if !fetcherCalled {
		t.Error("expected provider fetch after cache failure")
	}
}

func TestConvert_UsesLatestRates(t *testing.T) {
	svc, mockFetcher, _ := newTestService()

	mockFetcher.FetchLatestFunc = func(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
		return model.NewRateSnapshot(base, time.Time{}, map[currency.Code]float64{"KRW": 1317.5}), nil
	}

	result, err := svc.Convert(context.Background(), model.ConversionRequest{
		Base:         "USD",
		Amount:       1,
		Destinations: []currency.Code{"KRW"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RequestID == "" {
		t.Error("expected a request id")
	}
	if got := result.Amounts["KRW"].Amount; got != 1318 {
		t.Errorf("expected 1318 with KRW 0-digit rounding, got %v", got)
	}
}

func TestConvert_RoutesHistoricalByDate(t *testing.T) {
	svc, mockFetcher, _ := newTestService()

	var gotDate time.Time
	mockFetcher.FetchHistoricalFunc = func(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error) {
		gotDate = date
		return model.NewRateSnapshot(base, date, map[currency.Code]float64{"EUR": 0.89}), nil
	}

	asOf := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	result, err := svc.Convert(context.Background(), model.ConversionRequest{
		Base:         "USD",
		Amount:       100,
		Destinations: []currency.Code{"EUR"},
		AsOf:         asOf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotDate.Equal(asOf) {
		t.Errorf("expected historical fetch for %v, got %v", asOf, gotDate)
	}
	if got := result.Amounts["EUR"].Amount; got != 89 {
		t.Errorf("expected 89, got %v", got)
	}
}

func TestConvert_TaxonomyErrorsPropagate(t *testing.T) {
	svc, mockFetcher, _ := newTestService()

	mockFetcher.FetchLatestFunc = func(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
		return nil, api.UpstreamError{StatusCode: 502}
	}

	_, err := svc.Convert(context.Background(), model.ConversionRequest{
		Base:         "USD",
		Amount:       1,
		Destinations: []currency.Code{"EUR"},
	})

	var upstream api.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError to surface unchanged, got %v", err)
	}
}

func TestConvert_MetadataLoadFailureBlocksConversion(t *testing.T) {
	cfg := &config.Config{SnapshotCacheTTL: 60}
	store := metadata.NewStore(&metadataClient{err: api.TransportError{Err: errors.New("offline")}}, zap.NewNop())
	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewRateService(cfg, &MockFetcher{}, NewMockRepository(), store, m, zap.NewNop())

	_, err := svc.Convert(context.Background(), model.ConversionRequest{
		Base:         "USD",
		Amount:       1,
		Destinations: []currency.Code{"EUR"},
	})

	var transport api.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected metadata TransportError to surface, got %v", err)
	}
}

func TestConvertCrypto_DefaultsToSubset(t *testing.T) {
	svc, mockFetcher, _ := newTestService()

	mockFetcher.FetchCryptoFunc = func(ctx context.Context, base currency.Code) (*model.RateSnapshot, error) {
		return model.NewRateSnapshot(base, time.Time{}, map[currency.Code]float64{
			"BTC": 0.000037, "ETH": 0.00052,
		}), nil
	}

	result, err := svc.ConvertCrypto(context.Background(), model.ConversionRequest{
		Base:   "USD",
		Amount: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Amounts) != len(currency.CryptoCodes()) {
		t.Fatalf("expected one entry per crypto code, got %d", len(result.Amounts))
	}
	// Codes without a rate in the snapshot fall back to 1.0 and are
	// flagged accordingly.
	if !result.Amounts["LTC"].IsFallbackRate {
		t.Error("expected fallback flag for LTC without rate data")
	}
	if result.Amounts["BTC"].IsFallbackRate {
		t.Error("BTC had a real rate")
	}
	if !result.Amounts["BTC"].IsNegligible {
		t.Error("expected BTC amount below 0.01 to be negligible")
	}
}

func TestCurrencies_CatalogOrder(t *testing.T) {
	svc, _, _ := newTestService()

	currencies, err := svc.Currencies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only USD, EUR and KRW have metadata in the test document; EUR
	// precedes KRW which precedes USD in catalog order.
	if len(currencies) != 3 {
		t.Fatalf("expected 3 currencies, got %d", len(currencies))
	}
	if currencies[0].Code != "EUR" || currencies[1].Code != "KRW" || currencies[2].Code != "USD" {
		t.Errorf("unexpected order: %v, %v, %v", currencies[0].Code, currencies[1].Code, currencies[2].Code)
	}
}
