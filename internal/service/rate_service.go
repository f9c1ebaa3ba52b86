package service

import (
	"context"
	"fmt"
	"time"

	"github.com/converta/converta-server/internal/config"
	"github.com/converta/converta-server/internal/convert"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/fetcher"
	"github.com/converta/converta-server/internal/metadata"
	"github.com/converta/converta-server/internal/metrics"
	"github.com/converta/converta-server/internal/model"
	"github.com/converta/converta-server/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Snapshot kinds used for cache and fetch metrics labels.
const (
	kindLatest     = "latest"
	kindHistorical = "historical"
	kindCrypto     = "crypto"
)

// RateService orchestrates metadata loading, snapshot fetching (with a
// cache in front of the provider) and conversions. It performs no retries:
// a failed fetch surfaces its taxonomy error unchanged.
type RateService struct {
	config   *config.Config
	fetcher  fetcher.Fetcher
	repo     repository.SnapshotRepository
	metadata *metadata.Store
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewRateService creates a new RateService with dependency injection.
func NewRateService(
	cfg *config.Config,
	f fetcher.Fetcher,
	repo repository.SnapshotRepository,
	store *metadata.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RateService {
	return &RateService{
		config:   cfg,
		fetcher:  f,
		repo:     repo,
		metadata: store,
		metrics:  m,
		tracer:   otel.Tracer("converta/service"),
		logger:   logger,
	}
}

// Metadata exposes the metadata store for callers that need display
// precision or names, so every fallback stays defined in one place.
func (s *RateService) Metadata() *metadata.Store {
	return s.metadata
}

// LatestSnapshot returns the latest rates for base, from cache when
// possible. A non-empty subset restricts the snapshot to those currencies.
func (s *RateService) LatestSnapshot(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error) {
	subsetKey := ""
	if len(subset) > 0 {
		subsetKey = joinCodes(subset)
	}
	return s.snapshot(ctx, kindLatest, base, time.Time{}, subsetKey, func(ctx context.Context) (*model.RateSnapshot, error) {
		return s.fetcher.FetchLatest(ctx, base, subset)
	})
}

// HistoricalSnapshot returns rates for base as of date.
func (s *RateService) HistoricalSnapshot(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error) {
	return s.snapshot(ctx, kindHistorical, base, date, "", func(ctx context.Context) (*model.RateSnapshot, error) {
		return s.fetcher.FetchHistorical(ctx, base, date)
	})
}

// CryptoSnapshot returns the latest rates for base restricted to the
// crypto subset.
func (s *RateService) CryptoSnapshot(ctx context.Context, base currency.Code) (*model.RateSnapshot, error) {
	return s.snapshot(ctx, kindCrypto, base, time.Time{}, currency.CryptoListParam(), func(ctx context.Context) (*model.RateSnapshot, error) {
		return s.fetcher.FetchCryptoRates(ctx, base)
	})
}

func (s *RateService) snapshot(
	ctx context.Context,
	kind string,
	base currency.Code,
	asOf time.Time,
	subsetKey string,
	fetch func(ctx context.Context) (*model.RateSnapshot, error),
) (*model.RateSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "snapshot",
		trace.WithAttributes(
			attribute.String("snapshot.kind", kind),
			attribute.String("snapshot.base", string(base)),
		))
	defer span.End()

	cached, err := s.repo.GetSnapshot(ctx, base, asOf, subsetKey)
	if err != nil {
		s.logger.Warn("snapshot cache lookup failed", zap.Error(err))
		// Continue to fetch from provider
	}
	if cached != nil {
		s.metrics.RecordCacheHit(kind)
		s.logger.Debug("snapshot cache hit",
			zap.String("kind", kind),
			zap.String("base", string(base)),
			zap.String("snapshotId", cached.ID),
		)
		return cached, nil
	}
	s.metrics.RecordCacheMiss(kind)

	start := time.Now()
	snap, err := fetch(ctx)
	if err != nil {
		s.metrics.RecordFetch(kind, "error", time.Since(start).Seconds())
		s.logger.Error("failed to fetch snapshot",
			zap.String("kind", kind),
			zap.String("base", string(base)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch %s snapshot for %s: %w", kind, base, err)
	}
	s.metrics.RecordFetch(kind, "success", time.Since(start).Seconds())

	cacheTTL := time.Duration(s.config.SnapshotCacheTTL) * time.Second
	if err := s.repo.SaveSnapshot(ctx, snap, subsetKey, cacheTTL); err != nil {
		s.logger.Warn("failed to cache snapshot", zap.Error(err))
		// Don't fail the request, just log
	}

	s.logger.Info("fetched snapshot from provider",
		zap.String("kind", kind),
		zap.String("base", string(base)),
		zap.Int("rates", len(snap.Rates)),
	)
	return snap, nil
}

// Convert converts a request against latest rates, or historical rates
// when the request carries an as-of date. Metadata is loaded lazily, once.
func (s *RateService) Convert(ctx context.Context, req model.ConversionRequest) (*model.ConversionResult, error) {
	ctx, span := s.tracer.Start(ctx, "convert",
		trace.WithAttributes(attribute.String("convert.base", string(req.Base))))
	defer span.End()

	if err := s.ensureMetadata(ctx); err != nil {
		return nil, err
	}

	var snap *model.RateSnapshot
	var err error
	if req.AsOf.IsZero() {
		snap, err = s.LatestSnapshot(ctx, req.Base, nil)
	} else {
		snap, err = s.HistoricalSnapshot(ctx, req.Base, req.AsOf)
	}
	if err != nil {
		return nil, err
	}

	return s.finishConversion(req, snap), nil
}

// ConvertCrypto converts a request against the crypto snapshot for its
// base. An empty destination list defaults to the whole crypto subset.
func (s *RateService) ConvertCrypto(ctx context.Context, req model.ConversionRequest) (*model.ConversionResult, error) {
	ctx, span := s.tracer.Start(ctx, "convert_crypto",
		trace.WithAttributes(attribute.String("convert.base", string(req.Base))))
	defer span.End()

	if err := s.ensureMetadata(ctx); err != nil {
		return nil, err
	}

	if len(req.Destinations) == 0 {
		req.Destinations = currency.CryptoCodes()
	}

	snap, err := s.CryptoSnapshot(ctx, req.Base)
	if err != nil {
		return nil, err
	}

	return s.finishConversion(req, snap), nil
}

func (s *RateService) finishConversion(req model.ConversionRequest, snap *model.RateSnapshot) *model.ConversionResult {
	result := convert.Convert(req, snap, s.metadata)
	result.RequestID = uuid.New().String()

	fallbacks, negligible := 0, 0
	for _, a := range result.Amounts {
		if a.IsFallbackRate {
			fallbacks++
		}
		if a.IsNegligible {
			negligible++
		}
	}
	s.metrics.RecordConversion(string(req.Base), fallbacks, negligible)

	s.logger.Debug("conversion complete",
		zap.String("requestId", result.RequestID),
		zap.String("base", string(req.Base)),
		zap.Float64("baseAmount", result.BaseAmount),
		zap.Int("destinations", len(result.Amounts)),
		zap.Int("fallbackRates", fallbacks),
	)
	return &result
}

// Currencies returns the loaded metadata in catalog order, fiat first and
// then the crypto subset. Codes without metadata are skipped.
func (s *RateService) Currencies(ctx context.Context) ([]model.Metadata, error) {
	if err := s.ensureMetadata(ctx); err != nil {
		return nil, err
	}

	codes := append(currency.AllCodes(), currency.CryptoCodes()...)
	out := make([]model.Metadata, 0, len(codes))
	for _, code := range codes {
		if m, ok := s.metadata.MetadataFor(code); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *RateService) ensureMetadata(ctx context.Context) error {
	if s.metadata.Loaded() {
		return nil
	}
	if err := s.metadata.Load(ctx); err != nil {
		s.metrics.RecordMetadataLoad("error")
		return fmt.Errorf("load currency metadata: %w", err)
	}
	s.metrics.RecordMetadataLoad("success")
	return nil
}

// Health checks if the service and its dependencies are healthy.
func (s *RateService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}

func joinCodes(codes []currency.Code) string {
	s := ""
	for i, c := range codes {
		if i > 0 {
			s += ","
		}
		s += string(c)
	}
	return s
}
