package metadata

import (
	"context"
	"sync"

	"github.com/converta/converta-server/internal/api"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FallbackDecimalDigits is the precision used for any currency whose
// metadata is absent or not yet loaded. Converted amounts must not flicker
// between differently-rounded values while metadata arrives, so every
// lookup goes through this one fallback.
const FallbackDecimalDigits = 2

// CurrenciesClient fetches the provider's currency metadata document.
type CurrenciesClient interface {
	Currencies(ctx context.Context) (*api.CurrenciesResponse, error)
}

// Store holds per-currency display metadata for the lifetime of the
// process. It is loaded once; afterwards it is read-only.
type Store struct {
	client CurrenciesClient
	logger *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	loaded  bool
	entries map[currency.Code]model.Metadata
}

// NewStore creates an empty metadata store backed by client.
func NewStore(client CurrenciesClient, logger *zap.Logger) *Store {
	return &Store{
		client:  client,
		logger:  logger,
		entries: make(map[currency.Code]model.Metadata),
	}
}

// Load fetches the metadata document. It is idempotent: a call after a
// successful load is a no-op, and concurrent calls while a load is in
// flight coalesce into a single fetch.
func (s *Store) Load(ctx context.Context) error {
	s.mu.RLock()
	if s.loaded {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	_, err, _ := s.group.Do("load", func() (interface{}, error) {
		resp, err := s.client.Currencies(ctx)
		if err != nil {
			return nil, err
		}

		entries := make(map[currency.Code]model.Metadata, len(resp.Data))
		for code, entry := range resp.Data {
			// A null entry means the provider has no metadata for this
			// code. Treat it as absent, same as a missing key.
			if entry == nil {
				continue
			}
			entries[currency.Code(code)] = model.Metadata{
				Code:              currency.Code(code),
				Name:              entry.Name,
				NamePlural:        entry.NamePlural,
				Symbol:            entry.Symbol,
				SymbolNative:      entry.SymbolNative,
				DecimalDigits:     entry.DecimalDigits,
				RoundingIncrement: entry.Rounding,
			}
		}

		s.mu.Lock()
		s.entries = entries
		s.loaded = true
		s.mu.Unlock()

		s.logger.Info("currency metadata loaded", zap.Int("currencies", len(entries)))
		return nil, nil
	})
	return err
}

// Loaded reports whether a load has completed successfully.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// MetadataFor returns the metadata for code, or ok=false if metadata has
// not loaded yet or the code is unknown.
func (s *Store) MetadataFor(code currency.Code) (model.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[code]
	return m, ok
}

// DecimalDigits returns code's display precision, falling back to
// FallbackDecimalDigits when metadata is absent.
func (s *Store) DecimalDigits(code currency.Code) int {
	if m, ok := s.MetadataFor(code); ok {
		return m.DecimalDigits
	}
	return FallbackDecimalDigits
}

// DisplayName returns code's currency name, falling back to the raw code
// string when metadata is absent.
func (s *Store) DisplayName(code currency.Code) string {
	if m, ok := s.MetadataFor(code); ok {
		return m.Name
	}
	return string(code)
}

// RoundingIncrement returns code's rounding increment, falling back to 0.
func (s *Store) RoundingIncrement(code currency.Code) float64 {
	if m, ok := s.MetadataFor(code); ok {
		return m.RoundingIncrement
	}
	return 0
}
