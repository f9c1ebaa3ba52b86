// Package session models the independent conversion contexts: each one
// owns its base currency, base amount and the most recently fetched rate
// snapshot. Changing a context's base or date invalidates only that
// context's snapshot.
package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/converta/converta-server/internal/convert"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
	"go.uber.org/zap"
)

// Kind identifies which conversion context a Context drives.
type Kind string

const (
	KindHome       Kind = "home"
	KindHistorical Kind = "historical"
	KindCrypto     Kind = "crypto"
)

// ErrNoSnapshot is returned when a conversion is requested before the
// context has a valid snapshot (not yet fetched, or invalidated).
var ErrNoSnapshot = errors.New("no rate snapshot available, refresh first")

// ErrInvalidCurrency is returned for base currencies outside the catalog.
var ErrInvalidCurrency = errors.New("unknown currency code")

// SnapshotSource provides fresh snapshots for a context refresh.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context, base currency.Code, subset []currency.Code) (*model.RateSnapshot, error)
	HistoricalSnapshot(ctx context.Context, base currency.Code, date time.Time) (*model.RateSnapshot, error)
	CryptoSnapshot(ctx context.Context, base currency.Code) (*model.RateSnapshot, error)
}

// Context is one conversion context. All methods are safe for concurrent
// use. A refresh that finishes after the context changed underneath it is
// discarded: last request wins.
type Context struct {
	kind   Kind
	source SnapshotSource
	digits convert.DigitsSource
	logger *zap.Logger

	mu         sync.Mutex
	base       currency.Code
	amount     float64
	date       time.Time
	snapshot   *model.RateSnapshot
	generation uint64
}

// NewContext creates a context with the default base currency and amount.
func NewContext(kind Kind, source SnapshotSource, digits convert.DigitsSource, base currency.Code, amount float64, logger *zap.Logger) *Context {
	return &Context{
		kind:   kind,
		source: source,
		digits: digits,
		logger: logger,
		base:   base,
		amount: amount,
	}
}

// Kind returns the context kind.
func (c *Context) Kind() Kind {
	return c.kind
}

// Base returns the context's base currency.
func (c *Context) Base() currency.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

// Amount returns the context's base amount.
func (c *Context) Amount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.amount
}

// Date returns the historical date, zero for non-historical contexts.
func (c *Context) Date() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// HasSnapshot reports whether the context holds a valid snapshot.
func (c *Context) HasSnapshot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot != nil
}

// SetBaseCurrency switches the base currency and invalidates the held
// snapshot; conversions are invalid until the next successful Refresh.
func (c *Context) SetBaseCurrency(code currency.Code) error {
	if !currency.IsValid(string(code)) {
		return ErrInvalidCurrency
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if code == c.base {
		return nil
	}
	c.base = code
	c.invalidateLocked()
	return nil
}

// SetAmount sets the base amount, snapped to the base currency's decimal
// digits. Invalid values fall back to 1.00, the same default applied to
// unparseable user input at the edge.
func (c *Context) SetAmount(v float64) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 1.00
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amount = convert.Round(v, c.digits.DecimalDigits(c.base))
}

// SetDate sets the historical date and invalidates the snapshot. Only
// historical contexts carry a date.
func (c *Context) SetDate(d time.Time) error {
	if c.kind != KindHistorical {
		return errors.New("date applies only to the historical context")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.Equal(c.date) {
		return nil
	}
	c.date = d
	c.invalidateLocked()
	return nil
}

func (c *Context) invalidateLocked() {
	c.snapshot = nil
	c.generation++
}

// Refresh fetches a new snapshot for the context's current base (and date,
// for historical contexts). If the context changed while the fetch was in
// flight the stale response is discarded.
func (c *Context) Refresh(ctx context.Context) error {
	c.mu.Lock()
	base := c.base
	date := c.date
	gen := c.generation
	c.mu.Unlock()

	var snap *model.RateSnapshot
	var err error
	switch c.kind {
	case KindHistorical:
		snap, err = c.source.HistoricalSnapshot(ctx, base, date)
	case KindCrypto:
		snap, err = c.source.CryptoSnapshot(ctx, base)
	default:
		snap, err = c.source.LatestSnapshot(ctx, base, nil)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("discarding stale snapshot",
			zap.String("kind", string(c.kind)),
			zap.String("base", string(base)),
			zap.String("snapshotId", snap.ID),
		)
		return nil
	}
	c.snapshot = snap
	return nil
}

// Result converts the context's amount into the given destinations using
// the held snapshot.
func (c *Context) Result(destinations []currency.Code) (*model.ConversionResult, error) {
	c.mu.Lock()
	snap := c.snapshot
	base := c.base
	amount := c.amount
	date := c.date
	c.mu.Unlock()

	if snap == nil {
		return nil, ErrNoSnapshot
	}

	req := model.ConversionRequest{
		Base:         base,
		Amount:       amount,
		Destinations: destinations,
		AsOf:         date,
	}
	result := convert.Convert(req, snap, c.digits)
	return &result, nil
}

// Manager owns the three independent conversion contexts.
type Manager struct {
	contexts map[Kind]*Context
}

// NewManager creates the home, historical and crypto contexts with shared
// defaults.
func NewManager(source SnapshotSource, digits convert.DigitsSource, defaultBase currency.Code, defaultAmount float64, logger *zap.Logger) *Manager {
	return &Manager{
		contexts: map[Kind]*Context{
			KindHome:       NewContext(KindHome, source, digits, defaultBase, defaultAmount, logger),
			KindHistorical: NewContext(KindHistorical, source, digits, defaultBase, defaultAmount, logger),
			KindCrypto:     NewContext(KindCrypto, source, digits, defaultBase, defaultAmount, logger),
		},
	}
}

// Get returns the context for kind.
func (m *Manager) Get(kind Kind) (*Context, bool) {
	c, ok := m.contexts[kind]
	return c, ok
}
