package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/converta/converta-server/internal/api"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/model"
	"github.com/converta/converta-server/internal/service"
	"github.com/converta/converta-server/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	rateService *service.RateService
	sessions    *session.Manager
	logger      *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(rateService *service.RateService, sessions *session.Manager, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		rateService: rateService,
		sessions:    sessions,
		logger:      logger,
	}
}

// SetupRoutes configures the HTTP routes.
func (h *HTTPHandler) SetupRoutes(r *gin.Engine) {
	// Health checks
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	root := r.Group("/api")
	{
		root.GET("/currencies", h.GetCurrencies)

		rates := root.Group("/rates")
		{
			rates.GET("/latest/:base", h.GetLatestRates)
			rates.GET("/historical/:base/:date", h.GetHistoricalRates)
			rates.GET("/crypto/:base", h.GetCryptoRates)
		}

		root.GET("/convert", h.Convert)
		root.GET("/convert/crypto", h.ConvertCrypto)

		contexts := root.Group("/contexts")
		{
			contexts.GET("/:kind", h.GetContext)
			contexts.PUT("/:kind", h.UpdateContext)
			contexts.GET("/:kind/result", h.GetContextResult)
		}
	}
}

// Health returns the health status.
func (h *HTTPHandler) Health(c *gin.Context) {
	if err := h.rateService.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "converta-server",
	})
}

// Ready returns the readiness status.
func (h *HTTPHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "converta-server",
	})
}

// GetCurrencies returns the loaded currency metadata in catalog order.
func (h *HTTPHandler) GetCurrencies(c *gin.Context) {
	currencies, err := h.rateService.Currencies(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

// GetLatestRates returns the latest snapshot for a base currency. An
// optional currencies query restricts the snapshot to a CSV subset.
func (h *HTTPHandler) GetLatestRates(c *gin.Context) {
	base, ok := h.baseParam(c)
	if !ok {
		return
	}

	subset, ok := h.currenciesQuery(c)
	if !ok {
		return
	}

	snap, err := h.rateService.LatestSnapshot(c.Request.Context(), base, subset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetHistoricalRates returns a snapshot for a base currency as of a
// YYYY-MM-DD date.
func (h *HTTPHandler) GetHistoricalRates(c *gin.Context) {
	base, ok := h.baseParam(c)
	if !ok {
		return
	}

	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	snap, err := h.rateService.HistoricalSnapshot(c.Request.Context(), base, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetCryptoRates returns the latest crypto-subset snapshot for a base
// currency.
func (h *HTTPHandler) GetCryptoRates(c *gin.Context) {
	base, ok := h.baseParam(c)
	if !ok {
		return
	}

	snap, err := h.rateService.CryptoSnapshot(c.Request.Context(), base)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Convert converts an amount from a base currency into one or more
// destinations. Query: base, amount, currencies (CSV), optional date.
func (h *HTTPHandler) Convert(c *gin.Context) {
	req, ok := h.conversionRequest(c)
	if !ok {
		return
	}

	result, err := h.rateService.Convert(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConvertCrypto converts an amount into the crypto subset.
func (h *HTTPHandler) ConvertCrypto(c *gin.Context) {
	req, ok := h.conversionRequest(c)
	if !ok {
		return
	}

	result, err := h.rateService.ConvertCrypto(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// contextState is the wire form of a conversion context.
type contextState struct {
	Kind         string  `json:"kind"`
	BaseCurrency string  `json:"baseCurrency"`
	Amount       float64 `json:"amount"`
	Date         string  `json:"date,omitempty"`
	HasSnapshot  bool    `json:"hasSnapshot"`
}

// contextUpdate is the accepted update payload for a conversion context.
type contextUpdate struct {
	BaseCurrency string   `json:"baseCurrency"`
	Amount       *float64 `json:"amount"`
	Date         string   `json:"date"`
}

// GetContext returns a conversion context's current state.
func (h *HTTPHandler) GetContext(c *gin.Context) {
	sess, ok := h.contextParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.stateOf(sess))
}

// UpdateContext applies base currency, amount and date changes to a
// context, then refreshes its snapshot.
func (h *HTTPHandler) UpdateContext(c *gin.Context) {
	sess, ok := h.contextParam(c)
	if !ok {
		return
	}

	var update contextUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if update.BaseCurrency != "" {
		if err := sess.SetBaseCurrency(currency.Code(update.BaseCurrency)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if update.Amount != nil {
		sess.SetAmount(*update.Amount)
	}
	if update.Date != "" {
		date, err := time.Parse("2006-01-02", update.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		if err := sess.SetDate(date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if !sess.HasSnapshot() {
		if err := sess.Refresh(c.Request.Context()); err != nil {
			h.fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, h.stateOf(sess))
}

// GetContextResult converts the context's amount into the requested
// destination currencies.
func (h *HTTPHandler) GetContextResult(c *gin.Context) {
	sess, ok := h.contextParam(c)
	if !ok {
		return
	}

	destinations, ok := h.currenciesQuery(c)
	if !ok {
		return
	}

	result, err := sess.Result(destinations)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) stateOf(sess *session.Context) contextState {
	state := contextState{
		Kind:         string(sess.Kind()),
		BaseCurrency: string(sess.Base()),
		Amount:       sess.Amount(),
		HasSnapshot:  sess.HasSnapshot(),
	}
	if d := sess.Date(); !d.IsZero() {
		state.Date = d.Format("2006-01-02")
	}
	return state
}

func (h *HTTPHandler) contextParam(c *gin.Context) (*session.Context, bool) {
	sess, ok := h.sessions.Get(session.Kind(c.Param("kind")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown context, expected home, historical or crypto"})
		return nil, false
	}
	return sess, true
}

func (h *HTTPHandler) baseParam(c *gin.Context) (currency.Code, bool) {
	base := c.Param("base")
	if !currency.IsValid(base) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown base currency"})
		return "", false
	}
	return currency.Code(base), true
}

func (h *HTTPHandler) currenciesQuery(c *gin.Context) ([]currency.Code, bool) {
	raw := c.Query("currencies")
	if raw == "" {
		return nil, true
	}

	parts := strings.Split(raw, ",")
	codes := make([]currency.Code, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !currency.IsValid(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown currency code: " + p})
			return nil, false
		}
		codes = append(codes, currency.Code(p))
	}
	return codes, true
}

func (h *HTTPHandler) conversionRequest(c *gin.Context) (model.ConversionRequest, bool) {
	var req model.ConversionRequest

	base := c.Query("base")
	if !currency.IsValid(base) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown base currency"})
		return req, false
	}
	req.Base = currency.Code(base)

	req.Amount = 1.00
	if raw := c.Query("amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil || amount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return req, false
		}
		req.Amount = amount
	}

	destinations, ok := h.currenciesQuery(c)
	if !ok {
		return req, false
	}
	req.Destinations = destinations

	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return req, false
		}
		req.AsOf = date
	}

	return req, true
}

// fail maps a taxonomy error onto an HTTP status and responds with it.
func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var invalidReq api.InvalidRequestError
	var invalidDate api.InvalidDateError
	var upstream api.UpstreamError
	var transport api.TransportError
	var decode api.DecodeError

	switch {
	case errors.As(err, &invalidReq), errors.As(err, &invalidDate):
		status = http.StatusBadRequest
	case errors.As(err, &upstream), errors.As(err, &decode):
		status = http.StatusBadGateway
	case errors.As(err, &transport):
		status = http.StatusGatewayTimeout
	case errors.Is(err, session.ErrNoSnapshot):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
