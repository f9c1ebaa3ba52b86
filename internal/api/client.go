package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production endpoint of the rate provider.
const DefaultBaseURL = "https://api.currencyapi.com/v3"

// RateEntry is one currency's rate inside a latest or historical response.
type RateEntry struct {
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

// ResponseMeta carries the provider's timestamp for a rates response.
type ResponseMeta struct {
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// RatesResponse is the shape shared by the latest and historical endpoints.
type RatesResponse struct {
	Meta ResponseMeta         `json:"meta"`
	Data map[string]RateEntry `json:"data"`
}

// MetadataEntry is one currency's display metadata from the currencies
// endpoint. Entries may legitimately be null for a given code, which is why
// CurrenciesResponse holds pointers; a nil entry means "no metadata", not a
// decode failure.
type MetadataEntry struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	SymbolNative  string  `json:"symbol_native"`
	DecimalDigits int     `json:"decimal_digits"`
	Rounding      float64 `json:"rounding"`
	Code          string  `json:"code"`
	NamePlural    string  `json:"name_plural"`
	IconName      *string `json:"icon_name"`
}

// CurrenciesResponse is the currencies endpoint payload.
type CurrenciesResponse struct {
	Data map[string]*MetadataEntry `json:"data"`
}

// Client is a thin HTTP client for the rate provider. It performs no
// retries; a single failed call surfaces immediately as one taxonomy error.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a provider client. A zero timeout disables the client
// side deadline and leaves cancellation to the caller's context.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Latest fetches the latest rates for base. currencies optionally restricts
// the response to a CSV list of codes; empty means all currencies.
func (c *Client) Latest(ctx context.Context, base string, currencies string) (*RatesResponse, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("base_currency", base)
	if currencies != "" {
		params.Set("currencies", currencies)
	}

	var out RatesResponse
	if err := c.get(ctx, "latest", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Historical fetches rates for base as of the given YYYY-MM-DD date.
func (c *Client) Historical(ctx context.Context, date string, base string) (*RatesResponse, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("date", date)
	params.Set("base_currency", base)

	var out RatesResponse
	if err := c.get(ctx, "historical", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Currencies fetches the metadata for all currencies the provider knows.
func (c *Client) Currencies(ctx context.Context) (*CurrenciesResponse, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)

	var out CurrenciesResponse
	if err := c.get(ctx, "currencies", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	uri := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return InvalidRequestError{Reason: err.Error()}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("provider request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return TransportError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("provider response",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return UpstreamError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return DecodeError{Err: err}
	}
	return nil
}
