package api

import (
	"fmt"
	"time"
)

// The error taxonomy below is exhaustive for the rate provider boundary:
// every failed operation returns exactly one of these kinds, and none of
// them is retried internally.

// InvalidRequestError signals malformed input detected before any I/O.
type InvalidRequestError struct {
	Reason string
}

func (e InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// TransportError signals that no response was received at all.
type TransportError struct {
	Err error
}

func (e TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError signals a non-2xx response from the rate provider.
type UpstreamError struct {
	StatusCode int
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// DecodeError signals a response body that did not match the expected shape.
type DecodeError struct {
	Err error
}

func (e DecodeError) Error() string {
	return "decode error: " + e.Err.Error()
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// InvalidDateError signals a historical date outside the provider's
// accepted window.
type InvalidDateError struct {
	Date time.Time
	Min  time.Time
	Max  time.Time
}

func (e InvalidDateError) Error() string {
	return fmt.Sprintf("date %s outside accepted window %s..%s",
		e.Date.Format("2006-01-02"), e.Min.Format("2006-01-02"), e.Max.Format("2006-01-02"))
}
