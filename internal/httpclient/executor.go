package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrDecode marks a response body that could not be decoded as JSON.
var ErrDecode = errors.New("decode failed")

// StatusError is returned for any non-2xx response. Body holds the raw response text.
type StatusError struct {
	Venue      string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.Venue, e.StatusCode)
}

// Observer receives one observation per completed or failed request.
// status is 0 when no response was received.
type Observer interface {
	ObserveRequest(endpoint, method string, status int, elapsed time.Duration)
}

// Executor performs single-shot HTTP calls with logging and JSON decoding.
// Requests are never retried.
type Executor struct {
	logger   *zap.Logger
	http     *http.Client
	venueTag string
	observer Observer
}

// New creates an Executor. observer may be nil.
func New(logger *zap.Logger, httpClient *http.Client, venueTag string, observer Observer) *Executor {
	return &Executor{
		logger:   logger,
		http:     httpClient,
		venueTag: venueTag,
		observer: observer,
	}
}

// Do executes req once and returns the full response body for 2xx responses.
// Non-2xx responses yield a *StatusError carrying the body. Cancellation follows
// the request's own context.
func (e *Executor) Do(req *http.Request, endpoint string) ([]byte, error) {
	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		e.observe(endpoint, req.Method, 0, time.Since(start))
		e.logger.Warn(e.venueTag+".http_failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", e.venueTag, endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	e.observe(endpoint, req.Method, resp.StatusCode, elapsed)
	if err != nil {
		e.logger.Warn(e.venueTag+".read_failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: read body: %w", e.venueTag, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn(e.venueTag+".non_2xx",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", elapsed))
		return nil, &StatusError{Venue: e.venueTag, StatusCode: resp.StatusCode, Body: body}
	}

	e.logger.Debug(e.venueTag+".http_success",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", elapsed))

	return body, nil
}

// DoJSON executes req once, then JSON-decodes a 2xx response into out.
func (e *Executor) DoJSON(req *http.Request, endpoint string, out any) error {
	body, err := e.Do(req, endpoint)
	if err != nil {
		return err
	}
	return e.Decode(endpoint, body, out)
}

// Decode unmarshals body into out, wrapping failures with ErrDecode.
func (e *Executor) Decode(endpoint string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		e.logger.Warn(e.venueTag+".decode_failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
			zap.String("body", string(body)))
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

func (e *Executor) observe(endpoint, method string, status int, elapsed time.Duration) {
	if e.observer != nil {
		e.observer.ObserveRequest(endpoint, method, status, elapsed)
	}
}
