package fairsharing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bianchini88/rdmkit/internal/httpclient"
)

const (
	signInPath  = "users/sign_in"
	recordsPath = "fairsharing_records/"

	// endpoint labels used in logs and metrics
	endpointSignIn  = "sign_in"
	endpointRecords = "fairsharing_records"
)

// Client wraps the two FAIRsharing API calls this tool makes.
// Neither call is retried.
type Client struct {
	logger  *zap.Logger
	baseURL string
	exec    *httpclient.Executor
}

// NewClient constructs a FAIRsharing client for baseURL. observer may be nil.
func NewClient(logger *zap.Logger, baseURL string, httpClient *http.Client, observer httpclient.Observer) *Client {
	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    httpclient.New(logger, httpClient, "fairsharing", observer),
	}
}

// SignIn exchanges credentials for a bearer token.
// POST /users/sign_in
//
// Every failure is returned as an *AuthError tagged with its reason.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (Token, error) {
	if creds.Login == "" || creds.Password == "" {
		return "", &AuthError{Reason: AuthReasonMissingField, Err: errors.New("login and password are required")}
	}

	data, _ := json.Marshal(SignInRequest{User: SignInUser{Login: creds.Login, Password: creds.Password}})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(signInPath), bytes.NewReader(data))
	if err != nil {
		return "", &AuthError{Reason: AuthReasonTransport, Err: err}
	}
	setHeaders(req, "")

	var resp SignInResponse
	if err := c.exec.DoJSON(req, endpointSignIn, &resp); err != nil {
		return "", c.signInFailure(err)
	}
	if resp.Success == nil {
		return "", &AuthError{Reason: AuthReasonMissingField, StatusCode: http.StatusOK, Err: errors.New(`response has no "success" field`)}
	}
	if !*resp.Success {
		return "", &AuthError{Reason: AuthReasonRejected, StatusCode: http.StatusOK, Err: rejection(resp.Message)}
	}
	if resp.JWT == "" {
		return "", &AuthError{Reason: AuthReasonMissingField, StatusCode: http.StatusOK, Err: errors.New(`response has no "jwt" field`)}
	}

	token := Token(resp.JWT)
	c.logger.Info("fairsharing.sign_in_success",
		zap.String("user", creds.Login),
		zap.Stringer("token", token))
	return token, nil
}

// signInFailure classifies an executor error. A non-2xx answer that still
// carries {"success": false} counts as a rejection.
func (c *Client) signInFailure(err error) error {
	if errors.Is(err, httpclient.ErrDecode) {
		return &AuthError{Reason: AuthReasonDecode, StatusCode: http.StatusOK, Err: err}
	}
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return &AuthError{Reason: AuthReasonTransport, Err: err}
	}

	var resp SignInResponse
	if json.Unmarshal(se.Body, &resp) == nil && resp.Success != nil && !*resp.Success {
		return &AuthError{Reason: AuthReasonRejected, StatusCode: se.StatusCode, Err: rejection(resp.Message)}
	}
	return &AuthError{Reason: AuthReasonStatus, StatusCode: se.StatusCode, Err: err}
}

func rejection(message string) error {
	if message == "" {
		return errors.New("credentials rejected")
	}
	return fmt.Errorf("credentials rejected: %s", message)
}

// FetchRecords requests one page of records and returns its "data" array.
// GET /fairsharing_records/?page[size]=N
//
// An empty token sends the request without an Authorization header.
// Numbers in the returned values are json.Number so they re-encode verbatim.
func (c *Client) FetchRecords(ctx context.Context, token Token, pageSize int) ([]any, error) {
	url := c.url(recordsPath) + "?page[size]=" + strconv.Itoa(pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	setHeaders(req, token)

	body, err := c.exec.Do(req, endpointRecords)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, &FetchError{StatusCode: se.StatusCode, Body: string(se.Body), Err: err}
		}
		return nil, &FetchError{Err: err}
	}

	records, err := decodeRecords(body)
	if err != nil {
		c.logger.Warn("fairsharing.records_decode_failed", zap.Error(err))
		return nil, &FetchError{Err: err}
	}

	c.logger.Info("fairsharing.records_fetched",
		zap.Int("page_size", pageSize),
		zap.Int("count", len(records)),
		zap.Bool("authenticated", token != ""))
	return records, nil
}

// decodeRecords extracts the "data" array from a record response body.
func decodeRecords(body []byte) ([]any, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", httpclient.ErrDecode, err)
	}

	raw, ok := envelope["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrMissingData
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingData, err)
	}
	if records == nil {
		records = []any{}
	}
	return records, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + path
}

// setHeaders sets the headers every FAIRsharing request carries.
func setHeaders(req *http.Request, token Token) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}
}
