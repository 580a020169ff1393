package fairsharing

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bianchini88/rdmkit/internal/config"
	"github.com/bianchini88/rdmkit/internal/metrics"
	"github.com/bianchini88/rdmkit/internal/records"
)

const testOutput = "/data/fairsharing_records.json"

// capturedRequest is what fakeRegistry saw for one call.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// fakeRegistry serves canned sign-in and records responses and remembers
// every request it receives.
type fakeRegistry struct {
	mu sync.Mutex

	signInStatus  int
	signInBody    string
	recordsStatus int
	recordsBody   string

	signIns []capturedRequest
	fetches []capturedRequest
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		signInStatus:  http.StatusOK,
		signInBody:    `{"success": true, "jwt": "abc123"}`,
		recordsStatus: http.StatusOK,
		recordsBody:   `{"data": [{"id": "2", "name": "b"}, {"id": "1", "name": "a"}]}`,
	}
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query().Get("page[size]"),
		Header: r.Header.Clone(),
		Body:   string(body),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/users/sign_in":
		f.signIns = append(f.signIns, req)
		w.WriteHeader(f.signInStatus)
		_, _ = w.Write([]byte(f.signInBody))
	case "/fairsharing_records/":
		f.fetches = append(f.fetches, req)
		w.WriteHeader(f.recordsStatus)
		_, _ = w.Write([]byte(f.recordsBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRegistry) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(zap.NewNop(), srv.URL+"/", srv.Client(), nil)
}

func testConfig(baseURL string, auth bool) config.Config {
	return config.Config{
		BaseURL:     baseURL + "/",
		Username:    "curator",
		Password:    "s3cret",
		AuthEnabled: auth,
		PageSize:    1,
		OutputPath:  testOutput,
	}
}

func newTestSyncer(srv *httptest.Server, cfg config.Config, fs afero.Fs) *Syncer {
	logger := zap.NewNop()
	rec := metrics.NewRecorder()
	client := NewClient(logger, cfg.BaseURL, srv.Client(), rec)
	return NewSyncer(logger, cfg, client, records.NewWriter(logger, fs), rec)
}

func (f *fakeRegistry) signInRequests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.signIns...)
}

func (f *fakeRegistry) fetchRequests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.fetches...)
}
