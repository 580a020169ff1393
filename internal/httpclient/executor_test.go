package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type observation struct {
	endpoint string
	method   string
	status   int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveRequest(endpoint, method string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{endpoint: endpoint, method: method, status: status})
}

func newExec(client *http.Client, obs Observer) *Executor {
	return New(zap.NewNop(), client, "test", obs)
}

// ─── Basic success ────────────────────────────────────────────────────────────

func TestDoJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	exec := newExec(srv.Client(), obs)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	var out map[string]string
	require.NoError(t, exec.DoJSON(req, "records", &out))
	assert.Equal(t, "ok", out["result"])
	assert.Equal(t, []observation{{endpoint: "records", method: http.MethodGet, status: 200}}, obs.seen)
}

// ─── Non-2xx: single attempt, body preserved ─────────────────────────────────

func TestDo_Non2xxReturnsStatusErrorWithBody(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer srv.Close()

	exec := newExec(srv.Client(), nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	_, err := exec.Do(req, "records")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, `{"error":"maintenance"}`, string(se.Body))
	assert.Equal(t, "test returned 503", se.Error())
	assert.EqualValues(t, 1, count.Load(), "requests must not be retried")
}

func TestDo_4xxNotRetried(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	exec := newExec(srv.Client(), nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	_, err := exec.Do(req, "records")
	require.Error(t, err)
	assert.EqualValues(t, 1, count.Load())
}

// ─── Decode failure ───────────────────────────────────────────────────────────

func TestDoJSON_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	exec := newExec(srv.Client(), nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	var out map[string]any
	err := exec.DoJSON(req, "records", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

// ─── Transport failure ────────────────────────────────────────────────────────

func TestDo_TransportFailureObservedWithZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	exec := newExec(&http.Client{}, obs)
	req, _ := http.NewRequest(http.MethodPost, url, nil)

	_, err := exec.Do(req, "sign_in")
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se), "transport errors are not status errors")
	assert.False(t, errors.Is(err, ErrDecode))
	require.Len(t, obs.seen, 1)
	assert.Equal(t, 0, obs.seen[0].status)
}

// ─── Context cancellation ─────────────────────────────────────────────────────

func TestDo_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newExec(srv.Client(), nil)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)

	_, err := exec.Do(req, "records")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
