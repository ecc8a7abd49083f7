package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	api    string
	method string
	status int
	err    error
}

type fakeObserver struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (o *fakeObserver) ObserveRequest(api, method string, status int, err error, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, recordedRequest{api: api, method: method, status: status, err: err})
}

func testOptions(observer Observer) Options {
	return Options{
		API:          "test",
		Timeout:      2 * time.Second,
		RetryMax:     3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		UserAgent:    "statusbot-test",
		Secrets:      []string{"s3cr3t-token"},
		Logger:       zerolog.Nop(),
		Observer:     observer,
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "statusbot-test", r.Header.Get("User-Agent"))
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	observer := &fakeObserver{}
	client := New(testOptions(observer))

	resp, err := client.Do(context.Background(), "ping", http.MethodGet, server.URL, nil, "")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	require.Len(t, observer.requests, 1)
	assert.Equal(t, recordedRequest{api: "test", method: "ping", status: http.StatusOK}, observer.requests[0])
}

func TestClient_PassesThroughFinalErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	client := New(testOptions(nil))
	resp, err := client.Do(context.Background(), "ping", http.MethodGet, server.URL, nil, "")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestClient_SendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	client := New(testOptions(nil))
	resp, err := client.Do(context.Background(), "echo", http.MethodPost, server.URL, []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestClient_RedactsSecretsInErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/bots3cr3t-token/getMe"
	server.Close()

	observer := &fakeObserver{}
	opts := testOptions(observer)
	opts.RetryMax = 1
	client := New(opts)

	_, err := client.Do(context.Background(), "getMe", http.MethodGet, url, nil, "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cr3t-token")
	assert.Contains(t, err.Error(), "<redacted>")

	require.Len(t, observer.requests, 1)
	assert.Zero(t, observer.requests[0].status)
	assert.Error(t, observer.requests[0].err)
}

func TestLeveledLogger_RedactsFields(t *testing.T) {
	var buf bytes.Buffer
	l := &leveledLogger{
		logger:   zerolog.New(&buf),
		redactor: newRedactor([]string{"s3cr3t-token"}),
	}

	l.Warn("request to /bots3cr3t-token failed", "url", "https://api/bots3cr3t-token/x", "attempt", 2)

	out := buf.String()
	assert.NotContains(t, out, "s3cr3t-token")
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewRedactor_NoSecrets(t *testing.T) {
	assert.Nil(t, newRedactor(nil))
	assert.Nil(t, newRedactor([]string{""}))

	client := New(Options{Logger: zerolog.Nop()})
	err := io.EOF
	assert.Same(t, err, client.Redact(err))
}
