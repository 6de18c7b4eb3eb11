package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/failure"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(config.OpenAI{
		APIKey:    "sk-test-key-123456",
		BaseURL:   srv.URL + "/",
		OrgID:     "org-1",
		ProjectID: "proj_1",
	})
	require.NoError(t, err)
	return c
}

func TestNewRequestSetsHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data":[]}`))
	})

	req, err := c.NewRequest(context.Background(), http.MethodGet, "models", nil)
	require.NoError(t, err)
	body, err := c.Do(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))

	assert.Equal(t, "Bearer sk-test-key-123456", got.Get("Authorization"))
	assert.Equal(t, "org-1", got.Get("OpenAI-Organization"))
	assert.Equal(t, "proj_1", got.Get("OpenAI-Project"))
}

func TestDoParsesErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/models", nil)
	require.NoError(t, err)
	_, err = c.Do(req)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
	assert.Equal(t, "Incorrect API key provided", apiErr.Message)
	assert.ErrorIs(t, err, failure.ErrAuth)
	assert.Equal(t, failure.Fatal, failure.Classify(err))
}

func TestDoNonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	})
	req, _ := c.NewRequest(context.Background(), http.MethodGet, "/models", nil)
	_, err := c.Do(req)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "slow down", apiErr.Message)
	assert.False(t, errors.Is(err, failure.ErrAuth))
	assert.Equal(t, failure.Throttled, failure.Classify(err))
}

func TestValidateCredentialsRejectsImmediately(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.ValidateCredentials(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrAuth)
	assert.Equal(t, int32(1), calls.Load())
}

func TestValidateCredentialsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":[{"id":"whisper-1"}]}`))
	})

	require.NoError(t, c.ValidateCredentials(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewRejectsBadProxy(t *testing.T) {
	_, err := New(config.OpenAI{Proxy: "http://[::1"})
	assert.Error(t, err)
}

func TestDefaultBaseURL(t *testing.T) {
	c, err := New(config.OpenAI{APIKey: "sk-x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestConnect(t *testing.T) {
	var calls, status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(int(status.Load()))
		w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(srv.Close)
	cfg := config.OpenAI{APIKey: "sk-test-key-123456", BaseURL: srv.URL}

	c, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.BaseURL())
	assert.Equal(t, int32(1), calls.Load())

	status.Store(http.StatusUnauthorized)
	_, err = Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, failure.ErrAuth)
	assert.Equal(t, int32(2), calls.Load())

	cfg.APIKey = ""
	_, err = Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.Equal(t, int32(2), calls.Load())
}
