package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(time.Second)
	resp, err := client.Get(context.Background(), server.URL, http.Header{"X-Api-Key": {"secret"}})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.NoError(t, resp.Err())
	assert.Equal(t, "application/json", resp.MediaType())
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "c1", payload["contractId"])

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(time.Second)
	resp, err := client.Post(context.Background(), server.URL, map[string]string{"contractId": "c1"}, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClient_NonSuccessIsNotTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("connector exploded"))
	}))
	defer server.Close()

	client := New(time.Second)
	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())

	respErr := resp.Err()
	require.Error(t, respErr)
	assert.ErrorIs(t, respErr, apperrors.ErrUpstreamProtocol)

	var upstreamErr *apperrors.UpstreamError
	require.ErrorAs(t, respErr, &upstreamErr)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	assert.Equal(t, "connector exploded", upstreamErr.Body)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(20 * time.Millisecond)
	_, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamTimeout)
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(time.Second)
	_, err := client.Get(context.Background(), url, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrUpstreamTimeout)
}

func TestClient_InvalidURL(t *testing.T) {
	client := New(time.Second)
	_, err := client.Get(context.Background(), "://bad", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestClient_RateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := New(time.Second, WithRateLimit(20, 1))

	start := time.Now()
	for range 3 {
		_, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	// Burst of one at 20 rps forces two waits of ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
