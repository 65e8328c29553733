package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsetrace/pulse/internal/span"
)

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:        url + "/",
		APIKey:         "pk_test",
		ProjectID:      "proj_1",
		Version:        "1.2.3",
		HealthAttempts: 3,
		HealthDelay:    time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestHealth_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		require.Equal(t, "pulse-cli/1.2.3", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv.URL).Health(context.Background()))
}

func TestHealth_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv.URL).Health(context.Background()))
	require.Equal(t, int32(3), calls.Load())
}

func TestHealth_GivesUpWithLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Health(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadGateway, se.Code)
	require.Equal(t, "down", se.Body)
	require.Equal(t, int32(3), calls.Load())
}

func TestHealth_UnauthorizedNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Health(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, int32(1), calls.Load())
}

func TestPostSpans_SendsBatchWithHeaders(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/spans/batch", r.URL.Path)
		require.Equal(t, "Bearer pk_test", r.Header.Get("Authorization"))
		require.Equal(t, "proj_1", r.Header.Get("X-Project-Id"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/api")
	err := c.PostSpans(context.Background(), []span.Span{{
		SpanID: "s1", SessionID: "sess", Source: span.SourceClaudeCode, Kind: span.KindSession,
		EventType: span.EventStop, Status: span.StatusSuccess, Metadata: map[string]any{"project_id": "proj_1"},
	}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "sess", got[0]["session_id"])
	require.Equal(t, "stop", got[0]["event_type"])
}

func TestPostSpans_EmptyIsNoop(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1")
	require.NoError(t, c.PostSpans(context.Background(), nil))
}

func TestPostSpans_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := newClient(t, srv.URL).PostSpans(ctx, []span.Span{{SpanID: "x"}})
	require.Error(t, err)
}

func TestParseBaseURL(t *testing.T) {
	u, err := ParseBaseURL("  https://pulse.example.com/// ")
	require.NoError(t, err)
	require.Equal(t, "https://pulse.example.com", u.String())

	for _, bad := range []string{"", "ftp://x", "https://", "::"} {
		_, err := ParseBaseURL(bad)
		require.ErrorIs(t, err, ErrInvalidURL, bad)
	}
}
