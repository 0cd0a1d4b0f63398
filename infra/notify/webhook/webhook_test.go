package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/factory"
)

func message() alert.Message {
	return alert.Render([]alert.Payload{
		{VillageID: "v1", Village: "Kalmeshwar", WSI: 91.5},
		{VillageID: "v2", Village: "Katol", WSI: 84},
	}, 80)
}

func TestNotifySlackFormat(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer x"}}, nil)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), message()))

	assert.Equal(t, "Bearer x", auth)
	assert.True(t, strings.HasPrefix(got["text"], "*[HydroAlert] Critical: 2 village(s) with WSI > 80*\n"))
	assert.Contains(t, got["text"], "- Katol: 84\n")
}

func TestNotifyJSONFormat(t *testing.T) {
	var got alert.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, Format: FormatJSON}, nil)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), message()))
	require.Len(t, got.Villages, 2)
	assert.Equal(t, 80.0, got.Threshold)
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, MaxRetries: 3, BackoffMS: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), message()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifyClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, MaxRetries: 3, BackoffMS: 1}, nil)
	require.NoError(t, err)
	err = n.Notify(context.Background(), message())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, MaxRetries: -1, BackoffMS: 1, BreakerFailures: 2, BreakerOpenMS: 60000}, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.Error(t, n.Notify(context.Background(), message()))
	}
	assert.Equal(t, gobreaker.StateOpen, n.State())

	err = n.Notify(context.Background(), message())
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), calls.Load())
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x", Format: "xml"}, nil)
	assert.Error(t, err)
}

func TestRegisteredInFactory(t *testing.T) {
	n, err := alert.NewNotifier([]factory.ModuleConfig{{Type: "webhook", Conf: map[string]any{"url": "http://localhost:9", "format": "json"}}})
	require.NoError(t, err)
	_, ok := n.(*Notifier)
	assert.True(t, ok)
}
