package soda

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crashpipe/internal/config"
	"crashpipe/internal/domain/crash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SODA.MaxRetries = 2
	cfg.SODA.BackoffFactor = 1.0
	cfg.SODA.Timeout = 5 * time.Second
	cfg.SODA.RatePerHour = 1000000
	cfg.SODA.MaxConcurrent = 5
	return cfg
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(testConfig(), slog.Default()).WithEndpoints(map[crash.Kind]string{
		crash.KindCrashes: server.URL,
	})
	return client, server
}

func TestClient_FetchRecords(t *testing.T) {
	var gotQuery map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"$limit":  q.Get("$limit"),
			"$offset": q.Get("$offset"),
			"$where":  q.Get("$where"),
			"$order":  q.Get("$order"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"crash_record_id":"abc"},{"crash_record_id":"def"}]`))
	})
	client, _ := newTestClient(t, handler)

	records, err := client.FetchRecords(context.Background(), crash.KindCrashes, FetchOptions{
		Limit:   100,
		Offset:  200,
		Where:   "crash_date >= '2024-01-01T00:00:00'",
		OrderBy: "crash_date",
	})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "abc", records[0]["crash_record_id"])
	assert.Equal(t, "100", gotQuery["$limit"])
	assert.Equal(t, "200", gotQuery["$offset"])
	assert.Equal(t, "crash_date >= '2024-01-01T00:00:00'", gotQuery["$where"])
	assert.Equal(t, "crash_date", gotQuery["$order"])
}

func TestClient_FetchRecords_UnknownEndpoint(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := client.FetchRecords(context.Background(), crash.KindPeople, FetchOptions{Limit: 10})

	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestClient_SetsHeaders(t *testing.T) {
	var gotToken, gotAgent string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[]`))
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.SODA.AppToken = "secret-token"
	cfg.SODA.RatePerHour = 1000000
	client := NewClient(cfg, slog.Default()).WithEndpoints(map[crash.Kind]string{
		crash.KindCrashes: server.URL,
	})

	_, err := client.FetchRecords(context.Background(), crash.KindCrashes, FetchOptions{Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, userAgent, gotAgent)
}

func TestClient_CountRecords(t *testing.T) {
	var gotSelect, gotWhere string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSelect = r.URL.Query().Get("$select")
		gotWhere = r.URL.Query().Get("$where")
		_, _ = w.Write([]byte(`[{"count":"12345"}]`))
	})
	client, _ := newTestClient(t, handler)

	n, err := client.CountRecords(context.Background(), crash.KindCrashes, "crash_date >= '2024-01-01T00:00:00'")

	require.NoError(t, err)
	assert.Equal(t, 12345, n)
	assert.Equal(t, "COUNT(*) as count", gotSelect)
	assert.Equal(t, "crash_date >= '2024-01-01T00:00:00'", gotWhere)
}

func TestClient_CountRecords_FallbackEstimate(t *testing.T) {
	// The count query fails, the probe page comes back full: the estimate
	// is ten probe pages.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$select") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fullProbePage()))
	})
	client, _ := newTestClient(t, handler)

	n, err := client.CountRecords(context.Background(), crash.KindCrashes, "")

	require.NoError(t, err)
	assert.Equal(t, 10000, n)
}

func TestClient_CountRecords_MalformedCountFallsBack(t *testing.T) {
	// The count endpoint answers 200 with an unparsable count; the probe
	// supplies the number and the warn line carries the parse failure.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("$select") != "" {
			_, _ = w.Write([]byte(`[{"count":"not-a-number"}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"crash_record_id":"a"},{"crash_record_id":"b"}]`))
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	client := NewClient(testConfig(), log).WithEndpoints(map[crash.Kind]string{
		crash.KindCrashes: server.URL,
	})

	n, err := client.CountRecords(context.Background(), crash.KindCrashes, "")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "parse count")
	assert.NotContains(t, buf.String(), "error=<nil>")
}

func TestClient_CountRecords_FallbackShortPage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$select") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"a":"1"},{"a":"2"},{"a":"3"}]`))
	})
	client, _ := newTestClient(t, handler)

	n, err := client.CountRecords(context.Background(), crash.KindCrashes, "")

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClient_CountRecords_FallbackAlsoFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, handler)

	n, err := client.CountRecords(context.Background(), crash.KindCrashes, "")

	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClient_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"crash_record_id":"abc"}]`))
	})
	client, _ := newTestClient(t, handler)

	records, err := client.FetchRecords(context.Background(), crash.KindCrashes, FetchOptions{Limit: 1})

	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.FetchRecords(context.Background(), crash.KindCrashes, FetchOptions{Limit: 1})

	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildDateWhere(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{
			name:  "both dates",
			start: "2024-01-01",
			end:   "2024-01-31",
			want:  "crash_date >= '2024-01-01T00:00:00' AND crash_date < '2024-01-31T23:59:59'",
		},
		{
			name:  "start only",
			start: "2024-01-01",
			want:  "crash_date >= '2024-01-01T00:00:00'",
		},
		{
			name: "end only",
			end:  "2024-01-31",
			want: "crash_date < '2024-01-31T23:59:59'",
		},
		{
			name: "no dates",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDateWhere(tt.start, tt.end, "crash_date"))
		})
	}
}

func fullProbePage() string {
	page := []byte{'['}
	for i := 0; i < 1000; i++ {
		if i > 0 {
			page = append(page, ',')
		}
		page = append(page, `{"a":"1"}`...)
	}
	return string(append(page, ']'))
}
