package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestClient creates a test server and a FeedClient configured to use it.
func setupTestClient(handler http.Handler) (*FeedClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	fc := &FeedClient{
		client:  resty.New().SetBaseURL(server.URL),
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return fc, server
}

func TestFetchRates_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rates", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"pair": "BSK/USDT", "price": "4.0"},
			{"pair": "ETH/USDT", "price": "3800.25"},
			{"pair": "BAD/USDT", "price": "not-a-number"},
			{"pair": "ZERO/USDT", "price": "0"}
		]`))
	})

	fc, server := setupTestClient(handler)
	defer server.Close()

	table, err := fc.FetchRates(context.Background())

	require.NoError(t, err)
	assert.Len(t, table, 2, "invalid and non-positive entries must be dropped")
	price, ok := table.Price("BSK", "USDT")
	require.True(t, ok)
	assert.Equal(t, "4", price.String())
}

func TestFetchRates_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"pair": "BSK/USDT", "price": "4.0"}]`))
	})

	fc, server := setupTestClient(handler)
	defer server.Close()

	// Bounded context so a broken retry loop fails fast instead of hanging.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	table, err := fc.FetchRates(ctx)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, table, 1)
}

func TestFetchRates_NormalizesPairSymbols(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"pair": "bsk/usdt", "price": "4.0"},
			{"pair": " eth / usdt ", "price": "3800.25"},
			{"pair": "noslash", "price": "1.0"}
		]`))
	})

	fc, server := setupTestClient(handler)
	defer server.Close()

	table, err := fc.FetchRates(context.Background())

	require.NoError(t, err)
	assert.Len(t, table, 2, "malformed pairs must be dropped")

	// Snapshot keys follow the same normalization as lookups, so feeds
	// publishing lowercase or padded symbols still resolve.
	price, ok := table.Price("BSK", "USDT")
	require.True(t, ok)
	assert.Equal(t, "4", price.String())
	_, ok = table.Price("ETH", "USDT")
	assert.True(t, ok)
}

func TestFetchRates_Retries418WithRetryAfter(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(418)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"pair": "BSK/USDT", "price": "4.0"}]`))
	})

	fc, server := setupTestClient(handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	table, err := fc.FetchRates(ctx)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, table, 1)
}

func TestFetchRates_NonRetryableStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	fc, server := setupTestClient(handler)
	defer server.Close()

	_, err := fc.FetchRates(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch rates")
}

func TestUpdater_SnapshotStartsEmpty(t *testing.T) {
	fc, server := setupTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	u := NewUpdater(fc, time.Second, zap.NewNop())

	assert.Empty(t, u.Snapshot())
}
