package price

import (
	"coingecko-telegram-bot/internal/cache"
	"coingecko-telegram-bot/internal/metrics"
	"coingecko-telegram-bot/internal/types"
	"context"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTransport fails the test if a request reaches it while forbidden.
type countingTransport struct {
	calls atomic.Int32
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(r)
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *cache.PriceCache, *countingTransport, *metrics.BotMetrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	transport := &countingTransport{next: http.DefaultTransport}
	c := cache.New()
	m := metrics.NewBotMetrics(prometheus.NewRegistry())
	f := NewFetcher(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Timeout:    200 * time.Millisecond,
		HTTPClient: &http.Client{Transport: transport},
	}, c, m)
	return f, c, transport, m
}

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, CacheKey([]string{"eth", "btc"}, types.USD), CacheKey([]string{"btc", "eth"}, types.USD))
	assert.Equal(t, "btc,eth-USD", CacheKey([]string{"eth", "btc", "eth"}, types.USD))
	assert.NotEqual(t, CacheKey([]string{"btc"}, types.USD), CacheKey([]string{"btc"}, types.EUR))
}

func TestCacheKeyDoesNotReorderInput(t *testing.T) {
	ids := []string{"tron", "bitcoin"}
	CacheKey(ids, types.USD)
	assert.Equal(t, []string{"tron", "bitcoin"}, ids)
}

func TestIsValidCoinID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"bitcoin", true},
		{"shiba-inu", true},
		{"1inch", true},
		{"", false},
		{"Bitcoin", false},
		{"bit coin", false},
		{"btc;drop", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCoinID(tt.id))
		})
	}
}

func TestFetchPricesSuccess(t *testing.T) {
	f, c, _, m := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "test-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":50000},"ethereum":{"usd":3000}}`))
	})

	snap, err := f.FetchPrices(context.Background(), []string{"ethereum", "bitcoin"}, types.USD)
	require.NoError(t, err)
	assert.Equal(t, types.Snapshot{"bitcoin": {"usd": 50000}, "ethereum": {"usd": 3000}}, snap)

	cached, ok := c.Get("bitcoin,ethereum-USD")
	require.True(t, ok)
	assert.Equal(t, snap, cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(metrics.OutcomeOK)))

	stats := f.Stats()
	assert.Equal(t, int64(1), stats.Requests)
	assert.False(t, stats.LastRequest.IsZero())
}

func TestFetchPricesDefaultsToUSD(t *testing.T) {
	f, _, _, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"tron":{"usd":0.12}}`))
	})

	_, err := f.FetchPrices(context.Background(), []string{"tron"}, "")
	require.NoError(t, err)

	age, ok := f.Age([]string{"tron"}, "")
	assert.True(t, ok)
	assert.Equal(t, 0, age)
}

func TestCacheHitSkipsNetwork(t *testing.T) {
	f, c, transport, m := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected upstream call")
	})
	c.Set(CacheKey([]string{"bitcoin"}, types.EUR), types.Snapshot{"bitcoin": {"eur": 42000}})

	snap, err := f.FetchPrices(context.Background(), []string{"bitcoin"}, types.EUR)
	require.NoError(t, err)
	assert.Equal(t, 42000.0, snap["bitcoin"]["eur"])
	assert.Equal(t, int32(0), transport.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
}

func TestSecondCallIsServedFromCache(t *testing.T) {
	f, _, transport, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"rub":15000}}`))
	})

	_, err := f.FetchPrices(context.Background(), []string{"solana"}, types.RUB)
	require.NoError(t, err)
	_, err = f.FetchPrices(context.Background(), []string{"solana"}, types.RUB)
	require.NoError(t, err)

	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestUpstreamErrorIsNotCached(t *testing.T) {
	f, c, _, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := f.FetchPrices(context.Background(), []string{"bitcoin"}, types.USD)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, 0, c.Len())
}

func TestTimeoutIsNotCached(t *testing.T) {
	f, c, _, m := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	start := time.Now()
	_, err := f.FetchPrices(context.Background(), []string{"bitcoin"}, types.USD)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(metrics.OutcomeTimeout)))
}

func TestInvalidResponse(t *testing.T) {
	bodies := map[string]string{
		"malformed": `{invalid json}`,
		"array":     `[1,2,3]`,
		"null":      `null`,
		"flat":      `{"bitcoin": 5}`,
		"trailing":  `{"bitcoin":{"usd":1}} <html>oops`,
		"two":       `{"bitcoin":{"usd":1}}{"bitcoin":{"usd":2}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			f, c, _, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			_, err := f.FetchPrices(context.Background(), []string{"bitcoin"}, types.USD)
			assert.True(t, errors.Is(err, ErrInvalidResponse), "got %v", err)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewFetcher(Config{BaseURL: url, Timeout: time.Second}, cache.New(), nil)
	_, err := f.FetchPrices(context.Background(), []string{"bitcoin"}, types.USD)
	assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)

	var urlErr *neturl.Error
	assert.True(t, errors.As(err, &urlErr), "transport error lost from chain: %v", err)
}

func TestTrailingWhitespaceIsAccepted(t *testing.T) {
	f, c, _, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"bitcoin\":{\"usd\":1}}\n"))
	})

	snap, err := f.FetchPrices(context.Background(), []string{"bitcoin"}, types.USD)
	require.NoError(t, err)
	assert.Equal(t, types.Snapshot{"bitcoin": {"usd": 1}}, snap)
	assert.Equal(t, 1, c.Len())
}

func TestValidationHappensBeforeNetwork(t *testing.T) {
	f, _, transport, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := f.FetchPrices(context.Background(), nil, types.USD)
	assert.True(t, errors.Is(err, ErrInvalidCoinID))

	_, err = f.FetchPrices(context.Background(), []string{"Bit Coin"}, types.USD)
	assert.True(t, errors.Is(err, ErrInvalidCoinID))
	assert.True(t, IsValidationError(err))

	_, err = f.FetchPrices(context.Background(), []string{"bitcoin"}, "GBP")
	assert.True(t, errors.Is(err, ErrUnsupportedCurrency))

	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestConcurrentMissesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	f, _, transport, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"dogecoin":{"usd":0.1}}`))
	})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.FetchPrices(context.Background(), []string{"dogecoin"}, types.USD)
			errs <- err
		}()
	}

	// let the goroutines pile up on the in-flight request
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestAPIKeyHeader(t *testing.T) {
	assert.Equal(t, "x-cg-demo-api-key", apiKeyHeader(DefaultBaseURL))
	assert.Equal(t, "x-cg-pro-api-key", apiKeyHeader("https://pro-api.coingecko.com/api/v3"))
}
