package price

import (
	"coingecko-telegram-bot/internal/cache"
	"coingecko-telegram-bot/internal/metrics"
	"coingecko-telegram-bot/internal/types"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultTimeout = 5 * time.Second
)

var coinIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Config configures a Fetcher. Zero values fall back to the defaults above.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Stats describes upstream traffic since start.
type Stats struct {
	Requests    int64
	LastRequest time.Time
}

// Fetcher answers price lookups from the cache and falls back to the CoinGecko simple/price API.
type Fetcher struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client

	cache   *cache.PriceCache
	metrics *metrics.BotMetrics
	flights singleflight.Group

	requests    atomic.Int64
	lastRequest atomic.Int64
}

// NewFetcher builds a Fetcher. m may be nil.
func NewFetcher(cfg Config, c *cache.PriceCache, m *metrics.BotMetrics) *Fetcher {
	f := &Fetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
		cache:   c,
		metrics: m,
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.cache == nil {
		f.cache = cache.New()
	}
	return f
}

// IsValidCoinID checks the shape of a CoinGecko id, not its existence.
func IsValidCoinID(id string) bool {
	return len(id) > 0 && coinIDPattern.MatchString(id)
}

// CacheKey is order independent: the ids are de-duplicated and sorted.
func CacheKey(coinIDs []string, currency types.FiatCurrency) string {
	return strings.Join(normalizeIDs(coinIDs), ",") + "-" + string(currency)
}

func normalizeIDs(coinIDs []string) []string {
	ids := slices.Clone(coinIDs)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// FetchPrices returns prices of coinIDs in currency. An empty currency means USD.
// Failed lookups are never cached.
func (f *Fetcher) FetchPrices(ctx context.Context, coinIDs []string, currency types.FiatCurrency) (types.Snapshot, error) {
	currency, err := validate(coinIDs, currency)
	if err != nil {
		return nil, err
	}

	key := CacheKey(coinIDs, currency)
	if snap, ok := f.cache.Get(key); ok {
		age, _ := f.cache.Age(key)
		log.WithFields(log.Fields{"key": key, "age": age}).Debug("cache hit")
		f.metrics.CacheHit()
		return snap, nil
	}

	log.WithField("key", key).Debug("cache miss")
	f.metrics.CacheMiss()

	// concurrent misses for one key share a single request
	v, err, shared := f.flights.Do(key, func() (interface{}, error) {
		if snap, ok := f.cache.Get(key); ok {
			return snap, nil
		}
		snap, err := f.request(context.WithoutCancel(ctx), normalizeIDs(coinIDs), currency)
		if err != nil {
			return nil, err
		}
		f.cache.Set(key, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.WithField("key", key).Debug("joined in-flight request")
	}

	return v.(types.Snapshot).Clone(), nil
}

// Age reports how old the cached snapshot for coinIDs and currency is, in whole seconds.
func (f *Fetcher) Age(coinIDs []string, currency types.FiatCurrency) (int, bool) {
	if currency == "" {
		currency = types.DefaultCurrency
	}
	return f.cache.Age(CacheKey(coinIDs, currency))
}

func (f *Fetcher) Stats() Stats {
	s := Stats{Requests: f.requests.Load()}
	if last := f.lastRequest.Load(); last != 0 {
		s.LastRequest = time.Unix(0, last)
	}
	return s
}

func validate(coinIDs []string, currency types.FiatCurrency) (types.FiatCurrency, error) {
	if len(coinIDs) == 0 {
		return "", errors.Wrap(ErrInvalidCoinID, "no coin ids given")
	}
	for _, id := range coinIDs {
		if !IsValidCoinID(id) {
			return "", errors.Wrapf(ErrInvalidCoinID, "%q", id)
		}
	}

	if currency == "" {
		return types.DefaultCurrency, nil
	}
	c, ok := types.ParseFiatCurrency(string(currency))
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedCurrency, "%q", currency)
	}
	return c, nil
}

func (f *Fetcher) request(ctx context.Context, ids []string, currency types.FiatCurrency) (types.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", currency.Lower())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build price request")
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set(apiKeyHeader(f.baseURL), f.apiKey)
	}

	n := f.requests.Add(1)
	f.lastRequest.Store(time.Now().UnixNano())
	log.WithFields(log.Fields{"ids": ids, "currency": currency}).Infof("API request #%d", n)

	start := time.Now()
	snap, outcome, err := f.do(ctx, req)
	f.metrics.ObserveUpstream(outcome, time.Since(start))
	if err != nil {
		log.WithFields(log.Fields{"ids": ids, "currency": currency, "outcome": outcome}).Errorf("API request failed: %v", err)
		return nil, err
	}
	return snap, nil
}

func (f *Fetcher) do(ctx context.Context, req *http.Request) (types.Snapshot, string, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, metrics.OutcomeTimeout, errors.Wrapf(ErrTimeout, "after %s", f.timeout)
		}
		return nil, metrics.OutcomeNetworkError, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, metrics.OutcomeUpstream, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var snap types.Snapshot
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&snap); err != nil {
		if isTimeout(ctx, err) {
			return nil, metrics.OutcomeTimeout, errors.Wrapf(ErrTimeout, "after %s", f.timeout)
		}
		return nil, metrics.OutcomeInvalid, errors.Wrap(ErrInvalidResponse, err.Error())
	}
	if snap == nil {
		return nil, metrics.OutcomeInvalid, errors.Wrap(ErrInvalidResponse, "empty body")
	}
	// the body must hold exactly one JSON value
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, metrics.OutcomeInvalid, errors.Wrap(ErrInvalidResponse, "trailing data after JSON object")
	}

	return snap, metrics.OutcomeOK, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func apiKeyHeader(baseURL string) string {
	if strings.Contains(baseURL, "pro-api.coingecko.com") {
		return "x-cg-pro-api-key"
	}
	return "x-cg-demo-api-key"
}
