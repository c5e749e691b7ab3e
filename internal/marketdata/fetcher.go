package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/logger"
	"trade-coach/internal/marketdata/mdobs"
	"trade-coach/internal/types"
)

// ErrNoData is returned when every configured source failed or returned
// nothing for a symbol.
var ErrNoData = errors.New("marketdata: no data from any source")

// Options configures the fetcher. Zero values get sensible defaults.
type Options struct {
	CacheDir        string
	CacheTTL        time.Duration
	SkipSymbols     []string
	AlphaVantageKey string
}

type ratedSource struct {
	source  interfaces.PriceSource
	limiter *RateLimiter
}

// Fetcher resolves candles through an ordered chain of price sources, with
// a shared file cache and per-source rate limits. Symbols that repeatedly
// fail everywhere land on a skip list for the rest of the run.
type Fetcher struct {
	sources []ratedSource
	quotes  []interfaces.QuoteSource
	cache   *Cache

	mu       sync.Mutex
	skip     map[string]bool
	failures map[string]int
	hits     map[string]int
}

// failures per symbol across all sources before it is skipped
const skipThreshold = 3

func NewFetcher(opts Options) *Fetcher {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.CacheDir == "" {
		opts.CacheDir = ".cache/marketdata"
	}

	f := &Fetcher{
		cache:    NewCache(opts.CacheDir, opts.CacheTTL),
		skip:     make(map[string]bool),
		failures: make(map[string]int),
		hits:     make(map[string]int),
	}
	for _, s := range opts.SkipSymbols {
		f.skip[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	// Fallback order mirrors observed reliability for NSE symbols: Yahoo
	// first, NSE's own API next, Alpha Vantage last because of its strict
	// free-tier quota. Each source goes behind the mdobs middleware so
	// every upstream call is spanned and logged.
	f.sources = append(f.sources, ratedSource{mdobs.Wrap(NewYahooSource()), NewRateLimiter(5, 2*time.Second)})
	f.sources = append(f.sources, ratedSource{mdobs.Wrap(NewNSESource()), NewRateLimiter(3, 3*time.Second)})
	if av := NewAlphaVantageSource(opts.AlphaVantageKey); av.Configured() {
		f.sources = append(f.sources, ratedSource{mdobs.Wrap(av), NewRateLimiter(1, 15*time.Second)})
	}
	f.quotes = append(f.quotes, NewGoogleSource())

	return f
}

// Candles returns candles for the symbol over [from, to], trying each
// source in order and caching the first non-empty answer.
func (f *Fetcher) Candles(ctx context.Context, symbol string, from, to time.Time, interval types.Interval) ([]types.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("marketdata: empty symbol")
	}
	if f.skipped(symbol) {
		return nil, fmt.Errorf("%w: %s is on the skip list", ErrNoData, symbol)
	}

	key := cacheKey(symbol, from, to, interval)
	if data, ok := f.cache.Get(key); ok {
		var candles []types.Candle
		if err := json.Unmarshal(data, &candles); err == nil {
			logger.Debug(ctx, "Candle cache hit", "symbol", symbol, "candles", len(candles))
			return candles, nil
		}
	}

	timer := logger.StartOperation(ctx, "marketdata.candles", "symbol", symbol, "interval", string(interval))

	var lastErr error
	for _, rs := range f.sources {
		if err := rs.limiter.Wait(ctx); err != nil {
			timer.EndWithError(err)
			return nil, err
		}

		candles, err := rs.source.Candles(ctx, symbol, from, to, interval)
		if err != nil {
			lastErr = err
			logger.Debug(ctx, "Source failed, falling through", "source", rs.source.Name(), "symbol", symbol, "error", err.Error())
			continue
		}
		if len(candles) == 0 {
			continue
		}

		f.recordHit(rs.source.Name())
		if data, err := json.Marshal(candles); err == nil {
			if err := f.cache.Set(key, data); err != nil {
				logger.Warn(ctx, "Candle cache write failed", "symbol", symbol, "error", err.Error())
			}
		}
		timer.End("source", rs.source.Name(), "candles", len(candles))
		return candles, nil
	}

	f.recordFailure(ctx, symbol)
	err := fmt.Errorf("%w: %s", ErrNoData, symbol)
	if lastErr != nil {
		err = fmt.Errorf("%w (last: %v)", err, lastErr)
	}
	timer.EndWithError(err)
	return nil, err
}

// LastPrice returns the most recent traded price, preferring quote sources
// and falling back to the close of the latest daily candle.
func (f *Fetcher) LastPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, q := range f.quotes {
		price, err := q.Quote(ctx, symbol)
		if err == nil && price > 0 {
			f.recordHit(q.Name())
			return price, nil
		}
	}

	to := time.Now()
	candles, err := f.Candles(ctx, symbol, to.AddDate(0, 0, -7), to, types.IntervalDay)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}

// SourceStatus reports how many successful answers each source has served
// this run, for the report footer and debugging.
func (f *Fetcher) SourceStatus() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.hits))
	for name, n := range f.hits {
		out[name] = n
	}
	return out
}

// SkippedSymbols returns the symbols benched for this run, sorted.
func (f *Fetcher) SkippedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.skip))
	for s := range f.skip {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (f *Fetcher) skipped(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skip[symbol]
}

func (f *Fetcher) recordHit(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[source]++
}

func (f *Fetcher) recordFailure(ctx context.Context, symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[symbol]++
	if f.failures[symbol] >= skipThreshold && !f.skip[symbol] {
		f.skip[symbol] = true
		logger.Warn(ctx, "Symbol moved to skip list after repeated failures", "symbol", symbol, "failures", f.failures[symbol])
	}
}

func cacheKey(symbol string, from, to time.Time, interval types.Interval) string {
	return fmt.Sprintf("candles:%s:%d:%d:%s", symbol, from.Unix(), to.Unix(), interval)
}
