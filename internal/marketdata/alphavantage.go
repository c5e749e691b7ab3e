package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/types"
)

// AlphaVantageSource is the last-resort candle provider: a free key allows
// 25 calls a day, so the fetcher keeps it at the end of the chain behind an
// aggressive rate limit. Indian symbols use the BSE suffix Alpha Vantage
// expects.
type AlphaVantageSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ interfaces.PriceSource = (*AlphaVantageSource)(nil)

func NewAlphaVantageSource(apiKey string) *AlphaVantageSource {
	return &AlphaVantageSource{
		baseURL:    "https://www.alphavantage.co",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *AlphaVantageSource) Name() string { return "alpha_vantage" }

// Configured reports whether an API key is present.
func (a *AlphaVantageSource) Configured() bool { return a.apiKey != "" }

func (a *AlphaVantageSource) Candles(ctx context.Context, symbol string, from, to time.Time, interval types.Interval) ([]types.Candle, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage api key not configured")
	}

	function := "TIME_SERIES_DAILY"
	seriesKey := "Time Series (Daily)"
	layout := "2006-01-02"
	q := url.Values{}
	if interval == types.IntervalHour || interval == types.Interval15Min {
		function = "TIME_SERIES_INTRADAY"
		avInterval := "60min"
		if interval == types.Interval15Min {
			avInterval = "15min"
		}
		seriesKey = fmt.Sprintf("Time Series (%s)", avInterval)
		layout = "2006-01-02 15:04:05"
		q.Set("interval", avInterval)
	}
	q.Set("function", function)
	q.Set("symbol", symbol+".BSE")
	q.Set("apikey", a.apiKey)
	q.Set("outputsize", "full")
	q.Set("datatype", "json")

	endpoint := fmt.Sprintf("%s/query?%s", a.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse alpha vantage response: %w", err)
	}
	if msg, ok := parsed["Error Message"]; ok {
		return nil, fmt.Errorf("alpha vantage error: %s", msg)
	}
	if msg, ok := parsed["Note"]; ok {
		return nil, fmt.Errorf("alpha vantage rate limit: %s", msg)
	}

	series, ok := parsed[seriesKey]
	if !ok {
		return nil, nil
	}
	var bars map[string]map[string]string
	if err := json.Unmarshal(series, &bars); err != nil {
		return nil, fmt.Errorf("parse alpha vantage series: %w", err)
	}

	candles := make([]types.Candle, 0, len(bars))
	for stamp, fields := range bars {
		ts, err := time.ParseInLocation(layout, stamp, ist)
		if err != nil {
			continue
		}
		if ts.Before(from) || ts.After(to) {
			continue
		}
		c := types.Candle{Ts: ts.Unix()}
		c.Open = avField(fields, "1. open")
		c.High = avField(fields, "2. high")
		c.Low = avField(fields, "3. low")
		c.Close = avField(fields, "4. close")
		c.Vol = avField(fields, "5. volume")
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Ts < candles[j].Ts })
	return candles, nil
}

func avField(fields map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(fields[key], 64)
	if err != nil {
		return 0
	}
	return v
}
