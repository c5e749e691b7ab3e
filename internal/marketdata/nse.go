package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/types"
)

// NSESource fetches daily candles from the NSE India historical API. NSE
// refuses requests without the session cookies set by its landing page, so
// the first call warms up a cookie-less GET against the base URL.
type NSESource struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string

	warmOnce sync.Once
	warmErr  error
}

var _ interfaces.PriceSource = (*NSESource)(nil)

func NewNSESource() *NSESource {
	return &NSESource{
		baseURL:    "https://www.nseindia.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
}

func (n *NSESource) Name() string { return "nse_api" }

func (n *NSESource) Candles(ctx context.Context, symbol string, from, to time.Time, interval types.Interval) ([]types.Candle, error) {
	if interval != types.IntervalDay {
		return nil, fmt.Errorf("nse historical api serves daily candles only")
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", from.Format("02-01-2006"))
	q.Set("to", to.Format("02-01-2006"))
	endpoint := fmt.Sprintf("%s/api/historical/cm/equity?%s", n.baseURL, q.Encode())

	data, err := n.makeRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch nse candles: %w", err)
	}
	return n.parseCandles(data)
}

func (n *NSESource) makeRequest(ctx context.Context, endpoint string) ([]byte, error) {
	n.warmOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL, nil)
		if err != nil {
			n.warmErr = err
			return
		}
		n.setHeaders(req)
		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.warmErr = err
			return
		}
		resp.Body.Close()
	})
	if n.warmErr != nil {
		return nil, fmt.Errorf("nse session warmup: %w", n.warmErr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	n.setHeaders(req)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nse api returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (n *NSESource) setHeaders(req *http.Request) {
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}
}

type nseHistoricalResponse struct {
	Data []struct {
		Timestamp string  `json:"CH_TIMESTAMP"`
		Open      float64 `json:"CH_OPENING_PRICE"`
		High      float64 `json:"CH_TRADE_HIGH_PRICE"`
		Low       float64 `json:"CH_TRADE_LOW_PRICE"`
		Close     float64 `json:"CH_CLOSING_PRICE"`
		Volume    float64 `json:"CH_TOT_TRADED_QTY"`
	} `json:"data"`
}

func (n *NSESource) parseCandles(data []byte) ([]types.Candle, error) {
	var parsed nseHistoricalResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse nse response: %w", err)
	}

	candles := make([]types.Candle, 0, len(parsed.Data))
	for _, row := range parsed.Data {
		day, err := time.ParseInLocation("2006-01-02", row.Timestamp, ist)
		if err != nil {
			continue
		}
		candles = append(candles, types.Candle{
			Ts:    day.Unix(),
			Open:  row.Open,
			High:  row.High,
			Low:   row.Low,
			Close: row.Close,
			Vol:   row.Volume,
		})
	}
	// NSE serves newest first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}
