package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/types"
)

// YahooSource fetches candles from the Yahoo Finance chart API. Indian
// symbols are tried with the NSE suffix first, then BSE, then bare (for
// anything international that slipped into the tradebook).
type YahooSource struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

var _ interfaces.PriceSource = (*YahooSource)(nil)

func NewYahooSource() *YahooSource {
	return &YahooSource{
		baseURL:    "https://query1.finance.yahoo.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

func (y *YahooSource) Name() string { return "yahoo_finance" }

func (y *YahooSource) Candles(ctx context.Context, symbol string, from, to time.Time, interval types.Interval) ([]types.Candle, error) {
	var lastErr error
	for _, ticker := range []string{symbol + ".NS", symbol + ".BO", symbol} {
		candles, err := y.chart(ctx, ticker, from, to, interval)
		if err != nil {
			lastErr = err
			continue
		}
		if len(candles) > 0 {
			return candles, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooSource) chart(ctx context.Context, ticker string, from, to time.Time, interval types.Interval) ([]types.Candle, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", from.Unix()))
	q.Set("period2", fmt.Sprintf("%d", to.Unix()))
	q.Set("interval", string(interval))
	q.Set("includePrePost", "false")

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(ticker), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", y.userAgent)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart %s returned status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed yahooChartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", ticker, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]types.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads thin sessions with nulls; skip incomplete bars.
		if i >= len(quote.Close) || quote.Close[i] == nil || quote.Open[i] == nil ||
			quote.High[i] == nil || quote.Low[i] == nil {
			continue
		}
		var vol float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			vol = *quote.Volume[i]
		}
		candles = append(candles, types.Candle{
			Ts:    ts,
			Open:  *quote.Open[i],
			High:  *quote.High[i],
			Low:   *quote.Low[i],
			Close: *quote.Close[i],
			Vol:   vol,
		})
	}
	return candles, nil
}
