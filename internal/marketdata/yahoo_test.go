package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trade-coach/internal/types"
)

const yahooChartFixture = `{
  "chart": {
    "result": [{
      "timestamp": [1717995600, 1717996500, 1717997400],
      "indicators": {
        "quote": [{
          "open":   [100.0, 101.5, null],
          "high":   [102.0, 103.0, null],
          "low":    [99.5, 101.0, null],
          "close":  [101.5, 102.5, null],
          "volume": [12000, 8000, null]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahooCandlesParsesChart(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, yahooChartFixture)
	}))
	defer srv.Close()

	src := NewYahooSource()
	src.baseURL = srv.URL

	from := time.Unix(1717995000, 0)
	to := time.Unix(1717998000, 0)
	candles, err := src.Candles(context.Background(), "RELIANCE", from, to, types.Interval15Min)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}

	// The third bar is all nulls and must be dropped.
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	if candles[0].Ts != 1717995600 || candles[0].Close != 101.5 || candles[0].Vol != 12000 {
		t.Fatalf("unexpected first candle: %+v", candles[0])
	}
	if !strings.HasSuffix(gotPath, "/RELIANCE.NS") {
		t.Fatalf("expected NSE-suffixed ticker first, got path %s", gotPath)
	}
}

func TestYahooCandlesReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	src := NewYahooSource()
	src.baseURL = srv.URL

	_, err := src.Candles(context.Background(), "BOGUS", time.Now().AddDate(0, 0, -1), time.Now(), types.IntervalDay)
	if err == nil {
		t.Fatal("expected error from chart error payload")
	}
	if !strings.Contains(err.Error(), "No data found") {
		t.Fatalf("unexpected error: %v", err)
	}
}
