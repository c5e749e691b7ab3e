package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"trade-coach/internal/logger"
)

// GoogleSource scrapes last-traded prices from Google Finance quote pages.
// It only serves quotes; Google exposes no free historical candle API.
type GoogleSource struct {
	baseURL string
	timeout time.Duration
}

func NewGoogleSource() *GoogleSource {
	return &GoogleSource{
		baseURL: "https://www.google.com/finance",
		timeout: 10 * time.Second,
	}
}

func (g *GoogleSource) Name() string { return "google_finance" }

// Quote fetches the last traded price for an NSE symbol, falling back to BSE.
func (g *GoogleSource) Quote(ctx context.Context, symbol string) (float64, error) {
	for _, exchange := range []string{"NSE", "BOM"} {
		price, err := g.scrapeQuote(ctx, symbol, exchange)
		if err == nil {
			return price, nil
		}
		logger.Debug(ctx, "Google Finance quote attempt failed", "symbol", symbol, "exchange", exchange, "error", err.Error())
	}
	return 0, fmt.Errorf("google finance: no quote for %s", symbol)
}

func (g *GoogleSource) scrapeQuote(ctx context.Context, symbol, exchange string) (float64, error) {
	c := colly.NewCollector(
		colly.AllowedDomains("www.google.com"),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(g.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var price float64
	var found bool

	c.OnHTML("div[data-last-price]", func(e *colly.HTMLElement) {
		if found {
			return
		}
		p, err := parseQuotePrice(e.DOM)
		if err != nil {
			return
		}
		price = p
		found = true
	})

	url := fmt.Sprintf("%s/quote/%s:%s", g.baseURL, symbol, exchange)
	if err := c.Visit(url); err != nil {
		return 0, fmt.Errorf("visit %s: %w", url, err)
	}
	c.Wait()

	if !found {
		return 0, fmt.Errorf("no price element on %s", url)
	}
	return price, nil
}

// parseQuotePrice reads the data-last-price attribute off the quote header
// element, tolerating comma-grouped values.
func parseQuotePrice(sel *goquery.Selection) (float64, error) {
	raw, ok := sel.Attr("data-last-price")
	if !ok {
		return 0, fmt.Errorf("missing data-last-price attribute")
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive price %f", price)
	}
	return price, nil
}
