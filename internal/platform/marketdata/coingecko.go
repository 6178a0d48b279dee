// Package marketdata holds the HTTP clients for the upstream feeds:
// CoinGecko prices, the alternative.me fear & greed index and the
// Coinbase order book.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// coinIDs maps ticker symbols onto CoinGecko coin identifiers.
var coinIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"SOL": "solana",
}

// CoinGecko serves candle history, spot prices and historical price
// lookups. It implements both domain.PriceHistorySource and
// domain.PriceOracle.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var (
	_ domain.PriceHistorySource = (*CoinGecko)(nil)
	_ domain.PriceOracle        = (*CoinGecko)(nil)
)

func NewCoinGecko(baseURL, apiKey string) *CoinGecko {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func coinID(asset string) (string, error) {
	id, ok := coinIDs[strings.ToUpper(asset)]
	if !ok {
		return "", fmt.Errorf("marketdata: unknown asset %q: %w", asset, domain.ErrInvalidInput)
	}
	return id, nil
}

// History returns the most recent hourly closes as candles, oldest
// first, capped at bars.
func (c *CoinGecko) History(ctx context.Context, asset string, bars int) ([]domain.Candle, error) {
	id, err := coinID(asset)
	if err != nil {
		return nil, err
	}

	// CoinGecko serves hourly granularity for ranges up to 90 days;
	// one day of padding covers partial hours at the window edges.
	days := bars/24 + 1
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))

	var resp struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.getJSON(ctx, "/coins/"+id+"/market_chart", q, &resp); err != nil {
		return nil, fmt.Errorf("marketdata: history %s: %w", asset, err)
	}
	if len(resp.Prices) == 0 {
		return nil, fmt.Errorf("marketdata: history %s: %w", asset, domain.ErrNoData)
	}

	points := resp.Prices
	if len(points) > bars {
		points = points[len(points)-bars:]
	}
	out := make([]domain.Candle, len(points))
	for i, p := range points {
		price := p[1]
		out[i] = domain.Candle{
			Timestamp: time.UnixMilli(int64(p[0])).UTC(),
			Open:      price, High: price, Low: price, Close: price,
		}
	}
	return out, nil
}

// SpotPrice returns the current USD price of the asset.
func (c *CoinGecko) SpotPrice(ctx context.Context, asset string) (float64, error) {
	id, err := coinID(asset)
	if err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")

	var resp map[string]map[string]float64
	if err := c.getJSON(ctx, "/simple/price", q, &resp); err != nil {
		return 0, fmt.Errorf("marketdata: spot price %s: %w", asset, err)
	}
	price := resp[id]["usd"]
	if price <= 0 {
		return 0, fmt.Errorf("marketdata: spot price %s: %w", asset, domain.ErrNoData)
	}
	return price, nil
}

// PriceAt returns the price closest to the requested instant within a
// one-hour window on each side. A zero price with nil error means the
// window has no data yet.
func (c *CoinGecko) PriceAt(ctx context.Context, asset string, at time.Time) (float64, error) {
	id, err := coinID(asset)
	if err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("from", fmt.Sprintf("%d", at.Add(-time.Hour).Unix()))
	q.Set("to", fmt.Sprintf("%d", at.Add(time.Hour).Unix()))

	var resp struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.getJSON(ctx, "/coins/"+id+"/market_chart/range", q, &resp); err != nil {
		return 0, fmt.Errorf("marketdata: price at %s: %w", asset, err)
	}
	if len(resp.Prices) == 0 {
		return 0, nil
	}

	target := float64(at.UnixMilli())
	best, bestDist := 0.0, math.MaxFloat64
	for _, p := range resp.Prices {
		if d := math.Abs(p[0] - target); d < bestDist {
			best, bestDist = p[1], d
		}
	}
	return best, nil
}

func (c *CoinGecko) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
