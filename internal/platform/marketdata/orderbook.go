package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
)

const defaultCoinbaseURL = "https://api.exchange.coinbase.com"

// Coinbase aggregates level-2 book depth from the Coinbase Exchange
// public API.
type Coinbase struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.OrderbookSource = (*Coinbase)(nil)

func NewCoinbase(baseURL string) *Coinbase {
	if baseURL == "" {
		baseURL = defaultCoinbaseURL
	}
	return &Coinbase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Orderbook sums the displayed size on each side of the level-2 book
// for the asset's USD product.
func (c *Coinbase) Orderbook(ctx context.Context, asset string) (domain.OrderbookSnapshot, error) {
	product := strings.ToUpper(asset) + "-USD"
	url := fmt.Sprintf("%s/products/%s/book?level=2", c.baseURL, product)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("marketdata: build book request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("marketdata: fetch book %s: %w", product, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.OrderbookSnapshot{}, fmt.Errorf("marketdata: book %s status %d", product, resp.StatusCode)
	}

	// Levels arrive as [price, size, num_orders] with the numbers
	// encoded as strings.
	var body struct {
		Bids [][]json.RawMessage `json:"bids"`
		Asks [][]json.RawMessage `json:"asks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("marketdata: decode book %s: %w", product, err)
	}

	return domain.OrderbookSnapshot{
		BidVolume: sumLevelSizes(body.Bids),
		AskVolume: sumLevelSizes(body.Asks),
	}, nil
}

func sumLevelSizes(levels [][]json.RawMessage) float64 {
	var total float64
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}
		var sizeStr string
		if err := json.Unmarshal(level[1], &sizeStr); err != nil {
			continue
		}
		size, err := strconv.ParseFloat(sizeStr, 64)
		if err != nil {
			continue
		}
		total += size
	}
	return total
}
