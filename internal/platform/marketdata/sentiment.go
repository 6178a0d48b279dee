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

const defaultFearGreedURL = "https://api.alternative.me/fng/"

// FearGreed reads the alternative.me crypto fear & greed index.
type FearGreed struct {
	url        string
	httpClient *http.Client
}

var _ domain.SentimentSource = (*FearGreed)(nil)

func NewFearGreed(url string) *FearGreed {
	if url == "" {
		url = defaultFearGreedURL
	}
	return &FearGreed{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *FearGreed) Sentiment(ctx context.Context) (domain.SentimentSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return domain.SentimentSnapshot{}, fmt.Errorf("marketdata: build sentiment request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.SentimentSnapshot{}, fmt.Errorf("marketdata: fetch sentiment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.SentimentSnapshot{}, fmt.Errorf("marketdata: sentiment status %d", resp.StatusCode)
	}

	var body struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.SentimentSnapshot{}, fmt.Errorf("marketdata: decode sentiment: %w", err)
	}
	if len(body.Data) == 0 {
		return domain.SentimentSnapshot{}, fmt.Errorf("marketdata: sentiment: %w", domain.ErrNoData)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(body.Data[0].Value), 64)
	if err != nil {
		return domain.SentimentSnapshot{}, fmt.Errorf("marketdata: parse sentiment value: %w", err)
	}
	return domain.SentimentSnapshot{
		FearGreedIndex: value,
		Classification: body.Data[0].Classification,
	}, nil
}
