package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zenon-tools/pricefeed/internal/domain/price"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

// Fetcher retrieves current USD prices for the tracked asset set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]price.Record, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]price.Record, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]price.Record, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx)
}

// CoinGeckoFetcher queries the CoinGecko simple price API.
type CoinGeckoFetcher struct {
	client  *http.Client
	baseURL string
	log     *logger.Logger
}

var _ Fetcher = (*CoinGeckoFetcher)(nil)

// NewCoinGeckoFetcher builds a fetcher against the given API base URL, e.g.
// "https://api.coingecko.com/api/v3". The client's timeout bounds each call.
func NewCoinGeckoFetcher(client *http.Client, baseURL string, log *logger.Logger) (*CoinGeckoFetcher, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewDefault("coingecko-fetcher")
	}
	return &CoinGeckoFetcher{client: client, baseURL: baseURL, log: log}, nil
}

// Fetch requests USD prices for the fixed asset set. Entries with an
// unexpected shape are skipped; an entirely unusable payload is an error.
func (f *CoinGeckoFetcher) Fetch(ctx context.Context) ([]price.Record, error) {
	ids := make([]string, 0, len(price.Assets()))
	for _, asset := range price.Assets() {
		ids = append(ids, asset.ProviderID)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	endpoint := f.baseURL + "/simple/price?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("provider returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload map[string]struct {
		USD *float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("provider returned an empty price set")
	}

	records := make([]price.Record, 0, len(payload))
	for _, id := range ids {
		entry, ok := payload[id]
		if !ok {
			f.log.WithField("currency_id", id).Warn("provider response missing asset")
			continue
		}
		if entry.USD == nil {
			f.log.WithField("currency_id", id).Warn("provider entry has no usd value")
			continue
		}
		records = append(records, price.Record{CurrencyID: id, Value: *entry.USD})
	}
	for id := range payload {
		if _, known := price.CodeFor(id); !known {
			f.log.WithField("currency_id", id).Warn("ignoring unknown asset in provider response")
		}
	}

	return records, nil
}
