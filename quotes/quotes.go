package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	priceCacheExpiration  = 5 * time.Minute
	symbolCacheExpiration = 24 * time.Hour
)

var (
	ErrNotFound    = errors.New("symbol not found")
	ErrUnavailable = errors.New("quote service unavailable")
)

// Quote is one resolved symbol with its current price.
type Quote struct {
	Symbol string          `json:"symbol"` // canonical ticker
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Provider resolves ticker symbols to quotes. Lookup may serve a
// cached quote; LookupFresh always hits the upstream service, so a
// trade's funds check and its recorded value use the same price.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
	LookupFresh(ctx context.Context, symbol string) (*Quote, error)
}

// Client fetches quotes from Alpha Vantage. Cache is optional: with a
// nil Redis client every Lookup goes upstream.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Cache   *redis.Client
}

func NewClient(apiKey string, cache *redis.Client) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: "https://www.alphavantage.co",
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Cache:   cache,
	}
}

type searchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

func (c *Client) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = normalize(symbol)

	if c.Cache != nil {
		cached, err := c.Cache.Get(ctx, fmt.Sprintf("stock:%s:quote", symbol)).Result()
		if err == nil {
			var q Quote
			if json.Unmarshal([]byte(cached), &q) == nil {
				return &q, nil
			}
		}
	}

	return c.LookupFresh(ctx, symbol)
}

func (c *Client) LookupFresh(ctx context.Context, symbol string) (*Quote, error) {
	symbol = normalize(symbol)

	canonical, name, err := c.resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price, err := c.fetchPrice(ctx, canonical)
	if err != nil {
		return nil, err
	}

	q := &Quote{Symbol: canonical, Name: name, Price: price}

	if c.Cache != nil {
		// Best effort: a dead cache must not fail the lookup.
		if data, err := json.Marshal(q); err == nil {
			c.Cache.Set(ctx, fmt.Sprintf("stock:%s:quote", symbol), data, priceCacheExpiration)
			c.Cache.Set(ctx, fmt.Sprintf("stock:%s:quote", canonical), data, priceCacheExpiration)
		}
	}

	return q, nil
}

// resolve maps a raw symbol to its canonical ticker and display name.
// Resolutions are cached far longer than prices since listings rarely
// change.
func (c *Client) resolve(ctx context.Context, symbol string) (string, string, error) {
	cacheKey := fmt.Sprintf("stock:%s:search", symbol)

	if c.Cache != nil {
		cached, err := c.Cache.Get(ctx, cacheKey).Result()
		if err == nil {
			if canonical, name, ok := strings.Cut(cached, "|"); ok {
				return canonical, name, nil
			}
		}
	}

	var result searchResponse
	if err := c.getJSON(ctx, "SYMBOL_SEARCH", url.Values{"keywords": {symbol}}, &result); err != nil {
		return "", "", err
	}

	if len(result.BestMatches) == 0 {
		return "", "", ErrNotFound
	}

	canonical := normalize(result.BestMatches[0].Symbol)
	name := result.BestMatches[0].Name

	if c.Cache != nil {
		c.Cache.Set(ctx, cacheKey, canonical+"|"+name, symbolCacheExpiration)
	}

	return canonical, name, nil
}

func (c *Client) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var result globalQuoteResponse
	if err := c.getJSON(ctx, "GLOBAL_QUOTE", url.Values{"symbol": {symbol}}, &result); err != nil {
		return decimal.Zero, err
	}

	if result.GlobalQuote.Price == "" {
		return decimal.Zero, ErrNotFound
	}

	price, err := decimal.NewFromString(result.GlobalQuote.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: bad price %q for %s", ErrUnavailable, result.GlobalQuote.Price, symbol)
	}

	return price, nil
}

func (c *Client) getJSON(ctx context.Context, function string, params url.Values, out interface{}) error {
	params.Set("function", function)
	params.Set("apikey", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
