package pricing

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"asset-swap-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Feed is the interface to the market-data collaborator that maintains the
// price table. The engine never writes prices.
type Feed interface {
	FetchRates(ctx context.Context) (Table, error)
}

// FeedClient is an HTTP client for the market-data service.
// It implements the Feed interface.
type FeedClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure FeedClient implements the interface
var _ Feed = (*FeedClient)(nil)

// RateEntry is a single priced pair as published by the feed.
type RateEntry struct {
	Pair  string `json:"pair"`
	Price string `json:"price"`
}

// NewFeedClient creates a new market-data feed client.
func NewFeedClient(cfg *config.PriceFeed, logger *zap.Logger) *FeedClient {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &FeedClient{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// FetchRates pulls the full set of published pair prices and builds a fresh
// table snapshot. Entries with unparseable or non-positive prices are
// dropped with a warning rather than poisoning the snapshot.
func (c *FeedClient) FetchRates(ctx context.Context) (Table, error) {
	var entries []*RateEntry

	req := c.client.R().
		SetContext(ctx).
		SetResult(&entries).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, "GET", "/rates", req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}

	result := resp.Result().(*[]*RateEntry)
	table := make(Table, len(*result))
	for _, entry := range *result {
		from, to, ok := strings.Cut(entry.Pair, "/")
		if !ok {
			c.logger.Warn("Dropping rate entry with malformed pair",
				zap.String("pair", entry.Pair))
			continue
		}
		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			c.logger.Warn("Dropping rate entry with invalid price",
				zap.String("pair", entry.Pair), zap.String("price", entry.Price))
			continue
		}
		if !price.IsPositive() {
			continue
		}
		// Keys are normalized the same way lookups are, so a feed
		// publishing lowercase symbols still resolves.
		table[PairSymbol(Normalize(from), Normalize(to))] = price
	}

	return table, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *FeedClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
