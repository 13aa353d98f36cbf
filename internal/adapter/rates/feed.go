package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// timeKey carries the display label in a rate feed payload
const timeKey = "time"

var currencyKey = regexp.MustCompile(`^[A-Z]{3}$`)

// FeedClient fetches rates from a JSON endpoint shaped like
// {"time": "2021/02/20 15:00", "USD": 29.5, "AUD": 20.1}
type FeedClient struct {
	url        string
	httpClient *http.Client
	cache      *gocache.Cache // nil disables response caching
}

// NewFeedClient creates a new feed client
// Successful snapshots are reused for ttl; a zero ttl always hits the endpoint.
func NewFeedClient(url string, timeout, ttl time.Duration) *FeedClient {
	c := &FeedClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

// FetchRates implements domain.RateProvider
func (c *FeedClient) FetchRates(ctx context.Context) (domain.RateSnapshot, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(c.url); ok {
			return cached.(domain.RateSnapshot).Clone(), nil
		}
	}

	body, err := get(ctx, c.httpClient, c.url, "application/json")
	if err != nil {
		return domain.RateSnapshot{}, err
	}

	snap, err := ParseFeed(body)
	if err != nil {
		return domain.RateSnapshot{}, err
	}

	if c.cache != nil {
		c.cache.SetDefault(c.url, snap.Clone())
	}
	return snap, nil
}

// ParseFeed decodes a rate feed payload
// Keys that are not 3-letter currency codes are ignored; a currency with a non-positive
// or unparsable value fails the whole payload.
func ParseFeed(body []byte) (domain.RateSnapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.RateSnapshot{}, fmt.Errorf("%w: decode payload: %v", domain.ErrRateFetchFailure, err)
	}

	snap := domain.RateSnapshot{Rates: make(map[string]decimal.Decimal)}

	if label, ok := raw[timeKey]; ok {
		if err := json.Unmarshal(label, &snap.Time); err != nil {
			return domain.RateSnapshot{}, fmt.Errorf("%w: decode time label: %v", domain.ErrRateFetchFailure, err)
		}
	}

	for key, value := range raw {
		if !currencyKey.MatchString(key) {
			continue
		}

		rate, err := decodeRate(value)
		if err != nil {
			return domain.RateSnapshot{}, fmt.Errorf("%w: rate for %s: %v", domain.ErrRateFetchFailure, key, err)
		}
		snap.Rates[key] = rate
	}

	if snap.IsEmpty() {
		return domain.RateSnapshot{}, fmt.Errorf("%w: payload holds no rates", domain.ErrRateFetchFailure)
	}

	return snap, nil
}

// decodeRate accepts a JSON number or a numeric string
func decodeRate(value json.RawMessage) (decimal.Decimal, error) {
	var rate decimal.Decimal
	if err := json.Unmarshal(value, &rate); err != nil {
		return decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("must be positive, got %s", rate)
	}
	return rate, nil
}

// get performs a GET and returns the body of a 200 response
func get(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrRateFetchFailure, err)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrRateFetchFailure, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: %s", domain.ErrRateFetchFailure, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrRateFetchFailure, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrRateFetchFailure)
	}

	return body, nil
}
