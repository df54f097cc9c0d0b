package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client fetches a single quote on demand from an external price API. It is
// deliberately not a streaming feed; callers hit it only on cache misses and
// the limiter keeps us inside the provider's request budget.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logrus.Logger
}

var ErrNoQuoteSource = errors.New("no quote source configured")

func NewClient(baseURL string, rps float64, log *logrus.Logger) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:     log,
	}
}

type quotePayload struct {
	Ticker string `json:"ticker"`
	Price  string `json:"price"`
}

// FetchQuote returns the provider's last price for the ticker. The expected
// response body is {"ticker": "...", "price": "..."}.
func (c *Client) FetchQuote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if c.baseURL == "" {
		return decimal.Zero, ErrNoQuoteSource
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	u := c.baseURL + "/quote?ticker=" + url.QueryEscape(strings.ToUpper(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("quote api returned %d for %s", resp.StatusCode, ticker)
	}
	var payload quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode quote response: %w", err)
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("quote api returned bad price %q for %s", payload.Price, ticker)
	}
	c.log.WithFields(logrus.Fields{"ticker": ticker, "price": price.String()}).Debug("fetched quote")
	return price, nil
}
