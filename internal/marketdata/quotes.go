package marketdata

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the last known price for a ticker. There is no streaming feed;
// quotes arrive through the internal push endpoint or an on-demand fetch.
type Quote struct {
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Quotes is a process-local cache of last prices keyed by upper-cased
// ticker.
type Quotes struct {
	mu    sync.RWMutex
	byTkr map[string]Quote
}

func NewQuotes() *Quotes {
	return &Quotes{byTkr: make(map[string]Quote)}
}

func (q *Quotes) Set(ticker string, price decimal.Decimal) Quote {
	quote := Quote{
		Ticker:    strings.ToUpper(strings.TrimSpace(ticker)),
		Price:     price,
		UpdatedAt: time.Now().UTC(),
	}
	q.mu.Lock()
	q.byTkr[quote.Ticker] = quote
	q.mu.Unlock()
	return quote
}

func (q *Quotes) Get(ticker string) (Quote, bool) {
	q.mu.RLock()
	quote, ok := q.byTkr[strings.ToUpper(strings.TrimSpace(ticker))]
	q.mu.RUnlock()
	return quote, ok
}
