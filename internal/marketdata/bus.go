package marketdata

import (
	"sync"
)

// Event types published on the Bus. Trade lifecycle events carry a
// *model.Trade, quote events a Quote, option expiry events an
// options.Detail.
const (
	EventQuote          = "quote"
	EventTradeExecuted  = "trade_executed"
	EventTradeCancelled = "trade_cancelled"
	EventOptionExpiring = "option_expiring"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const subscriberBuffer = 100

// Bus fans events out to in-process subscribers, feeding the WebSocket
// stream. Publish never blocks: a subscriber that falls behind its buffer
// loses events instead of stalling the trading path.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}
