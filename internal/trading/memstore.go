package trading

import (
	"context"
	"sort"
	"sync"
	"time"

	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"

	"github.com/google/uuid"
)

// MemStore is a Repository backed by in-process maps. Records are stored
// by id and resolved through plain foreign keys, never object references,
// so there is no cyclic graph to manage. A single mutex gives the atomic
// dual-write guarantee.
type MemStore struct {
	mu        sync.RWMutex
	trades    map[string]model.Trade
	positions map[string]model.Position // keyed by user|ticker
}

func NewMemStore() *MemStore {
	return &MemStore{
		trades:    make(map[string]model.Trade),
		positions: make(map[string]model.Position),
	}
}

func (m *MemStore) LoadPosition(ctx context.Context, userID, ticker string) (*model.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[positionKey(userID, ticker)]
	if !ok {
		return nil, ErrPositionNotFound
	}
	return &pos, nil
}

func (m *MemStore) SaveTrade(ctx context.Context, trade *model.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	m.trades[trade.ID] = *trade
	return nil
}

func (m *MemStore) SavePositionAndTrade(ctx context.Context, pos *model.Position, trade *model.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trades[trade.ID]
	if !ok {
		return ErrTradeNotFound
	}
	if stored.Status.Terminal() {
		return ErrInvalidStateTransition
	}
	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}
	trade.PositionID = pos.ID
	m.positions[positionKey(pos.UserID, pos.Ticker)] = *pos
	m.trades[trade.ID] = *trade
	return nil
}

func (m *MemStore) TransitionTrade(ctx context.Context, tradeID string, from, to types.TradeStatus) (*model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade, ok := m.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	if trade.Status != from {
		return nil, ErrInvalidStateTransition
	}
	trade.Status = to
	m.trades[tradeID] = trade
	return &trade, nil
}

func (m *MemStore) LoadTrade(ctx context.Context, tradeID string) (*model.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trade, ok := m.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	return &trade, nil
}

func (m *MemStore) ListTrades(ctx context.Context, f TradeFilter) ([]model.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Trade
	for _, t := range m.trades {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.Ticker != "" && t.Ticker != f.Ticker {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.From != nil && (t.ExecutedAt == nil || t.ExecutedAt.Before(*f.From)) {
			continue
		}
		if f.To != nil && (t.ExecutedAt == nil || t.ExecutedAt.After(*f.To)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Position
	for _, p := range m.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (m *MemStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Trade
	for _, t := range m.trades {
		if t.Status == types.TradeStatusPending && t.CreatedAt.Before(before) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
