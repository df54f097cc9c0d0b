package trading

import (
	"context"
	"errors"
	"strings"
	"time"

	"mt-stocktrade/internal/accounting"
	"mt-stocktrade/internal/marketdata"
	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultLockWait = 3 * time.Second

type Publisher interface {
	Publish(evt marketdata.Event)
}

// Service is the trade lifecycle state machine. It owns all writes to
// Trade and Position records; collaborators only read.
type Service struct {
	repo     Repository
	locks    *keyedLock
	pub      Publisher
	log      *logrus.Logger
	lockWait time.Duration
}

func NewService(repo Repository, pub Publisher, log *logrus.Logger, lockWait time.Duration) *Service {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &Service{
		repo:     repo,
		locks:    newKeyedLock(),
		pub:      pub,
		log:      log,
		lockWait: lockWait,
	}
}

type PlaceRequest struct {
	UserID    string
	Ticker    string
	Direction types.TradeDirection
	Qty       decimal.Decimal
	Price     decimal.Decimal
}

type PlaceResult struct {
	Trade    model.Trade    `json:"trade"`
	Position model.Position `json:"position"`
}

func positionKey(userID, ticker string) string {
	return userID + "|" + ticker
}

// Place validates the request, creates a pending trade, applies it to the
// position and commits both as one unit. A sell exceeding the held
// quantity persists the trade as failed and returns
// ErrInsufficientHoldings; the position is untouched.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	if req.UserID == "" {
		return PlaceResult{}, validationErr("user_id", "required")
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return PlaceResult{}, validationErr("ticker", "required")
	}
	if req.Direction != types.TradeDirectionBuy && req.Direction != types.TradeDirectionSell {
		return PlaceResult{}, validationErr("direction", "must be buy or sell")
	}
	if req.Qty.LessThanOrEqual(decimal.Zero) {
		return PlaceResult{}, validationErr("qty", "must be positive")
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return PlaceResult{}, validationErr("price", "must be positive")
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	key := positionKey(req.UserID, ticker)
	if err := s.locks.Acquire(lockCtx, key); err != nil {
		return PlaceResult{}, err
	}
	defer s.locks.Release(key)

	pos, err := s.repo.LoadPosition(ctx, req.UserID, ticker)
	if errors.Is(err, ErrPositionNotFound) {
		pos = &model.Position{UserID: req.UserID, Ticker: ticker}
		err = nil
	}
	if err != nil {
		return PlaceResult{}, err
	}

	trade := &model.Trade{
		UserID:    req.UserID,
		Ticker:    ticker,
		Direction: req.Direction,
		Status:    types.TradeStatusPending,
		Qty:       req.Qty,
		Price:     req.Price,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.SaveTrade(ctx, trade); err != nil {
		return PlaceResult{}, err
	}

	if req.Direction == types.TradeDirectionSell && req.Qty.GreaterThan(pos.TotalQty) {
		trade.Status = types.TradeStatusFailed
		if saveErr := s.repo.SaveTrade(ctx, trade); saveErr != nil {
			return PlaceResult{}, saveErr
		}
		s.log.WithFields(logrus.Fields{
			"trade_id": trade.ID,
			"ticker":   ticker,
			"qty":      req.Qty.String(),
			"held":     pos.TotalQty.String(),
		}).Info("sell rejected, insufficient holdings")
		return PlaceResult{}, ErrInsufficientHoldings
	}

	accounting.Apply(pos, trade)
	now := time.Now().UTC()
	trade.Status = types.TradeStatusExecuted
	trade.ExecutedAt = &now
	if err := s.repo.SavePositionAndTrade(ctx, pos, trade); err != nil {
		return PlaceResult{}, err
	}

	if s.pub != nil {
		s.pub.Publish(marketdata.Event{Type: marketdata.EventTradeExecuted, Data: trade})
	}
	return PlaceResult{Trade: *trade, Position: *pos}, nil
}

// Cancel moves a pending trade to cancelled. It never touches the
// position and never reverses accounting; cancelling an executed trade is
// rejected with ErrInvalidStateTransition.
func (s *Service) Cancel(ctx context.Context, tradeID string) (*model.Trade, error) {
	trade, err := s.repo.TransitionTrade(ctx, tradeID, types.TradeStatusPending, types.TradeStatusCancelled)
	if err != nil {
		return nil, err
	}
	if s.pub != nil {
		s.pub.Publish(marketdata.Event{Type: marketdata.EventTradeCancelled, Data: trade})
	}
	return trade, nil
}

func (s *Service) GetTrade(ctx context.Context, tradeID string) (*model.Trade, error) {
	return s.repo.LoadTrade(ctx, tradeID)
}

func (s *Service) ListTrades(ctx context.Context, f TradeFilter) ([]model.Trade, error) {
	return s.repo.ListTrades(ctx, f)
}

func (s *Service) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	return s.repo.ListPositions(ctx, userID)
}

func (s *Service) GetPosition(ctx context.Context, userID, ticker string) (*model.Position, error) {
	return s.repo.LoadPosition(ctx, userID, strings.ToUpper(strings.TrimSpace(ticker)))
}

// SweepStalePending cancels pending trades older than ttl through the
// ordinary state machine. Trades that raced to a terminal status in the
// meantime are skipped.
func (s *Service) SweepStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	stale, err := s.repo.ListStalePending(ctx, cutoff, 500)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, t := range stale {
		if _, err := s.Cancel(ctx, t.ID); err != nil {
			if errors.Is(err, ErrInvalidStateTransition) || errors.Is(err, ErrTradeNotFound) {
				continue
			}
			return swept, err
		}
		swept++
	}
	if swept > 0 {
		s.log.WithField("count", swept).Info("swept stale pending trades")
	}
	return swept, nil
}
