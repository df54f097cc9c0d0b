package trading

import (
	"context"
	"time"

	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"
)

// TradeFilter narrows ListTrades. Zero values mean "any". From/To bound the
// execution timestamp.
type TradeFilter struct {
	UserID string
	Ticker string
	Status types.TradeStatus
	From   *time.Time
	To     *time.Time
}

// Repository is the storage boundary of the trade ledger. Implementations
// must guarantee that SavePositionAndTrade commits both records as one
// atomic unit and that TransitionTrade is a compare-and-swap on status, so
// two operations racing on the same trade cannot both win.
type Repository interface {
	// LoadPosition returns the live position for (userID, ticker) or
	// ErrPositionNotFound.
	LoadPosition(ctx context.Context, userID, ticker string) (*model.Position, error)

	// SaveTrade inserts the trade when its ID is empty (assigning one) and
	// updates it otherwise.
	SaveTrade(ctx context.Context, trade *model.Trade) error

	// SavePositionAndTrade persists both records atomically, creating the
	// position row on first use and stamping trade.PositionID. The trade
	// row is only overwritten while still pending; if it reached a
	// terminal status concurrently (a cancel racing the execute) nothing
	// is committed and ErrInvalidStateTransition is returned.
	SavePositionAndTrade(ctx context.Context, pos *model.Position, trade *model.Trade) error

	// TransitionTrade moves the trade from one status to another only if it
	// currently holds the expected status. Returns ErrTradeNotFound for an
	// unknown id and ErrInvalidStateTransition when the status does not
	// match.
	TransitionTrade(ctx context.Context, tradeID string, from, to types.TradeStatus) (*model.Trade, error)

	LoadTrade(ctx context.Context, tradeID string) (*model.Trade, error)
	ListTrades(ctx context.Context, f TradeFilter) ([]model.Trade, error)
	ListPositions(ctx context.Context, userID string) ([]model.Position, error)

	// ListStalePending returns pending trades created before the cutoff,
	// oldest first. Used by the sweep job.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Trade, error)
}
