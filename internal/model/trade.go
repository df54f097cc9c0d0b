package model

import (
	"time"

	"mt-stocktrade/internal/types"

	"github.com/shopspring/decimal"
)

// Trade is a single buy or sell instruction. Quantity, price and direction
// are immutable once the trade reaches a terminal status.
type Trade struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	Ticker     string               `json:"ticker"`
	Direction  types.TradeDirection `json:"direction"`
	Status     types.TradeStatus    `json:"status"`
	Qty        decimal.Decimal      `json:"qty"`
	Price      decimal.Decimal      `json:"price"`
	PositionID string               `json:"position_id,omitempty"`
	ExecutedAt *time.Time           `json:"executed_at,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}
