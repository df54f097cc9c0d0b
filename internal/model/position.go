package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the running holding of one user in one ticker. At most one
// live row exists per (user, ticker). AvgPrice is zero whenever TotalQty
// is zero; a position of size 0 has no cost basis.
type Position struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Ticker      string          `json:"ticker"`
	TotalQty    decimal.Decimal `json:"total_qty"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Position) Flat() bool {
	return p.TotalQty.IsZero()
}
