package accounting

import (
	"fmt"
	"time"

	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"

	"github.com/shopspring/decimal"
)

// AvgPriceScale is the fixed decimal scale of the weighted-average cost
// quotient. Rounding is half-up.
const AvgPriceScale = 4

// Apply folds one executed trade into the position: a buy recomputes the
// weighted-average cost, a sell reduces quantity and accrues realized P&L
// against the current average. The trade must already be validated by the
// caller; negative or zero quantity/price reaching this function is a
// caller bug and panics.
func Apply(pos *model.Position, trade *model.Trade) {
	if trade.Qty.LessThanOrEqual(decimal.Zero) {
		panic(fmt.Sprintf("accounting: non-positive qty %s for trade %s", trade.Qty, trade.ID))
	}
	if trade.Price.LessThanOrEqual(decimal.Zero) {
		panic(fmt.Sprintf("accounting: non-positive price %s for trade %s", trade.Price, trade.ID))
	}
	if pos.TotalQty.IsNegative() {
		panic(fmt.Sprintf("accounting: negative position qty %s for %s/%s", pos.TotalQty, pos.UserID, pos.Ticker))
	}

	switch trade.Direction {
	case types.TradeDirectionBuy:
		newQty := pos.TotalQty.Add(trade.Qty)
		cost := pos.AvgPrice.Mul(pos.TotalQty).Add(trade.Price.Mul(trade.Qty))
		pos.AvgPrice = cost.Div(newQty).Round(AvgPriceScale)
		pos.TotalQty = newQty
	case types.TradeDirectionSell:
		if trade.Qty.GreaterThan(pos.TotalQty) {
			panic(fmt.Sprintf("accounting: sell qty %s exceeds held %s for %s/%s", trade.Qty, pos.TotalQty, pos.UserID, pos.Ticker))
		}
		pos.RealizedPnL = pos.RealizedPnL.Add(RealizedPnL(pos.AvgPrice, trade.Price, trade.Qty))
		pos.TotalQty = pos.TotalQty.Sub(trade.Qty)
		if pos.Flat() {
			// cost basis resets when the position is flat
			pos.AvgPrice = decimal.Zero
		}
	default:
		panic(fmt.Sprintf("accounting: unknown direction %q for trade %s", trade.Direction, trade.ID))
	}
	pos.UpdatedAt = time.Now().UTC()
}

// RealizedPnL is the profit locked in by selling qty at sellPrice against
// an average cost of avgPrice.
func RealizedPnL(avgPrice, sellPrice, qty decimal.Decimal) decimal.Decimal {
	return sellPrice.Sub(avgPrice).Mul(qty)
}

// ProjectUnrealizedPnL is the paper profit of the position against a live
// price. Zero for a flat position.
func ProjectUnrealizedPnL(pos *model.Position, currentPrice decimal.Decimal) decimal.Decimal {
	if pos.Flat() {
		return decimal.Zero
	}
	return currentPrice.Sub(pos.AvgPrice).Mul(pos.TotalQty)
}

// MarketValue is the notional worth of the position at a live price.
func MarketValue(pos *model.Position, currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Mul(pos.TotalQty)
}
