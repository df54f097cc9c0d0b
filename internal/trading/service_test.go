package trading

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService() (*Service, *MemStore) {
	store := NewMemStore()
	return NewService(store, nil, testLogger(), time.Second), store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func place(t *testing.T, svc *Service, userID, ticker, direction, qty, price string) PlaceResult {
	t.Helper()
	res, err := svc.Place(context.Background(), PlaceRequest{
		UserID:    userID,
		Ticker:    ticker,
		Direction: types.TradeDirection(direction),
		Qty:       dec(qty),
		Price:     dec(price),
	})
	if err != nil {
		t.Fatalf("Place(%s %s %s@%s) failed: %v", userID, direction, qty, price, err)
	}
	return res
}

func TestPlace_BuyExecutes(t *testing.T) {
	svc, _ := newTestService()
	res := place(t, svc, "u1", "aapl", "buy", "10", "100.00")

	if res.Trade.Status != types.TradeStatusExecuted {
		t.Errorf("trade status = %s, want executed", res.Trade.Status)
	}
	if res.Trade.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want normalized AAPL", res.Trade.Ticker)
	}
	if res.Trade.ExecutedAt == nil {
		t.Error("ExecutedAt not set")
	}
	if res.Trade.PositionID == "" || res.Trade.PositionID != res.Position.ID {
		t.Errorf("trade not linked to position: %q vs %q", res.Trade.PositionID, res.Position.ID)
	}
	if !res.Position.TotalQty.Equal(dec("10")) || !res.Position.AvgPrice.Equal(dec("100")) {
		t.Errorf("position = {%s @ %s}, want {10 @ 100}", res.Position.TotalQty, res.Position.AvgPrice)
	}
}

func TestPlace_Validation(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name  string
		req   PlaceRequest
		field string
	}{
		{"missing user", PlaceRequest{Ticker: "AAPL", Direction: "buy", Qty: dec("1"), Price: dec("1")}, "user_id"},
		{"empty ticker", PlaceRequest{UserID: "u", Ticker: "  ", Direction: "buy", Qty: dec("1"), Price: dec("1")}, "ticker"},
		{"bad direction", PlaceRequest{UserID: "u", Ticker: "AAPL", Direction: "hold", Qty: dec("1"), Price: dec("1")}, "direction"},
		{"zero qty", PlaceRequest{UserID: "u", Ticker: "AAPL", Direction: "buy", Qty: dec("0"), Price: dec("1")}, "qty"},
		{"negative qty", PlaceRequest{UserID: "u", Ticker: "AAPL", Direction: "buy", Qty: dec("-2"), Price: dec("1")}, "qty"},
		{"zero price", PlaceRequest{UserID: "u", Ticker: "AAPL", Direction: "buy", Qty: dec("1"), Price: dec("0")}, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Place(context.Background(), tt.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
			// no trade record may exist after a validation failure
			trades, _ := svc.ListTrades(context.Background(), TradeFilter{UserID: tt.req.UserID})
			if len(trades) != 0 {
				t.Errorf("validation failure persisted %d trades", len(trades))
			}
		})
	}
}

func TestPlace_SellInsufficientHoldings(t *testing.T) {
	svc, _ := newTestService()
	place(t, svc, "u1", "AAPL", "buy", "10", "150.00")

	_, err := svc.Place(context.Background(), PlaceRequest{
		UserID: "u1", Ticker: "AAPL", Direction: types.TradeDirectionSell,
		Qty: dec("15"), Price: dec("160.00"),
	})
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("err = %v, want ErrInsufficientHoldings", err)
	}

	pos, err := svc.GetPosition(context.Background(), "u1", "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.TotalQty.Equal(dec("10")) || !pos.AvgPrice.Equal(dec("150")) {
		t.Errorf("position mutated by rejected sell: {%s @ %s}", pos.TotalQty, pos.AvgPrice)
	}

	// rejected trade is kept for audit as failed
	failed, err := svc.ListTrades(context.Background(), TradeFilter{UserID: "u1", Status: types.TradeStatusFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed trades = %d, want 1", len(failed))
	}
	if !failed[0].Qty.Equal(dec("15")) {
		t.Errorf("failed trade qty = %s, want 15", failed[0].Qty)
	}
}

func TestPlace_SellToZeroResetsBasis(t *testing.T) {
	svc, _ := newTestService()
	place(t, svc, "u1", "TSLA", "buy", "4", "50")
	res := place(t, svc, "u1", "TSLA", "sell", "4", "60")
	if !res.Position.TotalQty.IsZero() {
		t.Errorf("TotalQty = %s, want 0", res.Position.TotalQty)
	}
	if !res.Position.AvgPrice.IsZero() {
		t.Errorf("AvgPrice = %s, want 0", res.Position.AvgPrice)
	}
	if !res.Position.RealizedPnL.Equal(dec("40")) {
		t.Errorf("RealizedPnL = %s, want 40", res.Position.RealizedPnL)
	}
}

func TestPlace_WeightedAverageScenario(t *testing.T) {
	svc, _ := newTestService()
	place(t, svc, "u1", "AAPL", "buy", "10", "100.00")
	res := place(t, svc, "u1", "AAPL", "buy", "10", "200.00")
	if !res.Position.TotalQty.Equal(dec("20")) || !res.Position.AvgPrice.Equal(dec("150")) {
		t.Fatalf("after second buy: {%s @ %s}, want {20 @ 150}", res.Position.TotalQty, res.Position.AvgPrice)
	}
	res = place(t, svc, "u1", "AAPL", "sell", "5", "300.00")
	if !res.Position.TotalQty.Equal(dec("15")) || !res.Position.AvgPrice.Equal(dec("150")) {
		t.Fatalf("after sell: {%s @ %s}, want {15 @ 150}", res.Position.TotalQty, res.Position.AvgPrice)
	}
	if !res.Position.RealizedPnL.Equal(dec("750")) {
		t.Errorf("RealizedPnL = %s, want 750", res.Position.RealizedPnL)
	}
}

func TestCancel_StateMachine(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	pending := &model.Trade{
		UserID: "u1", Ticker: "AAPL", Direction: types.TradeDirectionBuy,
		Status: types.TradeStatusPending, Qty: dec("1"), Price: dec("10"),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveTrade(ctx, pending); err != nil {
		t.Fatal(err)
	}

	cancelled, err := svc.Cancel(ctx, pending.ID)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if cancelled.Status != types.TradeStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// second cancel of the same trade must be rejected
	if _, err := svc.Cancel(ctx, pending.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("double cancel err = %v, want ErrInvalidStateTransition", err)
	}

	// cancelling an executed trade must be rejected
	res := place(t, svc, "u1", "MSFT", "buy", "1", "10")
	if _, err := svc.Cancel(ctx, res.Trade.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("cancel executed err = %v, want ErrInvalidStateTransition", err)
	}

	if _, err := svc.Cancel(ctx, "no-such-trade"); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("cancel unknown err = %v, want ErrTradeNotFound", err)
	}
}

func TestPlace_ConcurrentBuysNoLostUpdates(t *testing.T) {
	svc, _ := newTestService()
	const n = 100

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(context.Background(), PlaceRequest{
				UserID: "u1", Ticker: "AAPL", Direction: types.TradeDirectionBuy,
				Qty: dec("1"), Price: dec("10"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent place failed: %v", err)
		}
	}

	pos, err := svc.GetPosition(context.Background(), "u1", "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.TotalQty.Equal(dec("100")) {
		t.Errorf("TotalQty = %s, want 100", pos.TotalQty)
	}
	if !pos.AvgPrice.Equal(dec("10")) {
		t.Errorf("AvgPrice = %s, want 10", pos.AvgPrice)
	}
}

func TestListTrades_Filters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	place(t, svc, "u1", "AAPL", "buy", "1", "10")
	place(t, svc, "u1", "MSFT", "buy", "2", "20")
	place(t, svc, "u2", "AAPL", "buy", "3", "30")

	byUser, _ := svc.ListTrades(ctx, TradeFilter{UserID: "u1"})
	if len(byUser) != 2 {
		t.Errorf("u1 trades = %d, want 2", len(byUser))
	}
	byTicker, _ := svc.ListTrades(ctx, TradeFilter{UserID: "u1", Ticker: "MSFT"})
	if len(byTicker) != 1 || !byTicker[0].Qty.Equal(dec("2")) {
		t.Errorf("MSFT filter returned %d trades", len(byTicker))
	}
	executed, _ := svc.ListTrades(ctx, TradeFilter{Status: types.TradeStatusExecuted})
	if len(executed) != 3 {
		t.Errorf("executed trades = %d, want 3", len(executed))
	}

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	inRange, _ := svc.ListTrades(ctx, TradeFilter{UserID: "u1", From: &from, To: &to})
	if len(inRange) != 2 {
		t.Errorf("in-range trades = %d, want 2", len(inRange))
	}
	past := time.Now().UTC().Add(-2 * time.Hour)
	before, _ := svc.ListTrades(ctx, TradeFilter{UserID: "u1", To: &past})
	if len(before) != 0 {
		t.Errorf("stale-range trades = %d, want 0", len(before))
	}
}

func TestSweepStalePending(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	old := &model.Trade{
		UserID: "u1", Ticker: "AAPL", Direction: types.TradeDirectionBuy,
		Status: types.TradeStatusPending, Qty: dec("1"), Price: dec("10"),
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	fresh := &model.Trade{
		UserID: "u1", Ticker: "AAPL", Direction: types.TradeDirectionBuy,
		Status: types.TradeStatusPending, Qty: dec("1"), Price: dec("10"),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveTrade(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTrade(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	swept, err := svc.SweepStalePending(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}
	got, _ := store.LoadTrade(ctx, old.ID)
	if got.Status != types.TradeStatusCancelled {
		t.Errorf("old trade status = %s, want cancelled", got.Status)
	}
	got, _ = store.LoadTrade(ctx, fresh.ID)
	if got.Status != types.TradeStatusPending {
		t.Errorf("fresh trade status = %s, want pending", got.Status)
	}
}

func TestSavePositionAndTrade_LosesToConcurrentCancel(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	trade := &model.Trade{
		UserID: "u1", Ticker: "AAPL", Direction: types.TradeDirectionBuy,
		Status: types.TradeStatusPending, Qty: dec("1"), Price: dec("10"),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveTrade(ctx, trade); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TransitionTrade(ctx, trade.ID, types.TradeStatusPending, types.TradeStatusCancelled); err != nil {
		t.Fatal(err)
	}

	trade.Status = types.TradeStatusExecuted
	pos := &model.Position{UserID: "u1", Ticker: "AAPL", TotalQty: dec("1"), AvgPrice: dec("10")}
	err := store.SavePositionAndTrade(ctx, pos, trade)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
	// the cancel must win: no position row may exist
	if _, err := store.LoadPosition(ctx, "u1", "AAPL"); !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("position persisted despite losing the race: %v", err)
	}
}
