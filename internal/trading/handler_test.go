package trading

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"mt-stocktrade/internal/marketdata"
	"mt-stocktrade/internal/types"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *marketdata.Quotes) {
	t.Helper()
	svc, _ := newTestService()
	quotes := marketdata.NewQuotes()
	return NewHandler(svc, quotes), svc, quotes
}

func TestHandlerPlace(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body := `{"ticker":"aapl","direction":"BUY","qty":"10","price":"150.00"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/trades", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Place(rec, req, "u1")

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res PlaceResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Trade.Ticker != "AAPL" || res.Trade.Status != types.TradeStatusExecuted {
		t.Fatalf("trade = %+v", res.Trade)
	}
	if !res.Position.TotalQty.Equal(dec("10")) || !res.Position.AvgPrice.Equal(dec("150")) {
		t.Fatalf("position = %+v", res.Position)
	}
}

func TestHandlerPlace_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{"ticker":`, http.StatusBadRequest},
		{"unknown field", `{"symbol":"AAPL"}`, http.StatusBadRequest},
		{"bad qty", `{"ticker":"AAPL","direction":"buy","qty":"ten","price":"1"}`, http.StatusBadRequest},
		{"bad price", `{"ticker":"AAPL","direction":"buy","qty":"1","price":""}`, http.StatusBadRequest},
		{"zero qty", `{"ticker":"AAPL","direction":"buy","qty":"0","price":"1"}`, http.StatusBadRequest},
		{"bad direction", `{"ticker":"AAPL","direction":"hold","qty":"1","price":"1"}`, http.StatusBadRequest},
		{"oversell", `{"ticker":"AAPL","direction":"sell","qty":"5","price":"1"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/v1/trades", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Place(rec, req, "u1")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandlerCancel(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	res := place(t, svc, "u1", "AAPL", "buy", "1", "100")

	// executed trades cannot be cancelled
	req := httptest.NewRequest(http.MethodPost, "/v1/trades/x/cancel", nil)
	rec := httptest.NewRecorder()
	h.Cancel(rec, req, "u1", res.Trade.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel executed: status = %d, want 409", rec.Code)
	}

	// unknown trade
	rec = httptest.NewRecorder()
	h.Cancel(rec, req, "u1", "missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cancel missing: status = %d, want 404", rec.Code)
	}

	// another user's trade reads as missing
	rec = httptest.NewRecorder()
	h.Cancel(rec, req, "u2", res.Trade.ID)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cancel foreign: status = %d, want 404", rec.Code)
	}
}

func TestHandlerGetTrade_OwnershipHidden(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	res := place(t, svc, "u1", "AAPL", "buy", "1", "100")

	req := httptest.NewRequest(http.MethodGet, "/v1/trades/x", nil)

	rec := httptest.NewRecorder()
	h.GetTrade(rec, req, "u1", res.Trade.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("own trade: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetTrade(rec, req, "u2", res.Trade.ID)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign trade: status = %d, want 404", rec.Code)
	}
}

func TestHandlerListTrades_BadTimeFilter(t *testing.T) {
	h, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/trades?from=yesterday", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req, "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerListTrades_EmptyIsArray(t *testing.T) {
	h, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/trades", nil)
	rec := httptest.NewRecorder()
	h.ListTrades(rec, req, "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}

func TestHandlerPositions_MarkToMarket(t *testing.T) {
	h, svc, quotes := newTestHandler(t)
	place(t, svc, "u1", "AAPL", "buy", "10", "150")
	quotes.Set("AAPL", decimal.NewFromInt(160))

	req := httptest.NewRequest(http.MethodGet, "/v1/positions/AAPL", nil)
	rec := httptest.NewRecorder()
	h.GetPosition(rec, req, "u1", "AAPL")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view struct {
		MarkPrice     *decimal.Decimal `json:"mark_price"`
		MarketValue   *decimal.Decimal `json:"market_value"`
		UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.MarkPrice == nil || !view.MarkPrice.Equal(dec("160")) {
		t.Fatalf("mark price = %v", view.MarkPrice)
	}
	if !view.MarketValue.Equal(dec("1600")) {
		t.Fatalf("market value = %s", view.MarketValue)
	}
	if !view.UnrealizedPnL.Equal(dec("100")) {
		t.Fatalf("unrealized pnl = %s", view.UnrealizedPnL)
	}

	// position in a ticker with no quote carries no projections
	place(t, svc, "u1", "MSFT", "buy", "1", "300")
	rec = httptest.NewRecorder()
	h.GetPosition(rec, httptest.NewRequest(http.MethodGet, "/v1/positions/MSFT", nil), "u1", "MSFT")
	var bare struct {
		MarkPrice *decimal.Decimal `json:"mark_price"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bare); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bare.MarkPrice != nil {
		t.Fatalf("mark price = %v, want absent", bare.MarkPrice)
	}
}

func TestHandlerPositions_FlatPositionProjectsZero(t *testing.T) {
	h, svc, quotes := newTestHandler(t)
	place(t, svc, "u1", "AAPL", "buy", "10", "150")
	place(t, svc, "u1", "AAPL", "sell", "10", "180")
	quotes.Set("AAPL", decimal.NewFromInt(999))

	rec := httptest.NewRecorder()
	h.GetPosition(rec, httptest.NewRequest(http.MethodGet, "/v1/positions/AAPL", nil), "u1", "AAPL")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view struct {
		MarkPrice     *decimal.Decimal `json:"mark_price"`
		MarketValue   *decimal.Decimal `json:"market_value"`
		UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.MarkPrice == nil || !view.MarkPrice.Equal(dec("999")) {
		t.Fatalf("mark price = %v", view.MarkPrice)
	}
	if !view.MarketValue.IsZero() {
		t.Fatalf("market value = %s, want 0", view.MarketValue)
	}
	if !view.UnrealizedPnL.IsZero() {
		t.Fatalf("unrealized pnl = %s, want 0 for a flat position", view.UnrealizedPnL)
	}
}

func TestHandlerGetPosition_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.GetPosition(rec, httptest.NewRequest(http.MethodGet, "/v1/positions/TSLA", nil), "u1", "TSLA")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
