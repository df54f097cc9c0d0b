package trading

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"mt-stocktrade/internal/accounting"
	"mt-stocktrade/internal/httputil"
	"mt-stocktrade/internal/marketdata"
	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc    *Service
	quotes *marketdata.Quotes
}

func NewHandler(svc *Service, quotes *marketdata.Quotes) *Handler {
	return &Handler{svc: svc, quotes: quotes}
}

type placeTradeRequest struct {
	Ticker    string `json:"ticker"`
	Direction string `json:"direction"`
	Qty       string `json:"qty"`
	Price     string `json:"price"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, userID string) {
	var req placeTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(req.Qty))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid qty"})
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid price"})
		return
	}
	res, err := h.svc.Place(r.Context(), PlaceRequest{
		UserID:    userID,
		Ticker:    req.Ticker,
		Direction: types.TradeDirection(strings.ToLower(strings.TrimSpace(req.Direction))),
		Qty:       qty,
		Price:     price,
	})
	if err != nil {
		writeTradingError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	trade, err := h.svc.GetTrade(r.Context(), tradeID)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	if trade.UserID != userID {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: ErrTradeNotFound.Error()})
		return
	}
	cancelled, err := h.svc.Cancel(r.Context(), tradeID)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cancelled)
}

func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	trade, err := h.svc.GetTrade(r.Context(), tradeID)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	if trade.UserID != userID {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: ErrTradeNotFound.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	f := TradeFilter{
		UserID: userID,
		Ticker: strings.ToUpper(strings.TrimSpace(q.Get("ticker"))),
		Status: types.TradeStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
	}
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid from, want RFC3339"})
			return
		}
		f.From = &ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid to, want RFC3339"})
			return
		}
		f.To = &ts
	}
	trades, err := h.svc.ListTrades(r.Context(), f)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

// positionView is a position plus market projections when a quote exists.
type positionView struct {
	model.Position
	MarkPrice     *decimal.Decimal `json:"mark_price,omitempty"`
	MarketValue   *decimal.Decimal `json:"market_value,omitempty"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
}

func (h *Handler) enrich(p model.Position) positionView {
	view := positionView{Position: p}
	if h.quotes == nil {
		return view
	}
	if q, ok := h.quotes.Get(p.Ticker); ok {
		mv := accounting.MarketValue(&p, q.Price)
		pnl := accounting.ProjectUnrealizedPnL(&p, q.Price)
		view.MarkPrice = &q.Price
		view.MarketValue = &mv
		view.UnrealizedPnL = &pnl
	}
	return view
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request, userID string) {
	positions, err := h.svc.ListPositions(r.Context(), userID)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, h.enrich(p))
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request, userID, ticker string) {
	pos, err := h.svc.GetPosition(r.Context(), userID, ticker)
	if err != nil {
		writeTradingError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.enrich(*pos))
}

func writeTradingError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: vErr.Error()})
	case errors.Is(err, ErrInsufficientHoldings):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{Error: "insufficient shares for this sell"})
	case errors.Is(err, ErrInvalidStateTransition):
		httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "cannot cancel: trade already executed or closed"})
	case errors.Is(err, ErrTradeNotFound), errors.Is(err, ErrPositionNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrBusy):
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
	}
}
