package options

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"mt-stocktrade/internal/httputil"
	"mt-stocktrade/internal/trading"
	"mt-stocktrade/internal/types"
)

type Handler struct {
	store  *Store
	trades *trading.Service
}

func NewHandler(store *Store, trades *trading.Service) *Handler {
	return &Handler{store: store, trades: trades}
}

type attachRequest struct {
	ContractType string `json:"contract_type"`
	StrikePrice  string `json:"strike_price"`
	Expiry       string `json:"expiry"`
	Strategy     string `json:"strategy"`
	Premium      string `json:"premium"`
}

// Attach records option contract details against a trade the caller owns.
func (h *Handler) Attach(w http.ResponseWriter, r *http.Request, userID string) {
	tradeID := chi.URLParam(r, "id")
	trade, err := h.trades.GetTrade(r.Context(), tradeID)
	if err != nil || trade.UserID != userID {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "trade not found"})
		return
	}

	var req attachRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	detail, err := parseAttach(tradeID, req)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.store.Save(r.Context(), detail); err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to save option detail"})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID string) {
	tradeID := chi.URLParam(r, "id")
	trade, err := h.trades.GetTrade(r.Context(), tradeID)
	if err != nil || trade.UserID != userID {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "trade not found"})
		return
	}
	detail, err := h.store.GetByTrade(r.Context(), tradeID)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "option detail not found"})
		return
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func parseAttach(tradeID string, req attachRequest) (Detail, error) {
	d := Detail{TradeID: tradeID}

	ct := types.ContractType(req.ContractType)
	if ct != types.ContractTypeCall && ct != types.ContractTypePut {
		return d, errors.New("contract_type must be call or put")
	}
	d.ContractType = ct

	strike, err := decimal.NewFromString(req.StrikePrice)
	if err != nil || !strike.IsPositive() {
		return d, errors.New("strike_price must be a positive decimal")
	}
	d.StrikePrice = strike

	expiry, err := time.Parse("2006-01-02", req.Expiry)
	if err != nil {
		return d, errors.New("expiry must be a YYYY-MM-DD date")
	}
	d.Expiry = expiry

	if req.Strategy != "" {
		st := types.OptionStrategy(req.Strategy)
		if !st.Valid() {
			return d, errors.New("unknown strategy")
		}
		d.Strategy = st
	}

	premium, err := decimal.NewFromString(req.Premium)
	if err != nil || premium.IsNegative() {
		return d, errors.New("premium must be a non-negative decimal")
	}
	d.Premium = premium
	return d, nil
}
