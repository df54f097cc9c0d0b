package marketdata

import (
	"net/http"
	"strings"

	"mt-stocktrade/internal/httputil"

	"github.com/shopspring/decimal"
)

type Handler struct {
	quotes *Quotes
	client *Client
	bus    *Bus
}

func NewHandler(quotes *Quotes, client *Client, bus *Bus) *Handler {
	return &Handler{quotes: quotes, client: client, bus: bus}
}

// Quote serves the cached last price, falling back to a single on-demand
// fetch when the cache has never seen the ticker.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "ticker is required"})
		return
	}
	if q, ok := h.quotes.Get(ticker); ok {
		httputil.WriteJSON(w, http.StatusOK, q)
		return
	}
	if h.client != nil {
		price, err := h.client.FetchQuote(r.Context(), ticker)
		if err == nil {
			q := h.quotes.Set(ticker, price)
			h.bus.Publish(Event{Type: EventQuote, Data: q})
			httputil.WriteJSON(w, http.StatusOK, q)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "no quote for " + ticker})
}

type pushQuoteRequest struct {
	Ticker string `json:"ticker"`
	Price  string `json:"price"`
}

// PushQuote lets a trusted collaborator seed the quote cache. Guarded by
// the internal token middleware.
func (h *Handler) PushQuote(w http.ResponseWriter, r *http.Request) {
	var req pushQuoteRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "ticker is required"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid price"})
		return
	}
	q := h.quotes.Set(req.Ticker, price)
	h.bus.Publish(Event{Type: EventQuote, Data: q})
	httputil.WriteJSON(w, http.StatusOK, q)
}
