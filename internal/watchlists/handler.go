package watchlists

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mt-stocktrade/internal/httputil"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type createRequest struct {
	Name string `json:"name"`
}

type tickerRequest struct {
	Ticker string `json:"ticker"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, userID string) {
	var req createRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "name is required"})
		return
	}
	wl, err := h.store.Create(r.Context(), userID, req.Name)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to create watchlist"})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, wl)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	lists, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to list watchlists"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lists)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID string) {
	wl, err := h.store.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wl)
}

func (h *Handler) AddTicker(w http.ResponseWriter, r *http.Request, userID string) {
	var req tickerRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "ticker is required"})
		return
	}
	if err := h.store.AddTicker(r.Context(), userID, chi.URLParam(r, "id"), ticker); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveTicker(w http.ResponseWriter, r *http.Request, userID string) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	if err := h.store.RemoveTicker(r.Context(), userID, chi.URLParam(r, "id"), ticker); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.store.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "watchlist not found"})
		return
	}
	httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
}
