package httpserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"mt-stocktrade/internal/auth"
	"mt-stocktrade/internal/marketdata"
	"mt-stocktrade/internal/model"
)

// WSHandler streams quote and trade lifecycle events to an authenticated
// browser client. Trade events are delivered only to their owner.
type WSHandler struct {
	bus      *marketdata.Bus
	authSvc  *auth.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *marketdata.Bus, authSvc *auth.Service, origin string) *WSHandler {
	return &WSHandler{
		bus:     bus,
		authSvc: authSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	// localhost and 127.0.0.1 are interchangeable during development
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// browsers cannot set an Authorization header on a WS dial
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt := <-sub:
			if !deliverTo(evt, userID) {
				continue
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func deliverTo(evt marketdata.Event, userID string) bool {
	trade, ok := evt.Data.(*model.Trade)
	if !ok {
		// quotes and other broadcast events go to everyone
		return true
	}
	return trade.UserID == userID
}
