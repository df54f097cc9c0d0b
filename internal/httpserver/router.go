package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mt-stocktrade/internal/auth"
	"mt-stocktrade/internal/health"
	"mt-stocktrade/internal/httputil"
	"mt-stocktrade/internal/marketdata"
	"mt-stocktrade/internal/options"
	"mt-stocktrade/internal/trading"
	"mt-stocktrade/internal/watchlists"
)

type RouterDeps struct {
	AuthHandler      *auth.Handler
	TradeHandler     *trading.Handler
	MarketHandler    *marketdata.Handler
	WatchlistHandler *watchlists.Handler
	OptionsHandler   *options.Handler
	HealthHandler    *health.Handler
	AuthService      *auth.Service
	InternalToken    string
	WSHandler        http.Handler
}

// authed adapts a userID-taking handler into an http.HandlerFunc. The
// route must sit behind WithAuth.
func authed(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		fn(w, r, userID)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Internal-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(corsMiddleware)
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Live)
	r.Get("/health/ready", d.HealthHandler.Ready)
	r.Get("/metrics", d.HealthHandler.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", d.AuthHandler.Register)
		r.Post("/auth/login", d.AuthHandler.Login)

		r.Get("/ws", d.WSHandler.ServeHTTP)
		r.Get("/market/quote", d.MarketHandler.Quote)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))

			r.Get("/me", authed(d.AuthHandler.Me))

			r.Post("/trades", authed(d.TradeHandler.Place))
			r.Get("/trades", authed(d.TradeHandler.ListTrades))
			r.Get("/trades/{id}", authed(func(w http.ResponseWriter, r *http.Request, userID string) {
				d.TradeHandler.GetTrade(w, r, userID, chi.URLParam(r, "id"))
			}))
			r.Post("/trades/{id}/cancel", authed(func(w http.ResponseWriter, r *http.Request, userID string) {
				d.TradeHandler.Cancel(w, r, userID, chi.URLParam(r, "id"))
			}))
			r.Post("/trades/{id}/option", authed(d.OptionsHandler.Attach))
			r.Get("/trades/{id}/option", authed(d.OptionsHandler.Get))

			r.Get("/positions", authed(d.TradeHandler.ListPositions))
			r.Get("/positions/{ticker}", authed(func(w http.ResponseWriter, r *http.Request, userID string) {
				d.TradeHandler.GetPosition(w, r, userID, chi.URLParam(r, "ticker"))
			}))

			r.Post("/watchlists", authed(d.WatchlistHandler.Create))
			r.Get("/watchlists", authed(d.WatchlistHandler.List))
			r.Get("/watchlists/{id}", authed(d.WatchlistHandler.Get))
			r.Delete("/watchlists/{id}", authed(d.WatchlistHandler.Delete))
			r.Post("/watchlists/{id}/tickers", authed(d.WatchlistHandler.AddTicker))
			r.Delete("/watchlists/{id}/tickers/{ticker}", authed(d.WatchlistHandler.RemoveTicker))
		})

		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))
			r.Post("/internal/quotes", d.MarketHandler.PushQuote)
		})
	})

	return r
}
