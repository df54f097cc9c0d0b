package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mt-stocktrade/internal/auth"
	"mt-stocktrade/internal/config"
	"mt-stocktrade/internal/db"
	"mt-stocktrade/internal/health"
	"mt-stocktrade/internal/httpserver"
	"mt-stocktrade/internal/marketdata"
	"mt-stocktrade/internal/options"
	"mt-stocktrade/internal/trading"
	"mt-stocktrade/internal/watchlists"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	startedAt := time.Now().UTC()

	bus := marketdata.NewBus()
	quotes := marketdata.NewQuotes()
	var quoteClient *marketdata.Client
	if cfg.QuoteAPIURL != "" {
		quoteClient = marketdata.NewClient(cfg.QuoteAPIURL, cfg.QuoteAPIRPS, log)
	}
	marketHandler := marketdata.NewHandler(quotes, quoteClient, bus)

	authSvc := auth.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authHandler := auth.NewHandler(authSvc)

	tradeStore := trading.NewStore(pool)
	tradeSvc := trading.NewService(tradeStore, bus, log, cfg.LockWait)
	tradeHandler := trading.NewHandler(tradeSvc, quotes)

	watchlistHandler := watchlists.NewHandler(watchlists.NewStore(pool))
	optionStore := options.NewStore(pool)
	optionsHandler := options.NewHandler(optionStore, tradeSvc)
	expiryNotifier := options.NewExpiryNotifier(optionStore, bus, log, cfg.ExpiryWindow)
	healthHandler := health.NewHandler(pool, startedAt, cfg.HTTPAddr, cfg.InternalToken)
	wsHandler := httpserver.NewWSHandler(bus, authSvc, cfg.WebSocketOrigin)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:      authHandler,
		TradeHandler:     tradeHandler,
		MarketHandler:    marketHandler,
		WatchlistHandler: watchlistHandler,
		OptionsHandler:   optionsHandler,
		HealthHandler:    healthHandler,
		AuthService:      authSvc,
		InternalToken:    cfg.InternalToken,
		WSHandler:        wsHandler,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepSpec, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := tradeSvc.SweepStalePending(sweepCtx, cfg.PendingTradeTTL); err != nil {
			log.WithError(err).Warn("stale trade sweep failed")
		}
	}); err != nil {
		log.Fatal(err)
	}
	if _, err := sweeper.AddFunc(cfg.ExpirySpec, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := expiryNotifier.Run(runCtx); err != nil {
			log.WithError(err).Warn("option expiry scan failed")
		}
	}); err != nil {
		log.Fatal(err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
