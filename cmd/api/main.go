package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocksim/internal/catalog"
	"stocksim/internal/config"
	"stocksim/internal/db"
	"stocksim/internal/health"
	"stocksim/internal/httpserver"
	"stocksim/internal/identity"
	"stocksim/internal/trading"
	"stocksim/internal/wallet"
)

func main() {
	startedAt := time.Now().UTC()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	identitySvc := identity.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL, cfg.InitialBalance)
	walletStore := wallet.NewStore(pool)
	tradeSvc := trading.NewService(walletStore, cfg.FeeRate)
	catalogStore := catalog.NewStore(pool)
	bus := catalog.NewBus()
	var fetcher *catalog.Fetcher
	if cfg.QuoteAPIURL != "" {
		fetcher = catalog.NewFetcher(&http.Client{Timeout: cfg.QuoteTimeout}, cfg.QuoteAPIURL, cfg.QuoteAPIToken)
	}
	catalogSvc := catalog.NewService(catalogStore, fetcher, bus, cfg.QuoteTimeout)

	authHandler := identity.NewHandler(identitySvc)
	tradeHandler := trading.NewHandler(tradeSvc)
	walletHandler := wallet.NewHandler(walletStore)
	catalogHandler := catalog.NewHandler(catalogStore, catalogSvc)
	healthHandler := health.NewHandler(pool, startedAt, cfg.HTTPAddr, cfg.QuoteAPIURL, cfg.QuoteRefresh, cfg.InternalToken)
	quoteWS := catalog.NewQuoteWS(bus, cfg.WebSocketOrigin)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:    authHandler,
		TradeHandler:   tradeHandler,
		WalletHandler:  walletHandler,
		CatalogHandler: catalogHandler,
		HealthHandler:  healthHandler,
		AuthService:    identitySvc,
		InternalToken:  cfg.InternalToken,
		QuoteWS:        quoteWS,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	if fetcher != nil {
		catalogSvc.StartRefresher(ctx, cfg.QuoteRefresh)
	}

	log.Printf("server listening on %s", cfg.HTTPAddr)
	log.Printf("health endpoint: http://localhost%s/health", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
