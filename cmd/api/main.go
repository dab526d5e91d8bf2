package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"examprep-billing/internal/catalog"
	"examprep-billing/internal/client"
	"examprep-billing/internal/config"
	"examprep-billing/internal/handler"
	"examprep-billing/internal/logger"
	"examprep-billing/internal/repository"
	"examprep-billing/internal/server"
	"examprep-billing/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Log)

	db := client.InitDBClient(cfg.DatabaseURL, cfg.SQLitePath)
	paymentClient := client.NewPaymentClient(&cfg.Payment)

	catalogRepo := repository.NewCatalogRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	userRepo := repository.NewUserRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	forumRepo := repository.NewForumRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	ctx := context.Background()
	if err := catalogRepo.Seed(ctx); err != nil {
		log.Error("seed catalog", "error", err)
		os.Exit(1)
	}
	if err := forumRepo.Seed(ctx); err != nil {
		log.Error("seed forums", "error", err)
		os.Exit(1)
	}

	catalogCache := catalog.NewCache(catalogRepo, cfg.Catalog.CacheTTL, nil)

	couponService := service.NewCouponService(couponRepo)
	ledgerService := service.NewLedgerService(db, purchaseRepo, userRepo, nil)
	entitlementService := service.NewEntitlementService(purchaseRepo, userRepo, forumRepo, nil)
	checkoutService := service.NewCheckoutService(db, catalogCache, couponService, sessionRepo, userRepo, nil)
	fulfillmentService := service.NewFulfillmentService(db, ledgerService, sessionRepo, userRepo, couponRepo, transactionRepo, nil)

	srv := server.NewServer(
		cfg.JWT.Secret,
		handler.NewCheckoutHandler(checkoutService, paymentClient),
		handler.NewWebhookHandler(paymentClient, fulfillmentService),
		handler.NewContentHandler(entitlementService, catalogCache, purchaseRepo, userRepo, progressRepo),
		handler.NewAdminHandler(ledgerService, nil),
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", serverAddr, "env", cfg.Environment.Name)

	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		os.Exit(1)
	}
}
