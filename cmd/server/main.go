package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-service/config"
	"settlement-service/internal/db"
	"settlement-service/internal/directory"
	"settlement-service/internal/handler"
	authmw "settlement-service/internal/middleware"
	"settlement-service/internal/notifier"
	"settlement-service/internal/provider/paystack"
	"settlement-service/internal/repository"
	"settlement-service/internal/router"
	"settlement-service/internal/usecase"
	"settlement-service/pkg/cache"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting settlement service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	ctx := context.Background()

	dbPool, err := db.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := db.RunMigrations(ctx, dbPool, "./migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	logger.Info("connected to database", zap.String("database", cfg.Database.DBName))

	redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisCache.Close()

	// Repositories
	walletRepo := repository.NewWalletRepository(dbPool)
	txRepo := repository.NewTransactionRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	ticketRepo := repository.NewTicketRepository(dbPool)
	supportRepo := repository.NewSupportRepository(dbPool)

	// Collaborators
	gateway := paystack.New(cfg.Paystack)
	users := directory.NewHTTPDirectory(cfg.Services.IdentityBaseURL, logger)
	notify := notifier.NewLogNotifier(logger)

	// Usecases
	fundingUC := usecase.NewFundingUsecase(walletRepo, txRepo, gateway, users, notify, cfg.Paystack.CallbackBaseURL, logger)
	purchaseUC := usecase.NewPurchaseUsecase(productRepo, txRepo, gateway, users, notify, cfg.Paystack.CallbackBaseURL, logger)
	supportUC := usecase.NewSupportUsecase(walletRepo, supportRepo, notify, logger)
	ticketUC := usecase.NewTicketUsecase(ticketRepo, redisCache, logger)
	webhookUC := usecase.NewWebhookUsecase(txRepo, gateway, fundingUC, purchaseUC, redisCache, logger)

	// Handlers
	walletHandler := handler.NewWalletHandler(fundingUC, logger)
	productHandler := handler.NewProductHandler(purchaseUC, cfg.Storage.ProductFileDir, logger)
	eventHandler := handler.NewEventHandler(ticketUC, supportUC, logger)
	webhookHandler := handler.NewWebhookHandler(webhookUC, logger)

	auth := authmw.NewAuth(cfg.Auth.JWTSecret)

	r := router.SetupRoutes(walletHandler, productHandler, eventHandler, webhookHandler, auth, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
