package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/orgbill/console/api"
	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/config"
	"github.com/orgbill/console/store"
)

var (
	configFile = flag.String("config", "", "Path to server configuration YAML file")
	addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
)

func main() {
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadServerConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.StripeSecretKey == "" {
		log.Fatal("Stripe secret key is not configured (STRIPE_SECRET_KEY)")
	}
	if len(cfg.Plans) == 0 {
		logger.Warn("No plans configured; /plans will be empty")
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	orgs, err := store.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to initialise store: %v", err)
	}

	provider := billing.NewStripeSubscriptionProvider(
		cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.Catalog(cfg.Plans))

	handler := api.NewRouter(orgs, provider, api.Config{
		PublishableKey:  cfg.StripePublishableKey,
		CreateRateLimit: cfg.CreateRateLimit,
		AllowedOrigins:  cfg.AllowedOrigins,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go func() {
		logger.Info("Starting billing API server", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	fmt.Println("Shutdown complete")
}
