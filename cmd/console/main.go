package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/orgbill/console/client"
	"github.com/orgbill/console/config"
	"github.com/orgbill/console/console"
	"github.com/orgbill/console/payment"
)

var (
	configFile = flag.String("config", "", "Path to console configuration YAML file")
	addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
)

func main() {
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadConsoleConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if cfg.StripeSecretKey == "" {
		log.Fatal("Stripe secret key is not configured (STRIPE_SECRET_KEY)")
	}

	api := client.NewClient(cfg.APIBaseURL)
	intents := payment.NewStripeIntentClient(cfg.StripeSecretKey)

	srv := console.NewServer(api, intents, cfg.Origin, logger)
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("Starting console", "addr", cfg.Addr, "api", cfg.APIBaseURL)
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
