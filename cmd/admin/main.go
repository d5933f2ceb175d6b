package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/PawanKumar-Dev/domainflow/internal/orders"
	"github.com/PawanKumar-Dev/domainflow/internal/pending"
	"github.com/PawanKumar-Dev/domainflow/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if _, err := db.Exec("SET search_path TO domainflow"); err != nil {
		logger.Error("failed to set search_path", "error", err)
		os.Exit(1)
	}

	pendingRepo := pending.NewRepository(db)
	orderRepo := orders.NewRepository(db)
	resolver := pending.NewResolver(pendingRepo, orderRepo, logger)
	handler := pending.NewHandler(pendingRepo, resolver, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pending-domains", handler.HandleList)
	mux.HandleFunc("GET /pending-domains/{id}", handler.HandleGet)
	mux.HandleFunc("POST /pending-domains/{id}/resolve", handler.HandleResolve)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting admin service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
