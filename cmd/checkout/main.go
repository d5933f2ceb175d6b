package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/PawanKumar-Dev/domainflow/internal/checkout"
	"github.com/PawanKumar-Dev/domainflow/internal/eligibility"
	"github.com/PawanKumar-Dev/domainflow/internal/messaging"
	"github.com/PawanKumar-Dev/domainflow/internal/notify"
	"github.com/PawanKumar-Dev/domainflow/internal/orders"
	"github.com/PawanKumar-Dev/domainflow/internal/payment"
	"github.com/PawanKumar-Dev/domainflow/internal/pending"
	"github.com/PawanKumar-Dev/domainflow/internal/registrar"
	"github.com/PawanKumar-Dev/domainflow/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := requireEnv(logger, "POSTGRES_URL")
	gatewayURL := requireEnv(logger, "PAYMENT_GATEWAY_URL")
	gatewayKeyID := requireEnv(logger, "PAYMENT_KEY_ID")
	gatewayKeySecret := requireEnv(logger, "PAYMENT_KEY_SECRET")
	webhookSecret := requireEnv(logger, "PAYMENT_WEBHOOK_SECRET")
	registrarURL := requireEnv(logger, "REGISTRAR_URL")
	registrarAPIKey := requireEnv(logger, "REGISTRAR_API_KEY")

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

	var producer *messaging.Producer
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer = messaging.NewProducer(strings.Split(kafkaBrokers, ","), messaging.TopicOrderCompleted)
		defer func() { _ = producer.Close() }()
	}

	metrics, err := telemetry.NewCheckoutMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	var restrictedTLDs []string
	if raw := os.Getenv("RESTRICTED_TLDS"); raw != "" {
		restrictedTLDs = strings.Split(raw, ",")
	}

	// TLD_MINIMUM_YEARS overrides the built-in minimum-term table, as
	// comma-separated tld=years pairs, e.g. "ai=2,tm=10".
	var filterOpts []eligibility.Option
	if raw := os.Getenv("TLD_MINIMUM_YEARS"); raw != "" {
		minYears := make(map[string]int)
		for _, pair := range strings.Split(raw, ",") {
			tld, years, ok := strings.Cut(pair, "=")
			if !ok {
				logger.Error("invalid TLD_MINIMUM_YEARS entry", "entry", pair)
				os.Exit(1)
			}
			n, err := strconv.Atoi(strings.TrimSpace(years))
			if err != nil {
				logger.Error("invalid TLD_MINIMUM_YEARS entry", "entry", pair, "error", err)
				os.Exit(1)
			}
			minYears[tld] = n
		}
		filterOpts = append(filterOpts, eligibility.WithMinimumYears(minYears))
	}

	httpClient := &http.Client{
		Timeout:   60 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	orderRepo := orders.NewRepository(db)
	pendingRepo := pending.NewRepository(db)
	rejectionRepo := orders.NewRejectionRepository(db)

	service := checkout.NewService(checkout.ServiceConfig{
		Verifier:       payment.NewVerifier(payment.NewClient(gatewayURL, gatewayKeyID, gatewayKeySecret, httpClient), webhookSecret),
		Eligibility:    eligibility.NewFilter(restrictedTLDs, filterOpts...),
		Registrar:      registrar.NewClient(registrarURL, registrarAPIKey, httpClient),
		Orders:         orderRepo,
		Pending:        pendingRepo,
		Rejections:     rejectionRepo,
		Notifier:       notify.NewDispatcher(producer, logger),
		Metrics:        metrics,
		Logger:         logger,
		SupportContact: os.Getenv("SUPPORT_CONTACT"),
	})

	checkoutHandler := checkout.NewHandler(service, logger)
	ordersHandler := orders.NewHandler(orderRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout/verify", checkoutHandler.HandleVerify)
	mux.HandleFunc("GET /orders", ordersHandler.HandleList)
	mux.HandleFunc("GET /orders/{id}", ordersHandler.HandleGet)
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// Registrar calls run with the request attached, so the write timeout
		// must outlast the slowest registrar fan-out.
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting checkout service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func requireEnv(logger *slog.Logger, name string) string {
	value := os.Getenv(name)
	if value == "" {
		logger.Error(name + " environment variable is required")
		os.Exit(1)
	}
	return value
}
