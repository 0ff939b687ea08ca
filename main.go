package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appcatalog "github.com/Zhima-Mochi/coffee-register/internal/application/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/Zhima-Mochi/coffee-register/internal/application/register"
	"github.com/Zhima-Mochi/coffee-register/internal/config"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/id"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/mockbackend"
	notificationworker "github.com/Zhima-Mochi/coffee-register/internal/infrastructure/notification/worker"
	infraobs "github.com/Zhima-Mochi/coffee-register/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/upstream"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/coffee-register/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const notificationLimit = 50

func main() {
	cfg := config.MustLoad()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Instruments(prometrics.New(registry, "", ""))
	tel := infraobs.New(
		oteltrace.New(cfg.ServiceName),
		zaplogger.Wrap(systemLogger),
		counters,
		histograms,
	)

	// In-memory event bus feeding the cashier notifications
	bus := outbox.NewBus(tel)
	bus.Start(context.Background())

	sessionRepo := memory.NewSessionRepository()
	notificationRepo := memory.NewNotificationRepository(notificationLimit)
	idGenerator := id.NewUUIDGenerator()

	var mockServer *http.Server
	if cfg.MockBackend.Enabled {
		backend := mockbackend.New(cfg.Upstream.APIKey, tel)
		mockServer = &http.Server{Addr: cfg.MockBackend.Address, Handler: backend.Handler()}
		cfg.Upstream.BaseURL = "http://" + cfg.MockBackend.Address
		go func() {
			systemLogger.Info("mock_backend_start", zap.String("addr", mockServer.Addr))
			if err := mockServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				systemLogger.Error("mock_backend_error", zap.Error(err))
			}
		}()
	}

	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	}, tel)
	orderClient := upstream.NewOrderClient(client)

	catalogService := appcatalog.NewService(upstream.NewProductClient(client), cfg.Catalog.CacheTTL, tel)

	checkoutUseCase := checkout.NewUseCase(
		orderClient,
		upstream.NewStockClient(client),
		upstream.NewPointClient(client),
		checkout.Options{
			StockCheck:   cfg.Checkout.StockCheck,
			StockConsume: cfg.Checkout.StockConsume,
			PointAccrual: cfg.Checkout.PointAccrual,
			PointRate:    decimal.NewFromFloat(cfg.Checkout.PointRate),
		},
		tel,
	)

	registerService := register.NewService(register.Deps{
		Sessions:  sessionRepo,
		Orders:    orderClient,
		Members:   upstream.NewUserClient(client),
		Products:  catalogService,
		Checkout:  checkoutUseCase,
		Publisher: bus,
		IDs:       idGenerator,
	}, tel)

	notificationworker.New(notificationRepo, bus, idGenerator, tel).Start()

	handler := httppresentation.NewHandler(httppresentation.Deps{
		Register:       registerService,
		Catalog:        catalogService,
		Notifications:  notificationRepo,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, tel)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("upstream", cfg.Upstream.BaseURL),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if mockServer != nil {
		_ = mockServer.Shutdown(shutdownCtx)
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		tel.Logger().Warn("event_bus_stop_timeout", observability.F("error", err.Error()))
	}
}
