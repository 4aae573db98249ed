package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/QCSched/internal/api"
	"github.com/shaiso/QCSched/internal/config"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/scheduler"
	"github.com/shaiso/QCSched/internal/scheduling"
	"github.com/shaiso/QCSched/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qcsched_api_http_requests_total",
		Help: "Total HTTP requests handled by qcsched_api",
	})
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting qcsched-api", "timezone", cfg.Timezone)

	clock, err := cfg.Clock()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := repo.Migrate(ctx, cfg.DBURL, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	calc := scheduling.New(clock)
	frequencyRepo := repo.NewFrequencyRepo(pool)

	svcCfg := scheduler.Config{
		Schedules:    repo.NewScheduleRepo(pool),
		Frequencies:  frequencyRepo,
		Performances: repo.NewPerformanceRepo(pool),
		Calculator:   calc,
		Logger:       logger,
	}

	// RabbitMQ опционален: без него события due_changed не публикуются
	if cfg.RabbitMQURL != "" {
		conn, err := mq.NewConnection(mq.ConnectionConfig{URL: cfg.RabbitMQURL, Logger: logger})
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("failed to setup topology", "error", err)
			os.Exit(1)
		}
		svcCfg.Publisher = mq.NewPublisher(conn, logger)
		logger.Info("connected to rabbitmq")
	}

	svc := scheduler.New(svcCfg)
	frequencies := scheduler.NewFrequencyService(frequencyRepo, calc, logger)

	handler := api.NewHandler(api.Config{
		Schedules:   svc,
		Frequencies: frequencies,
		Logger:      logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.APIPort

	server := &http.Server{
		Addr:              addr,
		Handler:           api.Chain(api.Recovery(logger), api.Logging(logger))(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
