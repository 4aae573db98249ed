// QCSched scheduler — фоновый процесс:
//   - потребляет performance.recorded из RabbitMQ и пересчитывает due date;
//   - по cron-расписанию выполняет sweep статусов (только лидер);
//   - синхронизирует частоты из FREQUENCIES_FILE при старте.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/QCSched/internal/config"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/scheduler"
	"github.com/shaiso/QCSched/internal/scheduling"
	"github.com/shaiso/QCSched/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat).With("component", "scheduler")
	logger.Info("starting qcsched-scheduler", "timezone", cfg.Timezone, "sweep_cron", cfg.SweepCron)

	clock, err := cfg.Clock()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	sweepSchedule, err := scheduler.ParseSweepCron(cfg.SweepCron)
	if err != nil {
		logger.Error("invalid sweep cron", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := repo.Migrate(ctx, cfg.DBURL, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	calc := scheduling.New(clock)
	frequencyRepo := repo.NewFrequencyRepo(pool)
	frequencies := scheduler.NewFrequencyService(frequencyRepo, calc, logger)

	if cfg.FrequenciesFile != "" {
		seeds, err := config.LoadFrequencySeeds(cfg.FrequenciesFile)
		if err != nil {
			logger.Error("failed to load frequency seeds", "error", err)
			os.Exit(1)
		}
		res, err := frequencies.Sync(ctx, seeds)
		if err != nil {
			logger.Error("failed to sync frequencies", "error", err)
			os.Exit(1)
		}
		logger.Info("frequencies synced",
			"file", cfg.FrequenciesFile,
			"created", res.Created,
			"updated", res.Updated,
			"unchanged", res.Unchanged,
		)
	}

	// RabbitMQ
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

	svc := scheduler.New(scheduler.Config{
		Schedules:    repo.NewScheduleRepo(pool),
		Frequencies:  frequencyRepo,
		Performances: repo.NewPerformanceRepo(pool),
		Calculator:   calc,
		Publisher:    mq.NewPublisher(conn, logger),
		Logger:       logger,
	})

	consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:    mq.QueuePerformancesRecorded,
		Handler:  svc.HandlePerformanceRecorded,
		Prefetch: 10,
	})

	lead := &leader{pool: pool, logger: logger}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer stopped", "error", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer lead.Release(context.Background())

		// Первый sweep сразу: метрики статусов не ждут следующего тика cron
		if lead.IsLeader(ctx) {
			if _, err := svc.Sweep(ctx); err != nil {
				logger.Error("initial sweep failed", "error", err)
			}
		}

		if err := svc.RunSweeps(ctx, sweepSchedule, lead.IsLeader); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweeps stopped", "error", err)
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !conn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.SchedPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("stopped")
}
