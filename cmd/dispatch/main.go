package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ZutrixPog/llmdispatch"
	"github.com/ZutrixPog/llmdispatch/config"
	"github.com/ZutrixPog/llmdispatch/endpoint"
	"github.com/ZutrixPog/llmdispatch/history"
	"github.com/ZutrixPog/llmdispatch/history/postgres"
	"github.com/ZutrixPog/llmdispatch/logger"
	"github.com/ZutrixPog/llmdispatch/metrics"
	"github.com/ZutrixPog/llmdispatch/queue"
	"github.com/ZutrixPog/llmdispatch/queue/mem"
	rq "github.com/ZutrixPog/llmdispatch/queue/redis"
	serial "github.com/ZutrixPog/llmdispatch/serialization"
	"github.com/ZutrixPog/llmdispatch/taskio"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()

	if err != nil {
		slog.Error("dispatch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}

	tracer, shutdownTracing, err := setupTracing(cfg.Tracing, os.Stderr)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	urls, err := cfg.EndpointURLs()
	if err != nil {
		return err
	}
	pool, err := endpoint.NewPool(cfg.Endpoints.Kind, urls, endpoint.Options{
		Model:       cfg.Endpoints.Model,
		APIKey:      cfg.Endpoints.APIKey,
		Temperature: cfg.Endpoints.Temperature,
		MaxTokens:   cfg.Endpoints.MaxTokens,
		Timeout:     cfg.Endpoints.Timeout,
	}, tracer)
	if err != nil {
		return fmt.Errorf("build endpoint pool: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observers := []dispatcher.Observer{
		dispatcher.NewLogObserver(log),
		metrics.New(registry),
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(registry)
		go func() {
			if err := srv.ListenAndServe(cfg.Metrics.Addr); err != nil {
				log.Error("metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer srv.Shutdown()
	}

	var repo history.TaskHistoryRepo
	if cfg.History.DSN != "" {
		db, err := postgres.InitDB(cfg.History.DSN, postgres.Options{MaxOpenConns: cfg.Concurrency(pool.Len())})
		if err != nil {
			return err
		}
		defer postgres.Close(db)

		repo = postgres.NewHistoryRepo(db)
		observers = append(observers, dispatcher.NewHistoryObserver(repo, log))
	}

	q, closeQueue, err := buildQueue(cfg.Queue)
	if err != nil {
		return err
	}
	defer closeQueue()

	codec, err := serial.ForName(cfg.Dispatch.Codec)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(pool,
		dispatcher.Config{
			Concurrency: cfg.Concurrency(pool.Len()),
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			Backoff:     cfg.Dispatch.Backoff,
		},
		dispatcher.WithQueue(q),
		dispatcher.WithCodec(codec),
		dispatcher.WithValidator(dispatcher.NewJSONValidator(cfg.Dispatch.Anchor)),
		dispatcher.WithObserver(dispatcher.Observers(observers...)),
		dispatcher.WithLogger(log),
	)
	if err != nil {
		return err
	}

	tasks, err := taskio.ReadTasks(cfg.IO.InputJSONL)
	if err != nil {
		return fmt.Errorf("read tasks: %w", err)
	}
	log.Info("tasks loaded", "path", cfg.IO.InputJSONL, "tasks", len(tasks))

	if cfg.Dispatch.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Dispatch.BatchTimeout)
		defer cancel()
	}

	report, err := d.RunAll(ctx, tasks)
	if err != nil {
		return err
	}

	out := filepath.Join(cfg.IO.OutputDir, taskio.PerTaskFile)
	if err := taskio.WriteJSONL(out, report.Payloads); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	for _, f := range report.Failures {
		log.Warn("task produced no payload",
			"task_id", f.TaskID,
			"attempts", f.Attempts,
			"reason", f.Reason)
	}
	log.Info("results written",
		"path", out,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"total", report.Total())

	if repo != nil {
		summary, err := repo.Summarize(context.Background(), report.Batch)
		if err != nil {
			log.Warn("failed to summarize recorded history", "batch", report.Batch, "error", err)
		} else {
			log.Info("history recorded", "batch", report.Batch, "reports", summary.Total(), "by_status", summary.ByStatus)
		}
	}

	return nil
}

func buildQueue(cfg config.QueueConfig) (queue.TaskQueue, func(), error) {
	if cfg.Backend != "redis" {
		return mem.NewQueue(cfg.Limit), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	return rq.NewTaskQueue(client, int64(cfg.Limit)), func() { client.Close() }, nil
}
