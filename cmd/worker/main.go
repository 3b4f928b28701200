package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"docextract-backend/internal/bootstrap"
	"docextract-backend/internal/queue"
	"docextract-backend/internal/shared/config"
	"docextract-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer telemetry.Sync()

	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Fatal("RABBITMQ_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg, bootstrap.RoleWorker)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	conn, err := queue.Dial(ctx, cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("connect broker: %v", err)
	}
	defer conn.Close()

	telemetry.Info("worker.started", map[string]any{
		"queue":       cfg.RabbitMQQueue,
		"concurrency": cfg.Worker.Concurrency,
		"job_timeout": cfg.Worker.JobTimeout.String(),
	})
	consumer := queue.NewConsumer(conn, cfg.RabbitMQQueue, cfg.Worker.Concurrency)
	if err := consumer.Run(ctx, boundedHandler(app.JobHandler, cfg.Worker.JobTimeout)); err != nil {
		telemetry.Error("worker.stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("worker.stopped", nil)
}

// boundedHandler gives every job its own deadline and logs how it was settled.
func boundedHandler(handle queue.Handler, timeout time.Duration) queue.Handler {
	return func(ctx context.Context, body []byte) queue.Disposition {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		disp := handle(ctx, body)
		telemetry.Info("worker.job_settled", map[string]any{
			"disposition": dispositionName(disp),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return disp
	}
}

func dispositionName(d queue.Disposition) string {
	switch d {
	case queue.Requeue:
		return "requeue"
	case queue.Reject:
		return "reject"
	default:
		return "ack"
	}
}
