package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iyhunko/inventory-sync/internal/config"
	"github.com/iyhunko/inventory-sync/internal/logger"
	"github.com/iyhunko/inventory-sync/internal/metrics"
	sqspkg "github.com/iyhunko/inventory-sync/internal/sqs"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	handleErr("checking AWS config", conf.RequireSQS())

	closeLog := logger.InitJSONLogger(conf.LogFile, conf.DebugMode)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
	handleErr("loading AWS config", err)
	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL, sqspkg.LogInventoryMessage)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Consumer error", slog.Any("err", err))
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	slog.Info("Notification service started. Listening for inventory updates...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")
	cancel()
	<-done

	if err := metricsServer.Shutdown(context.Background()); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("err", err))
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
