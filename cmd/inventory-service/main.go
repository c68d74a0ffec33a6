package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/cache"
	"github.com/iyhunko/inventory-sync/internal/config"
	"github.com/iyhunko/inventory-sync/internal/events"
	httpAPI "github.com/iyhunko/inventory-sync/internal/http"
	"github.com/iyhunko/inventory-sync/internal/http/controller"
	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/logger"
	"github.com/iyhunko/inventory-sync/internal/metrics"
	"github.com/iyhunko/inventory-sync/internal/repository/file"
	sqlrepo "github.com/iyhunko/inventory-sync/internal/repository/sql"
	"github.com/iyhunko/inventory-sync/internal/service"
	sqspkg "github.com/iyhunko/inventory-sync/internal/sqs"
	"github.com/iyhunko/inventory-sync/internal/webhook"
)

const (
	notificationInterval = 2 * time.Second
	shutdownTimeout      = 10 * time.Second
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	closeLog := logger.InitJSONLogger(conf.LogFile, conf.DebugMode)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := file.NewStore(conf.Inventory.Path)
	backups := file.NewBackupManager(store)
	bus := events.NewBus()

	deps := service.InventoryDeps{
		Store:   store,
		Commits: file.NewTransactionalRepository(store, backups),
		Backups: backups,
		Fetcher: inventory.NewFetcher(conf.Inventory.FetchTimeout),
		Events:  bus,
		Policy: service.BackupPolicy{
			RetentionDays: conf.Inventory.BackupRetentionDays,
			KeepMinimum:   conf.Inventory.BackupKeepMinimum,
		},
	}

	// Sync history (optional)
	var db *sql.DB
	if conf.Database.Enabled() {
		db, err = sqlrepo.StartDB(ctx, conf.Database)
		handleErr("starting database", err)
		defer db.Close()
		deps.SyncRuns = sqlrepo.NewSyncRunRepository(db)
	} else {
		slog.Info("DB_HOST not set, sync history disabled")
	}

	// Product cache (optional)
	if conf.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(ctx, conf.Redis)
		handleErr("connecting to redis", err)
		defer redisClient.Close()
		deps.Cache = cache.NewProductCache(redisClient, conf.Redis.TTL)
	}

	inventoryService := service.NewInventoryService(deps)

	var workers sync.WaitGroup

	// Queue notifications (optional)
	var notificationWorker *service.NotificationWorker
	if conf.AWS.Enabled() {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
		handleErr("loading AWS config", err)

		notificationWorker = service.NewNotificationWorker(sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL), notificationInterval)
		handleErr("subscribing notifications", bus.OnInventoryUpdated(notificationWorker.Enqueue))
		workers.Add(1)
		go func() {
			defer workers.Done()
			notificationWorker.Start(ctx)
		}()
	}

	var syncWorker *service.SyncWorker
	if conf.Inventory.AutoSyncURL != "" {
		syncWorker = service.NewSyncWorker(inventoryService, conf.Inventory.AutoSyncURL, conf.Inventory.AutoSyncInterval)
		workers.Add(1)
		go func() {
			defer workers.Done()
			syncWorker.Start(ctx)
		}()
	}

	sweeper, err := service.NewBackupSweeper(inventoryService, conf.Inventory.BackupSweepSchedule)
	handleErr("scheduling backup sweep", err)
	sweeper.Start()

	orderService := service.NewOrderService(webhook.NewClient(conf.Webhook.ChatURL, webhook.DefaultTimeout))

	// Start HTTP server
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAPI.InitRouter(conf, gin.New(), httpAPI.Controllers{
		Base:      controller.New(conf),
		Inventory: controller.NewInventoryController(inventoryService),
		Product:   controller.NewProductController(inventoryService),
		Backup:    controller.NewBackupController(inventoryService),
		Order:     controller.NewOrderController(orderService),
	})
	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port), slog.String("store", store.Path()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("err", err))
	}

	if syncWorker != nil {
		syncWorker.Stop()
	}
	sweeper.Stop()

	// Deliver events raised by in-flight requests before the last flush.
	bus.Wait()
	if notificationWorker != nil {
		notificationWorker.Stop()
	}
	workers.Wait()
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
