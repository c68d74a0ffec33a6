package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AutoSyncer is the part of InventoryService the SyncWorker drives.
type AutoSyncer interface {
	AutoSync(ctx context.Context, locator string) (Outcome, error)
}

// SyncWorker periodically re-syncs the inventory from a fixed locator.
type SyncWorker struct {
	syncer   AutoSyncer
	locator  string
	interval time.Duration
	stopChan chan struct{}
}

// NewSyncWorker creates a new SyncWorker
func NewSyncWorker(syncer AutoSyncer, locator string, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		syncer:   syncer,
		locator:  locator,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sync immediately and then one per interval until stopped.
func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Sync worker started", slog.Duration("interval", w.interval), slog.String("locator", w.locator))
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sync worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Sync worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the sync worker
func (w *SyncWorker) Stop() {
	close(w.stopChan)
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	outcome, err := w.syncer.AutoSync(ctx, w.locator)
	switch {
	case errors.Is(err, ErrNothingToApply):
		slog.Info("Auto-sync found no changes")
	case err != nil:
		slog.Error("Auto-sync failed", slog.Any("err", err))
	default:
		slog.Info("Auto-sync applied changes",
			slog.Int("products", outcome.Summary.ProductsCount),
			slog.Int("changes", outcome.TotalChanges),
			slog.String("backup", outcome.Commit.BackupName))
	}
}
