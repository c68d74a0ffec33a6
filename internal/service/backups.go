package service

import (
	"context"
	"log/slog"

	"github.com/iyhunko/inventory-sync/internal/metrics"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/repository/file"
)

// Backup takes a manual snapshot of the store, named with a safe ISO timestamp.
func (s *InventoryService) Backup(ctx context.Context) (repository.Backup, error) {
	backup, err := s.backups.SnapshotWithFormat(ctx, file.SafeISO)
	if err != nil {
		return repository.Backup{}, err
	}
	metrics.BackupsCreated.Inc()
	slog.Info("Manual backup created", slog.String("name", backup.Name))
	return backup, nil
}

// ListBackups returns the snapshots, newest first.
func (s *InventoryService) ListBackups(ctx context.Context) ([]repository.Backup, error) {
	return s.backups.List(ctx)
}

// SweepBackups applies the retention policy to the snapshots.
func (s *InventoryService) SweepBackups(ctx context.Context) (repository.SweepReport, error) {
	report, err := s.backups.Sweep(ctx, s.policy.RetentionDays, s.policy.KeepMinimum)
	if err != nil {
		return repository.SweepReport{}, err
	}
	metrics.BackupsDeleted.Add(float64(len(report.Deleted)))
	slog.Info("Backup sweep finished",
		slog.Int("total", report.Total),
		slog.Int("deleted", len(report.Deleted)),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

// ListSyncRuns pages through the sync audit log, newest first.
func (s *InventoryService) ListSyncRuns(ctx context.Context, query repository.Query) ([]*model.SyncRun, string, error) {
	if s.syncRuns == nil {
		return nil, "", ErrAuditDisabled
	}

	resources, err := s.syncRuns.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	runs := make([]*model.SyncRun, 0, len(resources))
	for _, r := range resources {
		run, ok := r.(*model.SyncRun)
		if !ok {
			slog.Error("Invalid resource type in sync history", slog.Any("resource", r))
			continue
		}
		runs = append(runs, run)
	}

	var next string
	if len(runs) > 0 && len(runs) == query.Limit {
		last := runs[len(runs)-1]
		next = repository.Paginator{LastID: last.ID.String(), LastCreatedAt: last.CreatedAt}.Encode()
	}
	return runs, next, nil
}
