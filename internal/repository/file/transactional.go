package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
)

// TransactionalRepository sequences Backup → Write on a Store. A mutex keeps
// concurrent callers from interleaving their snapshot and write.
type TransactionalRepository struct {
	mu      sync.Mutex
	store   *Store
	backups *BackupManager
	now     func() time.Time
}

// NewTransactionalRepository creates a TransactionalRepository for the given store and backups.
func NewTransactionalRepository(store *Store, backups *BackupManager) *TransactionalRepository {
	return &TransactionalRepository{
		store:   store,
		backups: backups,
		now:     time.Now,
	}
}

// ReplaceWithBackup snapshots the current store, then overwrites it with products.
// A missing store is not an error; any other snapshot failure aborts before the write.
func (r *TransactionalRepository) ReplaceWithBackup(ctx context.Context, products []model.Product) (repository.CommitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.replaceLocked(ctx, products)
}

// Modify loads the store, applies fn and commits the result, all under the same lock.
// A missing store is reported as repository.ErrStoreNotFound.
func (r *TransactionalRepository) Modify(ctx context.Context, fn repository.MutateFunc) (repository.CommitResult, error) {
	return r.modify(ctx, false, fn)
}

// Reconcile is Modify for whole-inventory replacements: a missing store is
// handed to fn as an empty inventory.
func (r *TransactionalRepository) Reconcile(ctx context.Context, fn repository.MutateFunc) (repository.CommitResult, error) {
	return r.modify(ctx, true, fn)
}

func (r *TransactionalRepository) modify(ctx context.Context, allowMissing bool, fn repository.MutateFunc) (repository.CommitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.Load(ctx)
	switch {
	case allowMissing && errors.Is(err, repository.ErrStoreNotFound):
		current = []model.Product{}
	case err != nil:
		return repository.CommitResult{}, err
	}

	next, err := fn(current)
	if err != nil {
		return repository.CommitResult{}, err
	}

	return r.replaceLocked(ctx, next)
}

func (r *TransactionalRepository) replaceLocked(ctx context.Context, products []model.Product) (repository.CommitResult, error) {
	if products == nil {
		return repository.CommitResult{}, fmt.Errorf("%w: inventory must be an array", repository.ErrWriteFailed)
	}
	if err := ctx.Err(); err != nil {
		return repository.CommitResult{}, err
	}

	result := repository.CommitResult{}
	backup, err := r.backups.Snapshot(ctx)
	switch {
	case errors.Is(err, repository.ErrNoStoreToBackup):
		slog.Info("No inventory to back up, writing first version")
	case err != nil:
		slog.Error("Backup failed, inventory left unchanged", slog.Any("err", err))
		return repository.CommitResult{}, fmt.Errorf("%w: %v", repository.ErrBackupFailed, err)
	default:
		result.BackupCreated = true
		result.BackupName = backup.Name
	}

	if err := r.store.write(products); err != nil {
		slog.Error("Failed to write inventory", slog.Any("err", err), slog.String("backup", result.BackupName))
		return repository.CommitResult{}, fmt.Errorf("%w: %v", repository.ErrWriteFailed, err)
	}

	result.Count = len(products)
	result.Timestamp = r.now().UTC()
	slog.Info("Inventory replaced", slog.Int("count", result.Count), slog.String("backup", result.BackupName))
	return result, nil
}
