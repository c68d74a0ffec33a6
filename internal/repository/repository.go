package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/inventory-sync/internal/model"
)

var (
	// ErrStoreNotFound is returned when the inventory store has not been created yet.
	ErrStoreNotFound = errors.New("inventory store not found")

	// ErrNoStoreToBackup is returned by a snapshot when there is no store to copy.
	// A first-ever commit treats it as acceptable.
	ErrNoStoreToBackup = errors.New("no inventory store to back up")

	// ErrBackupFailed is returned when the snapshot preceding a write could not be taken.
	ErrBackupFailed = errors.New("backup failed")

	// ErrWriteFailed is returned when the store could not be written.
	ErrWriteFailed = errors.New("write failed")

	// ErrNotFound is returned when a single resource lookup has no match.
	ErrNotFound = errors.New("resource not found")
)

// Repository defines the interface for a generic repository that can manage resources.
type Repository interface {
	Create(ctx context.Context, resource Resource) (result Resource, err error)
	List(ctx context.Context, query Query) (result []Resource, err error)
	FindByID(ctx context.Context, id uuid.UUID) (result Resource, err error)
}

// Resource represents a generic resource that can be managed by the repository.
type Resource interface {
	InitMeta()
}

// InventoryStore reads the current inventory.
type InventoryStore interface {
	Load(ctx context.Context) ([]model.Product, error)
	Exists() bool
}

// Backup identifies a single snapshot of the store.
type Backup struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
}

// SweepReport describes the outcome of a retention sweep.
type SweepReport struct {
	Total   int      `json:"total"`
	Kept    []string `json:"kept"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// BackupStore takes, lists and prunes snapshots of the store.
type BackupStore interface {
	Snapshot(ctx context.Context) (Backup, error)
	List(ctx context.Context) ([]Backup, error)
	Sweep(ctx context.Context, retentionDays, keepMinimum int) (SweepReport, error)
}

// CommitResult describes a successful store replacement.
type CommitResult struct {
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
	BackupName    string    `json:"backupName,omitempty"`
	BackupCreated bool      `json:"backupCreated"`
}

// MutateFunc derives the next inventory from the current one.
type MutateFunc func(current []model.Product) ([]model.Product, error)

// TransactionalRepository replaces the store, always snapshotting it first.
type TransactionalRepository interface {
	ReplaceWithBackup(ctx context.Context, products []model.Product) (CommitResult, error)
	Modify(ctx context.Context, fn MutateFunc) (CommitResult, error)
	Reconcile(ctx context.Context, fn MutateFunc) (CommitResult, error)
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
