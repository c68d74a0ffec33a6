package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iyhunko/inventory-sync/internal/repository"
)

const (
	// DefaultRetentionDays is how long snapshots beyond the kept minimum survive a sweep.
	DefaultRetentionDays = 30
	// DefaultKeepMinimum is how many of the newest snapshots a sweep never deletes.
	DefaultKeepMinimum = 2

	backupInfix = "_backup_"
)

var isoSuffix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2})-(\d{2})-(\d{2})-(\d{3})Z$`)

// TimestampFormat selects how a snapshot name encodes its creation time.
type TimestampFormat int

const (
	// EpochMillis names snapshots with the millisecond Unix epoch.
	EpochMillis TimestampFormat = iota
	// SafeISO names snapshots with an ISO-8601 time whose ':' and '.' are replaced by '-'.
	SafeISO
)

// BackupManager takes and prunes timestamped copies of a Store.
type BackupManager struct {
	store  *Store
	now    func() time.Time
	remove func(name string) error
}

// NewBackupManager creates a BackupManager that writes snapshots next to the store file.
func NewBackupManager(store *Store) *BackupManager {
	return &BackupManager{
		store:  store,
		now:    time.Now,
		remove: os.Remove,
	}
}

// Snapshot copies the store to a new file named with the millisecond epoch.
func (m *BackupManager) Snapshot(ctx context.Context) (repository.Backup, error) {
	return m.SnapshotWithFormat(ctx, EpochMillis)
}

// SnapshotWithFormat copies the store byte for byte into a new snapshot file.
// It returns repository.ErrNoStoreToBackup when the store does not exist.
func (m *BackupManager) SnapshotWithFormat(ctx context.Context, format TimestampFormat) (repository.Backup, error) {
	if err := ctx.Err(); err != nil {
		return repository.Backup{}, err
	}

	src, err := os.Open(m.store.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return repository.Backup{}, repository.ErrNoStoreToBackup
		}
		return repository.Backup{}, fmt.Errorf("failed to open inventory: %w", err)
	}
	defer src.Close()

	ts := m.now().UTC()
	var dst *os.File
	var name string
	for attempt := 0; attempt < 100; attempt++ {
		name = m.backupName(ts, format)
		dst, err = os.OpenFile(filepath.Join(m.store.Dir(), name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return repository.Backup{}, fmt.Errorf("failed to create backup file: %w", err)
		}
		ts = ts.Add(time.Millisecond)
	}
	if dst == nil {
		return repository.Backup{}, fmt.Errorf("failed to create backup file: %w", err)
	}

	size, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return repository.Backup{}, fmt.Errorf("failed to copy inventory: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return repository.Backup{}, fmt.Errorf("failed to close backup file: %w", err)
	}

	slog.Info("Backup created", slog.String("name", name), slog.Int64("size", size))
	return repository.Backup{Name: name, CreatedAt: ts, Size: size}, nil
}

// List returns every snapshot of the store, newest first.
func (m *BackupManager) List(ctx context.Context) ([]repository.Backup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(m.store.Dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []repository.Backup{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	prefix := m.store.BaseName() + backupInfix
	backups := []repository.Backup{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("Skipping unreadable backup", slog.String("name", name), slog.Any("err", err))
			continue
		}

		createdAt, ok := parseBackupTime(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
		if !ok {
			createdAt = info.ModTime()
		}
		backups = append(backups, repository.Backup{Name: name, CreatedAt: createdAt, Size: info.Size()})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Sweep deletes snapshots older than retentionDays, never touching the newest
// keepMinimum. Negative arguments fall back to the defaults. A failed delete is
// logged and recorded, and the sweep carries on with the remaining snapshots.
func (m *BackupManager) Sweep(ctx context.Context, retentionDays, keepMinimum int) (repository.SweepReport, error) {
	if retentionDays < 0 {
		retentionDays = DefaultRetentionDays
	}
	if keepMinimum < 0 {
		keepMinimum = DefaultKeepMinimum
	}

	backups, err := m.List(ctx)
	if err != nil {
		return repository.SweepReport{}, err
	}

	report := repository.SweepReport{
		Total:   len(backups),
		Kept:    []string{},
		Deleted: []string{},
		Failed:  []string{},
	}
	if len(backups) <= keepMinimum {
		for _, b := range backups {
			report.Kept = append(report.Kept, b.Name)
		}
		return report, nil
	}

	cutoff := m.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	for i, b := range backups {
		if i < keepMinimum || !b.CreatedAt.Before(cutoff) {
			report.Kept = append(report.Kept, b.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := m.remove(filepath.Join(m.store.Dir(), b.Name)); err != nil {
			slog.Error("Failed to delete backup", slog.String("name", b.Name), slog.Any("err", err))
			report.Failed = append(report.Failed, b.Name)
			continue
		}
		slog.Info("Backup deleted", slog.String("name", b.Name), slog.Time("created_at", b.CreatedAt))
		report.Deleted = append(report.Deleted, b.Name)
	}

	return report, nil
}

func (m *BackupManager) backupName(ts time.Time, format TimestampFormat) string {
	var suffix string
	switch format {
	case SafeISO:
		suffix = strings.NewReplacer(":", "-", ".", "-").Replace(ts.Format("2006-01-02T15:04:05.000Z"))
	default:
		suffix = strconv.FormatInt(ts.UnixMilli(), 10)
	}
	return m.store.BaseName() + backupInfix + suffix + ".json"
}

func parseBackupTime(suffix string) (time.Time, bool) {
	if ms, err := strconv.ParseInt(suffix, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	if match := isoSuffix.FindStringSubmatch(suffix); match != nil {
		iso := fmt.Sprintf("%sT%s:%s:%s.%sZ", match[1], match[2], match[3], match[4], match[5])
		ts, err := time.Parse(time.RFC3339Nano, iso)
		if err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
