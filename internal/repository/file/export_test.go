package file

import (
	"time"

	"github.com/iyhunko/inventory-sync/internal/model"
)

// SetBackupClock replaces the clock used to name and age snapshots.
func SetBackupClock(m *BackupManager, now func() time.Time) {
	m.now = now
}

// SetBackupRemover replaces the function used to delete snapshots.
func SetBackupRemover(m *BackupManager, remove func(name string) error) {
	m.remove = remove
}

// WriteStore writes the store without taking a backup.
func WriteStore(s *Store, products []model.Product) error {
	return s.write(products)
}
