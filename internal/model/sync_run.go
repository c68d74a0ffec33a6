package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus represents the outcome of a sync run.
type SyncStatus string

const (
	// SyncStatusSucceeded indicates the candidate inventory was committed
	SyncStatusSucceeded SyncStatus = "succeeded"
	// SyncStatusFailed indicates the run aborted on a fetch, backup or write error
	SyncStatusFailed SyncStatus = "failed"
	// SyncStatusRejected indicates the candidate failed validation or had no changes
	SyncStatusRejected SyncStatus = "rejected"
)

// SyncRun is an audit record of a single attempt to replace the inventory.
type SyncRun struct {
	ID            uuid.UUID  `json:"id"`
	Source        string     `json:"source"`
	Status        SyncStatus `json:"status"`
	ProductsCount int        `json:"productsCount"`
	NewCount      int        `json:"newCount"`
	UpdatedCount  int        `json:"updatedCount"`
	RemovedCount  int        `json:"removedCount"`
	BackupName    string     `json:"backupName,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// InitMeta initializes the sync run metadata including ID and timestamp.
func (r *SyncRun) InitMeta() {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
}
