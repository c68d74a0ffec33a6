package model

import "time"

// InventoryAction names what changed the inventory.
type InventoryAction string

const (
	InventoryActionSynced   InventoryAction = "synced"
	InventoryActionReplaced InventoryAction = "replaced"
	InventoryActionUploaded InventoryAction = "uploaded"
	InventoryActionEdited   InventoryAction = "edited"
)

// InventoryMessage describes a committed inventory change. It is the payload
// of the in-process "inventory:updated" event and of the SQS notification.
type InventoryMessage struct {
	Action        InventoryAction `json:"action"`
	Source        string          `json:"source"`
	ProductsCount int             `json:"products_count"`
	TotalChanges  int             `json:"total_changes"`
	New           []string        `json:"new"`
	Updated       []string        `json:"updated"`
	Removed       []string        `json:"removed"`
	BackupName    string          `json:"backup_name,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
