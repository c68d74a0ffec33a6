package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/service"
)

// BackupController handles manual backups, the retention sweep and the sync history.
type BackupController struct {
	inventoryService *service.InventoryService
}

// NewBackupController creates a new BackupController with the given inventory service.
func NewBackupController(inventoryService *service.InventoryService) *BackupController {
	return &BackupController{
		inventoryService: inventoryService,
	}
}

// CreateBackup handles the HTTP POST request that snapshots the store.
func (bc *BackupController) CreateBackup(c *gin.Context) {
	backup, err := bc.inventoryService.Backup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusCreated, "Backup created", gin.H{
		"backupPath": backup.Name,
		"timestamp":  backup.CreatedAt,
		"size":       backup.Size,
	})
}

// ListBackups handles the HTTP GET request listing snapshots, newest first.
func (bc *BackupController) ListBackups(c *gin.Context) {
	backups, err := bc.inventoryService.ListBackups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, "", gin.H{"backups": backups})
}

// SweepBackups handles the HTTP POST request that applies the retention policy now.
func (bc *BackupController) SweepBackups(c *gin.Context) {
	report, err := bc.inventoryService.SweepBackups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, fmt.Sprintf("Deleted %d of %d backups", len(report.Deleted), report.Total), gin.H{
		"report": report,
	})
}

// ListSyncRunsRequest represents the query parameters for the sync history.
type ListSyncRunsRequest struct {
	Status string `form:"status"`
	Source string `form:"source"`
	Limit  int32  `form:"limit"`
	Token  string `form:"token"`
}

// ListSyncRunsResponse represents one page of the sync history.
type ListSyncRunsResponse struct {
	SyncRuns      []*model.SyncRun `json:"syncRuns"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

// ListSyncRuns handles the HTTP GET request for the sync history.
func (bc *BackupController) ListSyncRuns(c *gin.Context) {
	var req ListSyncRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	query := repository.NewQuery().
		With(repository.StatusField, req.Status).
		With(repository.SourceField, req.Source)
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		respondError(c, fmt.Errorf("%w: %v", repository.ErrInvalidPaginationToken, err))
		return
	}

	runs, next, err := bc.inventoryService.ListSyncRuns(c.Request.Context(), *query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListSyncRunsResponse{SyncRuns: runs, NextPageToken: next})
}
