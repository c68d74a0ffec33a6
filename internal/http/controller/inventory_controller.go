package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/service"
)

const (
	exportFilename = "inventory.xlsx"
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// InventoryController handles the sync, replace and admin endpoints of the store.
type InventoryController struct {
	inventoryService *service.InventoryService
}

// NewInventoryController creates a new InventoryController with the given inventory service.
func NewInventoryController(inventoryService *service.InventoryService) *InventoryController {
	return &InventoryController{
		inventoryService: inventoryService,
	}
}

// SyncRequest carries the remote locator of a candidate inventory.
type SyncRequest struct {
	DriveURL string `form:"driveUrl"`
	URL      string `form:"url"`
}

func (r SyncRequest) locator() string {
	if r.DriveURL != "" {
		return r.DriveURL
	}
	return r.URL
}

// ApplyRequest is a reviewed candidate sent back after a preview.
type ApplyRequest struct {
	Source   string          `json:"source"`
	Products json.RawMessage `json:"products"`
}

// SyncInventory handles the HTTP GET request that fetches, validates and commits
// the inventory behind a Drive link or URL.
func (ic *InventoryController) SyncInventory(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.locator() == "" {
		respondError(c, inventory.ErrMissingLocator)
		return
	}

	outcome, err := ic.inventoryService.Sync(c.Request.Context(), req.locator())
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, fmt.Sprintf("Inventory synced with %d products", outcome.Summary.ProductsCount), gin.H{
		"summary":      outcome.Summary,
		"totalChanges": outcome.TotalChanges,
		"changes":      changeCounts(outcome.Diff),
	})
}

// PreviewInventory handles the HTTP GET request that diffs a remote candidate
// against the store without writing anything.
func (ic *InventoryController) PreviewInventory(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.locator() == "" {
		respondError(c, inventory.ErrMissingLocator)
		return
	}

	preview, err := ic.inventoryService.Preview(c.Request.Context(), req.locator())
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, "", gin.H{"preview": preview})
}

// ApplyInventory handles the HTTP POST request that commits a previewed candidate.
func (ic *InventoryController) ApplyInventory(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if req.Source == "" {
		req.Source = string(service.OriginURL)
	}

	candidate, err := inventory.Validate(req.Products)
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := ic.inventoryService.Apply(c.Request.Context(), req.Source, candidate)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, fmt.Sprintf("Applied %d changes", outcome.TotalChanges), gin.H{
		"summary":      outcome.Summary,
		"totalChanges": outcome.TotalChanges,
		"changes":      changeCounts(outcome.Diff),
	})
}

// UpdateInventory handles the HTTP POST request of the trusted automation path.
// The route is guarded by the API key middleware.
func (ic *InventoryController) UpdateInventory(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := ic.inventoryService.ReplaceTrusted(c.Request.Context(), raw)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, fmt.Sprintf("Inventory updated with %d products", outcome.Summary.ProductsCount), gin.H{
		"count":         outcome.Summary.ProductsCount,
		"backupCreated": outcome.Commit.BackupCreated,
		"timestamp":     outcome.Commit.Timestamp,
	})
}

// GetInventory handles the HTTP GET request returning the whole store as an array.
func (ic *InventoryController) GetInventory(c *gin.Context) {
	products, err := ic.inventoryService.Products(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// ReplaceInventory handles the HTTP PUT request saving the admin editor's array.
func (ic *InventoryController) ReplaceInventory(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := ic.inventoryService.ReplaceAdmin(c.Request.Context(), raw)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, "", gin.H{
		"count":        outcome.Summary.ProductsCount,
		"totalChanges": outcome.TotalChanges,
		"backupName":   outcome.Commit.BackupName,
	})
}

// UpdateProduct handles the HTTP PATCH request editing a single product.
func (ic *InventoryController) UpdateProduct(c *gin.Context) {
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	product, err := ic.inventoryService.UpdateProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, "", gin.H{"product": product})
}

// ExportInventory handles the HTTP GET request downloading the store as a workbook.
func (ic *InventoryController) ExportInventory(c *gin.Context) {
	data, err := ic.inventoryService.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	c.Data(http.StatusOK, xlsxMediaType, data)
}

// UploadInventory handles the multipart HTTP POST request replacing the store
// with an uploaded .json, .xlsx or .csv file.
func (ic *InventoryController) UploadInventory(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("%w: a file field is required", errInvalidBody))
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	data, err := inventory.ReadLimited(f, inventory.MaxPayloadBytes)
	if errors.Is(err, inventory.ErrPayloadTooLarge) {
		respondError(c, err)
		return
	}
	if err != nil {
		respondError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	outcome, err := ic.inventoryService.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, fmt.Sprintf("Inventory updated with %d products", outcome.Summary.ProductsCount), gin.H{
		"summary":      outcome.Summary,
		"totalChanges": outcome.TotalChanges,
		"changes":      changeCounts(outcome.Diff),
		"filename":     header.Filename,
		"timestamp":    outcome.Commit.Timestamp,
	})
}

func changeCounts(diff inventory.Result) gin.H {
	return gin.H{
		"new":       len(diff.New),
		"updated":   len(diff.Updated),
		"removed":   len(diff.Removed),
		"unchanged": len(diff.Unchanged),
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	raw, err := inventory.ReadLimited(c.Request.Body, inventory.MaxPayloadBytes)
	if errors.Is(err, inventory.ErrPayloadTooLarge) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return raw, nil
}
