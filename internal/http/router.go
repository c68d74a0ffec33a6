package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/config"
	"github.com/iyhunko/inventory-sync/internal/http/controller"
	"github.com/iyhunko/inventory-sync/internal/http/middleware"
)

// Controllers groups the handlers mounted by InitRouter.
type Controllers struct {
	Base      *controller.Controller
	Inventory *controller.InventoryController
	Product   *controller.ProductController
	Backup    *controller.BackupController
	Order     *controller.OrderController
}

func InitRouter(conf *config.Config, server *gin.Engine, ctrs Controllers) *gin.Engine {
	httpMiddleware := middleware.New(conf)

	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery())
	server.Use(middleware.Logger())
	server.Use(middleware.CORS())

	server.GET("/ping", ctrs.Base.Ping)

	api := server.Group("/api")

	// Storefront endpoints
	api.GET("/products", ctrs.Product.ListProducts)
	api.GET("/products/:id", ctrs.Product.GetProduct)
	api.GET("/categories", ctrs.Product.ListCategories)

	// Sync endpoints
	sync := api.Group("/sync-inventory")
	{
		sync.GET("", ctrs.Inventory.SyncInventory)
		sync.GET("/preview", ctrs.Inventory.PreviewInventory)
		sync.POST("/apply", ctrs.Inventory.ApplyInventory)
	}
	api.POST("/update-inventory", httpMiddleware.RequireAPIKey(), ctrs.Inventory.UpdateInventory)
	api.POST("/upload-inventory", ctrs.Inventory.UploadInventory)

	// Admin endpoints
	admin := api.Group("/admin-inventory")
	{
		admin.GET("", ctrs.Inventory.GetInventory)
		admin.PUT("", ctrs.Inventory.ReplaceInventory)
		admin.GET("/export", ctrs.Inventory.ExportInventory)
		admin.PATCH("/:id", ctrs.Inventory.UpdateProduct)
	}

	// Backup endpoints
	backups := api.Group("/backup-inventory")
	{
		backups.GET("", ctrs.Backup.ListBackups)
		backups.POST("", ctrs.Backup.CreateBackup)
		backups.POST("/sweep", ctrs.Backup.SweepBackups)
	}
	api.GET("/sync-runs", ctrs.Backup.ListSyncRuns)

	// Order endpoints
	api.POST("/submit-order", ctrs.Order.SubmitOrder)
	api.POST("/chat", ctrs.Order.Chat)

	return server
}
