package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/service"
)

// ProductController handles the storefront's read-only product endpoints.
type ProductController struct {
	inventoryService *service.InventoryService
}

// NewProductController creates a new ProductController with the given inventory service.
func NewProductController(inventoryService *service.InventoryService) *ProductController {
	return &ProductController{
		inventoryService: inventoryService,
	}
}

// ListProductsRequest represents the query parameters for listing products.
type ListProductsRequest struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	Limit    int32  `form:"limit"`
	Token    string `form:"token"`
}

// ListProducts handles the HTTP GET request for listing products with filters and pagination.
func (pc *ProductController) ListProducts(c *gin.Context) {
	var req ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	query := repository.NewQuery().
		With(repository.CategoryField, req.Category).
		With(repository.SearchField, req.Search)
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		respondError(c, fmt.Errorf("%w: %v", repository.ErrInvalidPaginationToken, err))
		return
	}

	page, err := pc.inventoryService.ListProducts(c.Request.Context(), *query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetProduct handles the HTTP GET request for a single product by id.
func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.inventoryService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListCategories handles the HTTP GET request for the category list.
func (pc *ProductController) ListCategories(c *gin.Context) {
	categories, err := pc.inventoryService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
