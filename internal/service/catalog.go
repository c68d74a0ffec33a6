package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
)

// ProductPage is one page of the storefront listing.
type ProductPage struct {
	Products      []model.Product `json:"products"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

// CategoryCount is a category and the number of products in it.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Products returns the whole committed inventory.
func (s *InventoryService) Products(ctx context.Context) ([]model.Product, error) {
	if s.cache == nil {
		return s.store.Load(ctx)
	}

	products, version, ok := s.cache.GetProducts(ctx)
	if ok {
		return products, nil
	}

	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProducts(ctx, version, products); err != nil {
		slog.Warn("Failed to cache inventory", slog.Any("err", err))
	}
	return products, nil
}

// ListProducts filters the inventory by category and search text and pages
// through it in store order. The page token carries the last returned id.
func (s *InventoryService) ListProducts(ctx context.Context, query repository.Query) (ProductPage, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return ProductPage{}, err
	}

	category := query.Values[repository.CategoryField]
	search := strings.ToLower(strings.TrimSpace(query.Values[repository.SearchField]))

	filtered := make([]model.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if search != "" && !matches(p, search) {
			continue
		}
		filtered = append(filtered, p)
	}

	start := 0
	if query.Paginator != nil {
		idx := indexOf(filtered, query.Paginator.LastID)
		if idx < 0 {
			return ProductPage{}, fmt.Errorf("product %q is no longer listed: %w", query.Paginator.LastID, repository.ErrInvalidPaginationToken)
		}
		start = idx + 1
	}

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	end := min(start+limit, len(filtered))

	page := ProductPage{Products: append([]model.Product{}, filtered[start:end]...)}
	if end < len(filtered) {
		page.NextPageToken = repository.Paginator{LastID: filtered[end-1].ID}.Encode()
	}
	return page, nil
}

// GetProduct returns the product with the given id.
func (s *InventoryService) GetProduct(ctx context.Context, id string) (model.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return model.Product{}, err
	}
	idx := indexOf(products, id)
	if idx < 0 {
		return model.Product{}, fmt.Errorf("product %q: %w", id, repository.ErrNotFound)
	}
	return products[idx], nil
}

// Categories lists the distinct categories in order of first appearance.
func (s *InventoryService) Categories(ctx context.Context) ([]CategoryCount, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}

	counts := []CategoryCount{}
	seen := map[string]int{}
	for _, p := range products {
		idx, ok := seen[p.Category]
		if !ok {
			idx = len(counts)
			seen[p.Category] = idx
			counts = append(counts, CategoryCount{Name: p.Category})
		}
		counts[idx].Count++
	}
	return counts, nil
}

// Export renders the inventory as an .xlsx workbook.
func (s *InventoryService) Export(ctx context.Context) ([]byte, error) {
	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.WriteWorkbook(products)
}

func matches(p model.Product, search string) bool {
	for _, field := range []string{p.Name, p.Description, p.Category, p.ID} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
