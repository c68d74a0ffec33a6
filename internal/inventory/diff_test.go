package inventory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func product(id string, price float64, stock int) model.Product {
	return model.Product{ID: id, Name: "Producto " + id, Category: "General", Price: price, Stock: stock}
}

func ids(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestDiff(t *testing.T) {
	t.Run("classifies new removed and unchanged", func(t *testing.T) {
		// given
		current := []model.Product{product("A", 10, 5), product("C", 1, 1)}
		candidate := []model.Product{product("A", 10, 5), product("B", 20, 0)}

		// when
		result := inventory.Diff(current, candidate)

		// then
		assert.Equal(t, []string{"B"}, ids(result.New))
		assert.Equal(t, []string{"C"}, ids(result.Removed))
		assert.Equal(t, []string{"A"}, ids(result.Unchanged))
		assert.Empty(t, result.Updated)
		assert.Equal(t, 2, result.TotalChanges())
		assert.True(t, result.HasChanges())
	})

	t.Run("reports changed fields in fixed order", func(t *testing.T) {
		// given
		prev := model.Product{ID: "A", Name: "Mesa", Category: "Muebles", Price: 10, Stock: 5, Image: "/a.png"}
		next := model.Product{ID: "A", Name: "Mesa grande", Category: "Salón", Price: 10, Stock: 4, Image: "/a.png", Description: "nueva"}

		// when
		result := inventory.Diff([]model.Product{prev}, []model.Product{next})

		// then
		require.Len(t, result.Updated, 1)
		assert.Equal(t, []string{"name", "stock", "description", "category"}, result.Updated[0].Fields)
		assert.Equal(t, prev, result.Updated[0].Current)
		assert.Equal(t, next, result.Updated[0].Candidate)
		assert.Equal(t, 1, result.TotalChanges())
	})

	t.Run("price equality is exact", func(t *testing.T) {
		a, b := 0.1, 0.2
		result := inventory.Diff(
			[]model.Product{product("A", 0.3, 1)},
			[]model.Product{product("A", a+b, 1)},
		)

		require.Len(t, result.Updated, 1)
		assert.Equal(t, []string{"price"}, result.Updated[0].Fields)
	})

	t.Run("ignores lastUpdated and unknown fields", func(t *testing.T) {
		current := []model.Product{product("A", 1, 1)}
		candidate := []model.Product{product("A", 1, 1)}
		candidate[0].Extra = map[string]json.RawMessage{"featured": json.RawMessage(`true`)}
		inventory.Stamp(candidate, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		result := inventory.Diff(current, candidate)

		assert.Len(t, result.Unchanged, 1)
		assert.Zero(t, result.TotalChanges())
	})

	t.Run("detects changes in non string image", func(t *testing.T) {
		current := []model.Product{product("A", 1, 1)}
		current[0].Extra = map[string]json.RawMessage{model.FieldImage: json.RawMessage(`5`)}
		candidate := []model.Product{product("A", 1, 1)}
		candidate[0].Extra = map[string]json.RawMessage{model.FieldImage: json.RawMessage(`6`)}

		result := inventory.Diff(current, candidate)

		require.Len(t, result.Updated, 1)
		assert.Equal(t, []string{"image"}, result.Updated[0].Fields)
	})

	t.Run("empty inputs", func(t *testing.T) {
		result := inventory.Diff(nil, nil)

		assert.NotNil(t, result.New)
		assert.NotNil(t, result.Updated)
		assert.Zero(t, result.TotalChanges())
		assert.False(t, result.HasChanges())
	})
}

func genProducts(t *rapid.T, label string) []model.Product {
	gen := rapid.Custom(func(t *rapid.T) model.Product {
		return model.Product{
			ID:       rapid.SampledFrom([]string{"A", "B", "C", "D", "E", "F", "G", "H"}).Draw(t, "id"),
			Name:     rapid.SampledFrom([]string{"Mesa", "Silla"}).Draw(t, "name"),
			Category: rapid.SampledFrom([]string{"Muebles", "General"}).Draw(t, "category"),
			Price:    float64(rapid.IntRange(0, 3).Draw(t, "price")),
			Stock:    rapid.IntRange(0, 3).Draw(t, "stock"),
		}
	})
	return rapid.SliceOfDistinct(gen, func(p model.Product) string { return p.ID }).Draw(t, label)
}

func TestDiff_Properties(t *testing.T) {
	t.Run("buckets are disjoint and cover every id", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			current := genProducts(t, "current")
			candidate := genProducts(t, "candidate")

			result := inventory.Diff(current, candidate)

			union := make(map[string]struct{})
			for _, p := range current {
				union[p.ID] = struct{}{}
			}
			for _, p := range candidate {
				union[p.ID] = struct{}{}
			}

			seen := make(map[string]string)
			mark := func(bucket string, id string) {
				if prev, ok := seen[id]; ok {
					t.Fatalf("id %s in both %s and %s", id, prev, bucket)
				}
				seen[id] = bucket
			}
			for _, p := range result.New {
				mark("new", p.ID)
			}
			for _, u := range result.Updated {
				mark("updated", u.Candidate.ID)
			}
			for _, p := range result.Removed {
				mark("removed", p.ID)
			}
			for _, p := range result.Unchanged {
				mark("unchanged", p.ID)
			}

			total := len(result.New) + len(result.Updated) + len(result.Removed) + len(result.Unchanged)
			if total != len(union) || len(seen) != len(union) {
				t.Fatalf("buckets hold %d ids, union has %d", total, len(union))
			}
		})
	})

	t.Run("diffing a candidate against itself has no changes", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			candidate := genProducts(t, "candidate")

			result := inventory.Diff(candidate, candidate)

			if result.TotalChanges() != 0 {
				t.Fatalf("expected no changes, got %d", result.TotalChanges())
			}
			if len(result.Unchanged) != len(candidate) {
				t.Fatalf("expected %d unchanged, got %d", len(candidate), len(result.Unchanged))
			}
		})
	})
}
