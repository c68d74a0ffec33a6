package inventory

import "github.com/iyhunko/inventory-sync/internal/model"

// ComparedFields is the fixed order in which changed fields are reported.
var ComparedFields = []string{
	model.FieldName,
	model.FieldPrice,
	model.FieldStock,
	model.FieldImage,
	model.FieldDescription,
	model.FieldCategory,
}

// Update pairs the stored and the candidate version of a changed product.
type Update struct {
	Current   model.Product `json:"current"`
	Candidate model.Product `json:"candidate"`
	Fields    []string      `json:"fields"`
}

// Result classifies every product id of the current store and the candidate
// into exactly one bucket.
type Result struct {
	New       []model.Product `json:"new"`
	Updated   []Update        `json:"updated"`
	Removed   []model.Product `json:"removed"`
	Unchanged []model.Product `json:"unchanged"`
}

// TotalChanges is the number of products an apply would add, modify or drop.
func (r Result) TotalChanges() int {
	return len(r.New) + len(r.Updated) + len(r.Removed)
}

// HasChanges reports whether applying the candidate would alter the store.
func (r Result) HasChanges() bool {
	return r.TotalChanges() > 0
}

// Diff compares candidate against current by id. New, updated and unchanged
// products follow candidate order; removed products follow current order.
// When an id repeats within one input only its first occurrence is considered.
func Diff(current, candidate []model.Product) Result {
	currentByID := make(map[string]model.Product, len(current))
	for _, p := range current {
		if _, ok := currentByID[p.ID]; !ok {
			currentByID[p.ID] = p
		}
	}

	result := Result{
		New:       []model.Product{},
		Updated:   []Update{},
		Removed:   []model.Product{},
		Unchanged: []model.Product{},
	}

	candidateIDs := make(map[string]struct{}, len(candidate))
	for _, next := range candidate {
		if _, dup := candidateIDs[next.ID]; dup {
			continue
		}
		candidateIDs[next.ID] = struct{}{}

		prev, ok := currentByID[next.ID]
		if !ok {
			result.New = append(result.New, next)
			continue
		}

		if fields := ChangedFields(prev, next); len(fields) > 0 {
			result.Updated = append(result.Updated, Update{Current: prev, Candidate: next, Fields: fields})
		} else {
			result.Unchanged = append(result.Unchanged, next)
		}
	}

	removedIDs := make(map[string]struct{})
	for _, p := range current {
		if _, ok := candidateIDs[p.ID]; ok {
			continue
		}
		if _, dup := removedIDs[p.ID]; dup {
			continue
		}
		removedIDs[p.ID] = struct{}{}
		result.Removed = append(result.Removed, p)
	}

	return result
}

// ChangedFields lists the compared fields whose values differ, in ComparedFields order.
// Prices are compared exactly.
func ChangedFields(a, b model.Product) []string {
	var fields []string
	for _, field := range ComparedFields {
		var same bool
		switch field {
		case model.FieldName:
			same = a.Name == b.Name
		case model.FieldPrice:
			same = a.Price == b.Price
		case model.FieldStock:
			same = a.Stock == b.Stock
		case model.FieldImage, model.FieldDescription:
			same = model.FreeFormEqual(a, b, field)
		case model.FieldCategory:
			same = a.Category == b.Category
		}
		if !same {
			fields = append(fields, field)
		}
	}
	return fields
}
