package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iyhunko/inventory-sync/internal/model"
)

const snippetLength = 200

var utf8BOM = []byte("\xEF\xBB\xBF")

const (
	reasonMissing     = "is missing or empty"
	reasonInvalidType = "has an invalid type"
	reasonNotObject   = "is not an object"
	reasonEmptyID     = "must not be empty"
)

// Validate parses raw content as a candidate inventory. It collects every
// problem in every record before failing, so the returned ValidationErrors is
// complete. On success every product carries the required fields.
func Validate(raw []byte) ([]model.Product, error) {
	raw = trimBOM(raw)
	var doc json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedJSONError{Err: err, Snippet: snippet(raw)}
	}

	if kind := jsonKind(doc); kind != "array" {
		return nil, &NotAnArrayError{Found: kind}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(doc, &records); err != nil {
		return nil, &MalformedJSONError{Err: err, Snippet: snippet(raw)}
	}

	products := make([]model.Product, 0, len(records))
	var errs ValidationErrors
	for i, record := range records {
		index := i + 1

		if jsonKind(record) != "object" {
			errs = append(errs, FieldError{Index: index, Reason: reasonNotObject})
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(record, &fields); err != nil {
			errs = append(errs, FieldError{Index: index, Reason: reasonNotObject})
			continue
		}
		name := recordName(fields)

		missing := false
		for _, field := range model.RequiredFields {
			if value, ok := fields[field]; !ok || model.IsNull(value) {
				errs = append(errs, FieldError{Index: index, Name: name, Field: field, Reason: reasonMissing})
				missing = true
			}
		}
		if missing {
			continue
		}

		product, err := model.DecodeProduct(fields)
		if err != nil {
			var typeErr *model.FieldTypeError
			if errors.As(err, &typeErr) {
				errs = append(errs, FieldError{Index: index, Name: name, Field: typeErr.Field, Reason: reasonInvalidType})
				continue
			}
			return nil, fmt.Errorf("failed to decode product %d: %w", index, err)
		}
		products = append(products, product)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if err := CheckProducts(products); err != nil {
		return nil, err
	}

	return products, nil
}

// CheckProducts enforces the store invariants on already decoded products:
// every id is non-empty and unique.
func CheckProducts(products []model.Product) error {
	var errs ValidationErrors
	seen := make(map[string]int, len(products))
	for i, p := range products {
		index := i + 1
		if p.ID == "" {
			errs = append(errs, FieldError{Index: index, Name: p.Name, Field: model.FieldID, Reason: reasonEmptyID})
			continue
		}
		if first, ok := seen[p.ID]; ok {
			errs = append(errs, FieldError{
				Index:  index,
				Name:   p.Name,
				Field:  model.FieldID,
				Reason: fmt.Sprintf("duplicates product %d", first),
			})
			continue
		}
		seen[p.ID] = index
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// trimBOM drops a leading UTF-8 byte order mark.
func trimBOM(raw []byte) []byte {
	return bytes.TrimPrefix(raw, utf8BOM)
}

func recordName(fields map[string]json.RawMessage) string {
	raw, ok := fields[model.FieldName]
	if !ok {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return ""
	}
	return name
}

func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '[':
		return "array"
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func snippet(raw []byte) string {
	runes := []rune(string(raw))
	if len(runes) > snippetLength {
		runes = runes[:snippetLength]
	}
	return string(runes)
}
