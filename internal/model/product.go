package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	FieldID          = "id"
	FieldName        = "name"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldStock       = "stock"
	FieldImage       = "image"
	FieldDescription = "description"
	FieldLastUpdated = "lastUpdated"
)

// RequiredFields lists the fields every stored product must carry.
var RequiredFields = []string{FieldID, FieldName, FieldCategory, FieldPrice, FieldStock}

var knownFields = map[string]bool{
	FieldID: true, FieldName: true, FieldCategory: true, FieldPrice: true,
	FieldStock: true, FieldImage: true, FieldDescription: true, FieldLastUpdated: true,
}

// freeFormFields are decoded into their string field when they hold a string.
// Any other JSON value is kept verbatim in Extra under the same key.
var freeFormFields = []string{FieldImage, FieldDescription}

// Product is a single inventory record. Fields the service does not know about
// are kept in Extra and written back unchanged.
type Product struct {
	ID          string
	Name        string
	Category    string
	Price       float64
	Stock       int
	Image       string
	Description string
	LastUpdated *time.Time

	Extra map[string]json.RawMessage
}

// FieldTypeError reports a known field holding a JSON value of the wrong type.
type FieldTypeError struct {
	Field string
	Err   error
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %q has invalid type: %v", e.Field, e.Err)
}

func (e *FieldTypeError) Unwrap() error {
	return e.Err
}

// IsNull reports whether a raw JSON value is absent or the literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeProduct builds a Product from a decoded JSON object. Null known fields
// are left at their zero value.
func DecodeProduct(fields map[string]json.RawMessage) (Product, error) {
	var p Product

	strFields := map[string]*string{
		FieldID:       &p.ID,
		FieldName:     &p.Name,
		FieldCategory: &p.Category,
	}
	for name, dst := range strFields {
		raw, ok := fields[name]
		if !ok || IsNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return Product{}, &FieldTypeError{Field: name, Err: err}
		}
	}

	for _, name := range freeFormFields {
		raw, ok := fields[name]
		if !ok || IsNull(raw) {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err == nil {
			p.setFreeForm(name, value)
			continue
		}
		if err := p.keepRaw(name, raw); err != nil {
			return Product{}, err
		}
	}

	if raw, ok := fields[FieldPrice]; ok && !IsNull(raw) {
		if err := json.Unmarshal(raw, &p.Price); err != nil {
			return Product{}, &FieldTypeError{Field: FieldPrice, Err: err}
		}
	}

	if raw, ok := fields[FieldStock]; ok && !IsNull(raw) {
		var stock float64
		if err := json.Unmarshal(raw, &stock); err != nil {
			return Product{}, &FieldTypeError{Field: FieldStock, Err: err}
		}
		n, err := StockFromFloat(stock)
		if err != nil {
			return Product{}, &FieldTypeError{Field: FieldStock, Err: err}
		}
		p.Stock = n
	}

	if raw, ok := fields[FieldLastUpdated]; ok && !IsNull(raw) {
		var ts time.Time
		if err := json.Unmarshal(raw, &ts); err != nil {
			return Product{}, &FieldTypeError{Field: FieldLastUpdated, Err: err}
		}
		p.LastUpdated = &ts
	}

	for key, raw := range fields {
		if knownFields[key] {
			continue
		}
		if err := p.keepRaw(key, raw); err != nil {
			return Product{}, err
		}
	}

	return p, nil
}

// StockFromFloat converts a decoded JSON or spreadsheet number into a stock
// count. Fractions and values outside the int64 range are rejected.
func StockFromFloat(v float64) (int, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is out of range", v)
	}
	return int(v), nil
}

func (p *Product) setFreeForm(name, value string) {
	switch name {
	case FieldImage:
		p.Image = value
	case FieldDescription:
		p.Description = value
	}
}

func (p *Product) keepRaw(key string, raw json.RawMessage) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return &FieldTypeError{Field: key, Err: err}
	}
	if p.Extra == nil {
		p.Extra = make(map[string]json.RawMessage)
	}
	p.Extra[key] = compact.Bytes()
	return nil
}

// FreeFormEqual reports whether a and b hold the same value for a free-form
// field, whether it was decoded as a string or kept raw.
func FreeFormEqual(a, b Product, field string) bool {
	if !bytes.Equal(a.Extra[field], b.Extra[field]) {
		return false
	}
	switch field {
	case FieldImage:
		return a.Image == b.Image
	case FieldDescription:
		return a.Description == b.Description
	}
	return true
}

// UnmarshalJSON decodes a product object, keeping unknown fields in Extra.
func (p *Product) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded, err := DecodeProduct(fields)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MarshalJSON writes the known fields in a fixed order followed by Extra in key order.
func (p Product) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value interface{}) error {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal field %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(encoded)
		return nil
	}

	ordered := []struct {
		key   string
		value interface{}
	}{
		{FieldID, p.ID},
		{FieldName, p.Name},
		{FieldCategory, p.Category},
		{FieldPrice, p.Price},
		{FieldStock, p.Stock},
		{FieldImage, p.Image},
		{FieldDescription, p.Description},
	}
	for _, f := range ordered {
		value := f.value
		if raw, ok := p.Extra[f.key]; ok {
			value = raw
		}
		if err := write(f.key, value); err != nil {
			return nil, err
		}
	}
	if p.LastUpdated != nil {
		if err := write(FieldLastUpdated, p.LastUpdated.UTC().Format(time.RFC3339Nano)); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if knownFields[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, p.Extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HasExternalImage reports whether the image points to an absolute URL.
func (p Product) HasExternalImage() bool {
	return len(p.Image) >= 4 && p.Image[:4] == "http"
}
