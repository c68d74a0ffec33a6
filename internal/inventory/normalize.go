package inventory

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/spf13/cast"
)

// PayloadKind tells which ingestion path produced a payload.
type PayloadKind string

const (
	// KindJSON is a raw JSON document that still needs validation.
	KindJSON PayloadKind = "json"
	// KindSpreadsheet is a list of header-keyed rows from a sheet or CSV file.
	KindSpreadsheet PayloadKind = "spreadsheet"
)

const (
	// DefaultCategory is used for spreadsheet rows without a category.
	DefaultCategory = "General"
	// DefaultImage is used for spreadsheet rows without an image.
	DefaultImage = "/placeholder.svg?height=200&width=200"
)

// Payload is an uploaded candidate inventory before normalization.
type Payload struct {
	Kind PayloadKind
	Raw  []byte
	Rows []map[string]string
}

var columnAliases = map[string][]string{
	model.FieldID:          {"id", "codigo", "código", "sku"},
	model.FieldName:        {"name", "nombre"},
	model.FieldCategory:    {"category", "categoria", "categoría"},
	model.FieldPrice:       {"price", "precio"},
	model.FieldStock:       {"stock", "inventario"},
	model.FieldImage:       {"image", "imagen"},
	model.FieldDescription: {"description", "descripcion", "descripción"},
}

// ParseUpload turns an uploaded file into a Payload based on its extension.
func ParseUpload(filename string, data []byte) (Payload, error) {
	data = trimBOM(data)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		raw, err := FromUpload(filename, data)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindJSON, Raw: raw}, nil
	case ".xlsx":
		rows, err := readWorkbook(data)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindSpreadsheet, Rows: rows}, nil
	case ".csv":
		rows, err := gocsv.CSVToMaps(bytes.NewReader(data))
		if err != nil {
			return Payload{}, fmt.Errorf("%w: cannot read CSV: %v", ErrUnsupportedFormat, err)
		}
		return Payload{Kind: KindSpreadsheet, Rows: rows}, nil
	case ".xls":
		return Payload{}, fmt.Errorf("%w: %s is a legacy Excel 97-2003 workbook, save it as .xlsx or .csv", ErrUnsupportedFormat, filename)
	default:
		return Payload{}, fmt.Errorf("%w: %s (use .json, .xlsx or .csv)", ErrUnsupportedFormat, filename)
	}
}

// Normalize produces validated products from any payload kind.
func Normalize(p Payload) ([]model.Product, error) {
	switch p.Kind {
	case KindJSON:
		return Validate(p.Raw)
	case KindSpreadsheet:
		products, err := rowsToProducts(p.Rows)
		if err != nil {
			return nil, err
		}
		if err := CheckProducts(products); err != nil {
			return nil, err
		}
		return products, nil
	default:
		return nil, fmt.Errorf("%w: payload kind %q", ErrUnsupportedFormat, p.Kind)
	}
}

func readWorkbook(data []byte) ([]map[string]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %v", ErrUnsupportedFormat, err)
	}

	sheet := book.GetSheetName(1)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedFormat)
	}

	grid := book.GetRows(sheet)
	if len(grid) == 0 {
		return []map[string]string{}, nil
	}

	headers := grid[0]
	rows := make([]map[string]string, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(map[string]string, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" || i >= len(cells) {
				continue
			}
			row[header] = cells[i]
			if strings.TrimSpace(cells[i]) != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func rowsToProducts(rows []map[string]string) ([]model.Product, error) {
	products := make([]model.Product, 0, len(rows))
	var errs ValidationErrors

	for i, row := range rows {
		index := i + 1
		cols := canonicalColumns(row)

		p := model.Product{
			ID:          cols[model.FieldID],
			Name:        cols[model.FieldName],
			Category:    orDefault(cols[model.FieldCategory], DefaultCategory),
			Image:       orDefault(cols[model.FieldImage], DefaultImage),
			Description: cols[model.FieldDescription],
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("PROD%03d", index)
		}

		price, err := cellNumber(cols[model.FieldPrice])
		if err != nil {
			errs = append(errs, FieldError{Index: index, Name: p.Name, Field: model.FieldPrice, Reason: reasonInvalidType})
		}
		p.Price = price

		stock, err := cellNumber(cols[model.FieldStock])
		if err == nil {
			p.Stock, err = model.StockFromFloat(stock)
		}
		if err != nil {
			errs = append(errs, FieldError{Index: index, Name: p.Name, Field: model.FieldStock, Reason: reasonInvalidType})
		}

		products = append(products, p)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return products, nil
}

func canonicalColumns(row map[string]string) map[string]string {
	byHeader := make(map[string]string, len(row))
	for header, value := range row {
		byHeader[strings.ToLower(strings.TrimSpace(header))] = strings.TrimSpace(value)
	}

	cols := make(map[string]string, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if v := byHeader[alias]; v != "" {
				cols[field] = v
				break
			}
		}
	}
	return cols
}

func cellNumber(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return cast.ToFloat64E(value)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
