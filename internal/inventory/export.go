package inventory

import (
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/iyhunko/inventory-sync/internal/model"
)

const exportSheet = "Sheet1"

var exportHeaders = []string{
	model.FieldID,
	model.FieldName,
	model.FieldCategory,
	model.FieldPrice,
	model.FieldStock,
	model.FieldImage,
	model.FieldDescription,
}

// WriteWorkbook renders products as an xlsx workbook whose header row uses the
// same column names ParseUpload understands.
func WriteWorkbook(products []model.Product) ([]byte, error) {
	book := excelize.NewFile()

	for col, header := range exportHeaders {
		book.SetCellValue(exportSheet, cellName(col, 1), header)
	}

	for i, p := range products {
		row := i + 2
		values := []interface{}{p.ID, p.Name, p.Category, p.Price, p.Stock, p.Image, p.Description}
		for col, value := range values {
			book.SetCellValue(exportSheet, cellName(col, row), value)
		}
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cellName returns the A1-style reference of a zero-based column and one-based row.
func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return fmt.Sprintf("%s%d", name, row)
}
