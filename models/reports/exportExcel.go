package reports

import (
	"io"

	"github.com/xuri/excelize/v2"
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

const sheetName = "Sheet1"

// WriteExcel renders one header row plus a row per record and writes the workbook to w.
func WriteExcel[T ExcelExporter](w io.Writer, data []T, headings ...string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	for rowIdx, d := range data {
		for colIdx, v := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

func ExportBoughtCakes(w io.Writer, data []*BoughtCakeResponse) error {
	return WriteExcel(w, data, boughtCakeHeadings...)
}
