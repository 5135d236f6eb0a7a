package reports

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Document is a single-sheet printable table: heading lines, a header row,
// data rows and signature lines under the table.
type Document struct {
	Sheet   string
	Heading []string
	Headers []string
	Rows    [][]interface{}
	Footer  []string
}

func (d Document) sheetName() string {
	if d.Sheet == "" {
		return "Sheet1"
	}
	return d.Sheet
}

func WriteXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.sheetName()
	if sheet != "Sheet1" {
		index, err := f.NewSheet(sheet)
		if err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		f.SetActiveSheet(index)
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 13}})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
		Border: borders(),
	})
	if err != nil {
		return err
	}

	row := 1
	for i, line := range doc.Heading {
		cell := cellName(1, row)
		if err := f.SetCellValue(sheet, cell, line); err != nil {
			return err
		}
		if i == 0 {
			_ = f.SetCellStyle(sheet, cell, cell, titleStyle)
		}
		row++
	}
	if len(doc.Heading) > 0 {
		row++
	}

	if len(doc.Headers) > 0 {
		headers := make([]interface{}, len(doc.Headers))
		for i, h := range doc.Headers {
			headers[i] = h
		}
		if err := f.SetSheetRow(sheet, cellName(1, row), &headers); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheet, cellName(1, row), cellName(len(headers), row), headerStyle)
		row++
	}

	for _, data := range doc.Rows {
		values := data
		if err := f.SetSheetRow(sheet, cellName(1, row), &values); err != nil {
			return err
		}
		row++
	}

	if len(doc.Footer) > 0 {
		row++
		for _, line := range doc.Footer {
			if err := f.SetCellValue(sheet, cellName(1, row), line); err != nil {
				return err
			}
			row++
		}
	}

	for i := range doc.Headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, 18)
	}

	return f.Write(w)
}

// Serve streams doc as an attachment named filename.
func Serve(c *gin.Context, filename string, doc Document) {
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := WriteXLSX(c.Writer, doc); err != nil {
		_ = c.Error(err)
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func borders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}
