package reports

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestWriteXLSX(t *testing.T) {
	doc := Document{
		Sheet:   "SBBK",
		Heading: []string{"SBBK/2026/03/0001", "To: Finance"},
		Headers: []string{"Code", "Name"},
		Rows: [][]interface{}{
			{"AST-LPT-2026-0001", "ThinkPad"},
			{"AST-LPT-2026-0002", "Dell"},
		},
		Footer: []string{"Received by"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, doc))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"SBBK"}, f.GetSheetList())

	title, _ := f.GetCellValue("SBBK", "A1")
	assert.Equal(t, "SBBK/2026/03/0001", title)

	header, _ := f.GetCellValue("SBBK", "B4")
	assert.Equal(t, "Name", header)

	code, _ := f.GetCellValue("SBBK", "A6")
	assert.Equal(t, "AST-LPT-2026-0002", code)

	footer, _ := f.GetCellValue("SBBK", "A8")
	assert.Equal(t, "Received by", footer)
}

func TestSheetValues(t *testing.T) {
	doc := Document{
		Headers: []string{"Code", "Price"},
		Rows:    [][]interface{}{{"A", decimal.RequireFromString("1500000.50")}},
	}

	values := SheetValues(doc)
	require.Len(t, values, 2)
	assert.Equal(t, []interface{}{"Code", "Price"}, values[0])
	assert.Equal(t, []interface{}{"A", "1500000.5"}, values[1])
}

func TestSheetsSyncDisabled(t *testing.T) {
	s, err := NewSheetsSync(context.Background(), "", "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.Push(context.Background(), Document{}), ErrSheetsDisabled)
}
