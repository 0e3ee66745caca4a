package parser

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"CODCATASTALE", "DENOMINAZIONE_IT", "SIGLAPROVINCIA"},
		{"H501", "ROMA", "RM"},
		{"F205", "MILANO", "MI"},
	})

	table, err := ParseXLSX(blob, XLSXOptions{HasHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "codcatastale" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if v, _ := table.Rows[1].Get("denominazione_it"); v != "MILANO" {
		t.Fatalf("name=%q", v)
	}
}

func TestParseXLSXPadsShortRows(t *testing.T) {
	// excelize drops trailing empty cells, so the second data row comes back
	// with two cells and must be padded to the header width.
	blob := mkXLSX([][]any{
		{"codcatastale", "denominazione_it", "siglaprovincia"},
		{"H501", "ROMA", "RM"},
		{"Z301", "AFGHANISTAN"},
	})

	table, err := ParseXLSX(blob, XLSXOptions{HasHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if v, ok := table.Rows[1].Get("siglaprovincia"); !ok || v != "" {
		t.Fatalf("pad=%q ok=%v", v, ok)
	}
}
