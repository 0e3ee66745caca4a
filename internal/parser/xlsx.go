package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"belfiore/internal"
)

type XLSXOptions struct {
	Sheet     string
	HasHeader bool
}

// ParseXLSX reads one sheet of a workbook into the same row shape the
// delimited driver produces: lower-cased trimmed headers, silent drop of
// rows wider than the header. Short rows are padded instead, because
// excelize trims trailing empty cells from every row it returns.
func ParseXLSX(data []byte, opts XLSXOptions) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return &Table{}, nil
		}
		sheet = list[0]
	}

	cellRows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	t := &Table{}
	for _, cells := range cellRows {
		blank := true
		for _, c := range cells {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		if opts.HasHeader && t.Headers == nil {
			headers := make([]string, len(cells))
			for i, c := range cells {
				headers[i] = strings.ToLower(strings.TrimSpace(c))
			}
			t.Headers = headers
			continue
		}

		row := internal.NewRawRow()
		if t.Headers != nil {
			if len(cells) > len(t.Headers) {
				continue
			}
			for i, h := range t.Headers {
				if i < len(cells) {
					row.Set(h, cells[i])
				} else {
					row.Set(h, "")
				}
			}
		} else {
			for i, c := range cells {
				row.Set(strconv.Itoa(i), c)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
