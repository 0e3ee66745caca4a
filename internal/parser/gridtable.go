// Package parser turns the raw bytes of the official geographic feeds into
// ordered row maps. Three drivers exist: the ANPR-style fixed-width grid
// table, delimiter-separated text, and xlsx workbooks.
package parser

import (
	"strconv"
	"strings"

	"belfiore/internal"
)

// Table is the driver-independent parse result. Headers is empty when the
// source declared none; rows that could not be combined with the headers
// keep positional keys.
type Table struct {
	Headers []string
	Rows    []*internal.RawRow
}

type GridOptions struct {
	Encoding string
}

// attrMarker separates a cell's own text from the nested attribute lines
// wrapped inside the same cell ("AFGHANISTAN\n - CODAT: Z301\n - NASCITA: S").
const attrMarker = "\n - "

// ParseGridTable parses the fixed-width grid-table format: border lines of
// `+` joined by runs of `-` or `=`, content lines starting with `|`. The
// first border fixes the column offsets for the whole table. A border drawn
// with `=` promotes the row buffered before it to the header row; every
// other border flushes the buffered content lines into one row, so a row may
// wrap across several lines between two borders. Text outside the table and
// malformed lines are skipped, never an error.
func ParseGridTable(data []byte, opts GridOptions) (*Table, error) {
	text, err := DecodeToUTF8(data, opts.Encoding)
	if err != nil {
		return nil, err
	}

	var (
		bounds   []int
		headers  []string
		cellRows [][]string
		buf      []string
	)

	flush := func(headerSep bool) {
		if buf == nil {
			return
		}
		if headerSep && len(headers) == 0 {
			for _, cell := range buf {
				if h := strings.TrimSpace(cell); h != "" {
					headers = append(headers, h)
				}
			}
		} else {
			cellRows = append(cellRows, buf)
		}
		buf = nil
	}

	for _, line := range splitLines(text) {
		switch {
		case isBorderLine(line):
			if bounds == nil {
				bounds = plusOffsets(line)
				continue
			}
			flush(strings.ContainsRune(line, '='))
		case bounds != nil && strings.HasPrefix(line, "|"):
			cells := sliceCells(line, bounds)
			if buf == nil {
				buf = cells
				continue
			}
			for i, cell := range cells {
				if i >= len(buf) {
					break
				}
				if strings.TrimSpace(cell) != "" {
					buf[i] += "\n" + cell
				}
			}
		}
	}
	flush(false)

	t := &Table{Headers: headers}
	for _, cells := range cellRows {
		row := internal.NewRawRow()
		if len(headers) > 0 && len(cells) == len(headers) {
			for i, h := range headers {
				row.Set(h, cells[i])
			}
			expandAttributes(row)
		} else {
			for i, cell := range cells {
				row.Set(strconv.Itoa(i), cell)
			}
		}
		if rowBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// isBorderLine reports whether the line is made of `+` markers joined by
// runs of `-` or `=`.
func isBorderLine(line string) bool {
	line = strings.TrimRight(line, " \t")
	if len(line) < 2 || line[0] != '+' {
		return false
	}
	plus := 0
	for _, r := range line {
		switch r {
		case '+':
			plus++
		case '-', '=':
		default:
			return false
		}
	}
	return plus >= 2
}

// plusOffsets returns the rune offsets of every `+` in a border line. The
// slices between adjacent offsets are the column extents of the table.
func plusOffsets(line string) []int {
	var out []int
	for i, r := range []rune(strings.TrimRight(line, " \t")) {
		if r == '+' {
			out = append(out, i)
		}
	}
	return out
}

// sliceCells cuts one content line at the fixed column offsets. Fragments
// are right-trimmed of padding but keep their leading spaces, which the
// nested attribute marker depends on.
func sliceCells(line string, bounds []int) []string {
	runes := []rune(line)
	cells := make([]string, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i]+1, bounds[i+1]
		if start > len(runes) {
			start = len(runes)
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start > end {
			start = end
		}
		cells = append(cells, strings.TrimRight(string(runes[start:end]), " \t\f\v"))
	}
	return cells
}

// expandAttributes splits every cell that carries nested attribute lines.
// The text before the first marker stays as the cell's own value; each
// attribute line contributes a sibling key/value pair, merged flat into the
// same row.
func expandAttributes(row *internal.RawRow) {
	keys := append([]string(nil), row.Keys()...)
	for _, key := range keys {
		value, _ := row.Get(key)
		if !strings.Contains(value, attrMarker) {
			continue
		}
		segs := strings.Split(value, attrMarker)
		row.Set(key, strings.TrimSpace(segs[0]))
		for _, seg := range segs[1:] {
			k, v, ok := strings.Cut(seg, ":")
			if !ok {
				continue
			}
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			row.Set(k, strings.TrimSpace(v))
		}
	}
}

func rowBlank(row *internal.RawRow) bool {
	for _, key := range row.Keys() {
		if v, _ := row.Get(key); strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
