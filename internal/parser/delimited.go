package parser

import (
	"strconv"
	"strings"

	"belfiore/internal"
)

type DelimitedOptions struct {
	Delimiter rune
	Quote     rune
	Escape    rune
	HasHeader bool
	Encoding  string
}

// ParseDelimited parses delimiter-separated text. The bytes are transcoded
// to UTF-8 before any splitting, lines break on CRLF/CR/LF and blank lines
// are dropped. With a header row the header fields become lower-cased
// trimmed column keys and any line whose field count differs from the
// header's is dropped silently; a handful of broken lines must not fail an
// otherwise valid feed. Without a header row the rows keep positional keys.
func ParseDelimited(data []byte, opts DelimitedOptions) (*Table, error) {
	text, err := DecodeToUTF8(data, opts.Encoding)
	if err != nil {
		return nil, err
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.Quote == 0 {
		opts.Quote = '"'
	}

	t := &Table{}
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line, opts)

		if opts.HasHeader && t.Headers == nil {
			headers := make([]string, len(fields))
			for i, f := range fields {
				headers[i] = strings.ToLower(strings.TrimSpace(f))
			}
			t.Headers = headers
			continue
		}

		row := internal.NewRawRow()
		if t.Headers != nil {
			if len(fields) != len(t.Headers) {
				continue
			}
			for i, h := range t.Headers {
				row.Set(h, fields[i])
			}
		} else {
			for i, f := range fields {
				row.Set(strconv.Itoa(i), f)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// splitFields splits one line into fields. The quote character toggles
// delimiter recognition, a doubled quote inside a quoted field is a literal
// quote, and the escape character makes the next rune literal. Fields never
// span lines in these feeds.
func splitFields(line string, opts DelimitedOptions) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
		escaped bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case opts.Escape != 0 && r == opts.Escape:
			escaped = true
		case opts.Quote != 0 && r == opts.Quote:
			if inQuote && i+1 < len(runes) && runes[i+1] == opts.Quote {
				cur.WriteRune(opts.Quote)
				i++
			} else {
				inQuote = !inQuote
			}
		case r == opts.Delimiter && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
