package parser

import (
	"errors"
	"testing"
)

func TestParseDelimitedHeaderLowercased(t *testing.T) {
	data := []byte("CODCATASTALE;DENOMINAZIONE_IT\nH501;ROMA\nF205;MILANO\n")

	table, err := ParseDelimited(data, DelimitedOptions{Delimiter: ';', HasHeader: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Headers) != 2 || table.Headers[0] != "codcatastale" || table.Headers[1] != "denominazione_it" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if v, _ := table.Rows[0].Get("codcatastale"); v != "H501" {
		t.Fatalf("code=%q", v)
	}
	if v, _ := table.Rows[1].Get("denominazione_it"); v != "MILANO" {
		t.Fatalf("name=%q", v)
	}
}

func TestParseDelimitedDropsMismatchedLines(t *testing.T) {
	data := []byte("a;b\n1;2\nbroken line\n3;4\n")

	table, err := ParseDelimited(data, DelimitedOptions{Delimiter: ';', HasHeader: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if v, _ := table.Rows[0].Get("a"); v != "1" {
		t.Fatalf("row0=%q", v)
	}
	if v, _ := table.Rows[1].Get("a"); v != "3" {
		t.Fatalf("row1=%q", v)
	}
}

func TestParseDelimitedNoHeader(t *testing.T) {
	data := []byte("H501;ROMA\n")

	table, err := ParseDelimited(data, DelimitedOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Headers) != 0 {
		t.Fatalf("headers=%v", table.Headers)
	}
	if v, _ := table.Rows[0].Get("0"); v != "H501" {
		t.Fatalf("col0=%q", v)
	}
	if v, _ := table.Rows[0].Get("1"); v != "ROMA" {
		t.Fatalf("col1=%q", v)
	}
}

func TestParseDelimitedQuoting(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		want  string
		field string
	}{
		{name: "delimiter inside quotes", line: "a;b\n\"X;Y\";2\n", want: "X;Y", field: "a"},
		{name: "doubled quote literal", line: "a;b\n\"say \"\"ciao\"\"\";2\n", want: `say "ciao"`, field: "a"},
		{name: "escaped delimiter", line: "a;b\nX\\;Y;2\n", want: "X;Y", field: "a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := ParseDelimited([]byte(tc.line), DelimitedOptions{Delimiter: ';', Quote: '"', Escape: '\\', HasHeader: true})
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(table.Rows) != 1 {
				t.Fatalf("rows=%d", len(table.Rows))
			}
			if v, _ := table.Rows[0].Get(tc.field); v != tc.want {
				t.Fatalf("got %q want %q", v, tc.want)
			}
		})
	}
}

func TestParseDelimitedLatin1(t *testing.T) {
	// "CEFALÀ DIANA" with the grave A encoded as ISO-8859-1 0xC0.
	data := append([]byte("denominazione_it\nCEFAL"), 0xC0)
	data = append(data, []byte(" DIANA\n")...)

	table, err := ParseDelimited(data, DelimitedOptions{Delimiter: ';', HasHeader: true, Encoding: "ISO-8859-1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := table.Rows[0].Get("denominazione_it"); v != "CEFALÀ DIANA" {
		t.Fatalf("got %q", v)
	}
}

func TestParseDelimitedUnsupportedEncoding(t *testing.T) {
	_, err := ParseDelimited([]byte("a\n"), DelimitedOptions{Encoding: "ebcdic"})
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("err=%v", err)
	}
}

func TestParseDelimitedCRLF(t *testing.T) {
	data := []byte("a;b\r\n1;2\r\n\r\n")

	table, err := ParseDelimited(data, DelimitedOptions{Delimiter: ';', HasHeader: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if v, _ := table.Rows[0].Get("b"); v != "2" {
		t.Fatalf("b=%q", v)
	}
}
