package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrUnsupportedEncoding = errors.New("unsupported encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeToUTF8 transcodes data from the declared source encoding to UTF-8
// text. An empty name means the bytes are already UTF-8; a byte order mark is
// stripped either way. The official feeds have shipped as ISO-8859-1,
// Windows-1252 and UTF-8 over the years, so the declared name travels with
// the source profile rather than being sniffed.
func DecodeToUTF8(data []byte, name string) (string, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))

	var enc encoding.Encoding
	switch key {
	case "", "utf8":
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	case "latin1", "iso88591":
		enc = charmap.ISO8859_1
	case "latin9", "iso885915":
		enc = charmap.ISO8859_15
	case "windows1252", "cp1252", "ansi":
		enc = charmap.Windows1252
	case "utf16", "utf16le":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf16be":
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(bytes.TrimPrefix(out, utf8BOM)), nil
}

// splitLines splits text into lines on any of CRLF, CR or LF.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
