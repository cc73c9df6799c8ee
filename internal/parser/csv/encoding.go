package csv

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte("\uFEFF")

// DefaultEncodings is the fallback order tried when the input is not valid
// UTF-8. Exports from regional CRM tools tend to come out as one of these.
var DefaultEncodings = []string{"utf-8", "cp1252", "latin-1", "cp850"}

var codecs = map[string]encoding.Encoding{
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp850":        charmap.CodePage850,
	"ibm850":       charmap.CodePage850,
}

// KnownEncoding reports whether name can be passed in the encodings option.
func KnownEncoding(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "utf-8" || n == "utf8" || n == "utf-8-sig" {
		return true
	}
	_, ok := codecs[n]
	return ok
}

// decode returns raw as UTF-8 text with any leading BOM removed, plus the
// name of the encoding that produced it. Encodings are tried in order; a
// single-byte decode is accepted only if it yields no replacement runes.
func decode(raw []byte, encodings []string) ([]byte, string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	for _, name := range encodings {
		n := strings.ToLower(strings.TrimSpace(name))
		switch n {
		case "utf-8", "utf8", "utf-8-sig":
			if utf8.Valid(raw) {
				return raw, "utf-8", nil
			}
			continue
		}
		enc, ok := codecs[n]
		if !ok {
			return nil, "", fmt.Errorf("csv: unknown encoding %q", name)
		}
		out, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return out, n, nil
	}
	return nil, "", fmt.Errorf("csv: input is not decodable as any of %s", strings.Join(encodings, ", "))
}
