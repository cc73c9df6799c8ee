package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxSheetName is Excel's sheet name limit in characters.
const maxSheetName = 31

// sheetNamer hands out workbook-unique sheet names. Excel compares sheet
// names case-insensitively.
type sheetNamer struct {
	used map[string]bool
}

func newSheetNamer(reserved ...string) *sheetNamer {
	n := &sheetNamer{used: make(map[string]bool)}
	for _, r := range reserved {
		n.used[strings.ToLower(r)] = true
	}
	return n
}

func (n *sheetNamer) name(raw string) string {
	base := cleanSheetName(raw)
	cand := base
	for i := 2; n.used[strings.ToLower(cand)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		cand = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	n.used[strings.ToLower(cand)] = true
	return cand
}

func cleanSheetName(raw string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return -1
		}
		return r
	}, raw)
	s = strings.Trim(strings.TrimSpace(s), "'")
	if s == "" {
		s = "Blank"
	}
	return truncateRunes(s, maxSheetName)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// fileStem reduces a node key to something safe in a file name.
func fileStem(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('_')
		}
		for _, r := range strings.TrimSpace(p) {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
				b.WriteRune(r)
			default:
				b.WriteByte('_')
			}
		}
	}
	s := strings.Trim(b.String(), "_.")
	if s == "" {
		return "blank"
	}
	return s
}

// fileNamer hands out distinct node file stems. Stems are compared
// case-insensitively since common filesystems do.
type fileNamer struct {
	used map[string]bool
}

func newFileNamer() *fileNamer { return &fileNamer{used: make(map[string]bool)} }

func (n *fileNamer) name(parts []string) string {
	base := fileStem(parts)
	cand := base
	for i := 2; n.used[strings.ToLower(cand)]; i++ {
		cand = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[strings.ToLower(cand)] = true
	return cand
}

// withLabel inserts label before the extension: out/rx.xlsx -> out/rx_2024-09.xlsx.
func withLabel(path, label string) string {
	if label == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + label + ext
}
