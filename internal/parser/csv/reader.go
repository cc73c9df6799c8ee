// Package csv reads a delimited extract into a records.Table. The whole input
// is buffered so the encoding can be detected before parsing.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"rxreport/internal/config"
	"rxreport/pkg/records"
)

// ReadTable parses src into a Table.
//
// Options (all optional):
//   - comma (string; first rune used; default ',')
//   - lazy_quotes (bool; default false)
//   - trim_space (bool; default true) trims every cell
//   - encodings ([]string; default DefaultEncodings)
//
// Header cells are trimmed; a repeated header gets a ".1", ".2" suffix.
// Rows shorter than the header are padded with empty cells. Rows longer than
// the header, and rows the csv reader rejects, are passed to onErr and
// dropped. A missing header is an error.
func ReadTable(
	ctx context.Context,
	src io.Reader,
	opt config.Options,
	onErr func(line int, err error),
) (*records.Table, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}
	text, enc, err := decode(raw, opt.StringSlice("encodings"))
	if err != nil {
		return nil, err
	}
	if enc != "utf-8" {
		log.Printf("reader: decoded input as %s", enc)
	}

	trim := opt.Bool("trim_space", true)
	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: empty input, no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	tbl := &records.Table{Columns: headerNames(hdr)}

	for {
		if len(tbl.Records)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if onErr != nil {
				onErr(errLine(err), fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(tbl.Columns) {
			if onErr != nil {
				onErr(line, fmt.Errorf("row has %d fields, header has %d", len(rec), len(tbl.Columns)))
			}
			continue
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}

		r := make(records.Record, len(tbl.Columns))
		for i, col := range tbl.Columns {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			if trim {
				v = strings.TrimSpace(v)
			}
			r[col] = v
		}
		tbl.Records = append(tbl.Records, r)
		tbl.Lines = append(tbl.Lines, line)
	}
	return tbl, nil
}

// headerNames trims each header cell and disambiguates repeats with a ".N"
// suffix. No two returned names are equal.
func headerNames(hdr []string) []string {
	out := make([]string, len(hdr))
	used := make(map[string]bool, len(hdr))
	next := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		name := h
		for n := max(next[h], 1); used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
			next[h] = n + 1
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func errLine(err error) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.StartLine
	}
	return 0
}
