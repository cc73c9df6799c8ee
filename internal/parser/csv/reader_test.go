package csv

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"rxreport/internal/config"
	"rxreport/pkg/records"
)

type lineErr struct {
	line int
	msg  string
}

/*
read parses input with opt and collects soft errors.
*/
func read(t *testing.T, input string, opt config.Options) (*records.Table, []lineErr) {
	t.Helper()
	var errs []lineErr
	tbl, err := ReadTable(context.Background(), strings.NewReader(input), opt, func(line int, err error) {
		errs = append(errs, lineErr{line, err.Error()})
	})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	return tbl, errs
}

func TestReadTable_Basic(t *testing.T) {
	t.Parallel()

	input := "\uFEFF ZBM Code , Dr Code,Brand1: Brand Code\nZ1, D1 ,A\n\nZ2,D2,B\n"
	tbl, errs := read(t, input, config.Options{})
	if len(errs) != 0 {
		t.Fatalf("unexpected soft errors: %v", errs)
	}
	wantCols := []string{"ZBM Code", "Dr Code", "Brand1: Brand Code"}
	if !reflect.DeepEqual(tbl.Columns, wantCols) {
		t.Fatalf("Columns = %q, want %q", tbl.Columns, wantCols)
	}
	want := []records.Record{
		{"ZBM Code": "Z1", "Dr Code": "D1", "Brand1: Brand Code": "A"},
		{"ZBM Code": "Z2", "Dr Code": "D2", "Brand1: Brand Code": "B"},
	}
	if !reflect.DeepEqual(tbl.Records, want) {
		t.Fatalf("Records = %v, want %v", tbl.Records, want)
	}
	if !reflect.DeepEqual(tbl.Lines, []int{2, 4}) {
		t.Fatalf("Lines = %v, want [2 4]", tbl.Lines)
	}
}

func TestReadTable_RaggedRows(t *testing.T) {
	t.Parallel()

	input := "a,b,c\n1,2\n1,2,3,4\n5,6,7\n"
	tbl, errs := read(t, input, config.Options{})

	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if got := tbl.Records[0]; !reflect.DeepEqual(got, records.Record{"a": "1", "b": "2", "c": ""}) {
		t.Fatalf("short row = %v, want padded", got)
	}
	if len(errs) != 1 || errs[0].line != 3 || !strings.Contains(errs[0].msg, "4 fields") {
		t.Fatalf("soft errors = %v, want one at line 3", errs)
	}
}

func TestReadTable_QuotedMultilineKeepsStartLine(t *testing.T) {
	t.Parallel()

	input := "a,b\n\"x\ny\",1\nz,2\n"
	tbl, _ := read(t, input, config.Options{})
	if !reflect.DeepEqual(tbl.Lines, []int{2, 4}) {
		t.Fatalf("Lines = %v, want [2 4]", tbl.Lines)
	}
	if tbl.Records[0]["a"] != "x\ny" {
		t.Fatalf("multiline cell = %q", tbl.Records[0]["a"])
	}
}

func TestReadTable_DuplicateHeaders(t *testing.T) {
	t.Parallel()

	tbl, _ := read(t, "x,x,y,x\n1,2,3,4\n", config.Options{})
	want := []string{"x", "x.1", "y", "x.2"}
	if !reflect.DeepEqual(tbl.Columns, want) {
		t.Fatalf("Columns = %q, want %q", tbl.Columns, want)
	}
	if tbl.Records[0]["x.2"] != "4" {
		t.Fatalf("x.2 = %q, want 4", tbl.Records[0]["x.2"])
	}
}

func TestHeaderNames_SuffixNeverCollides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"A", "A", "A.1"}, []string{"A", "A.1", "A.1.1"}},
		{[]string{"A.1", "A", "A"}, []string{"A.1", "A", "A.2"}},
		{[]string{" B ", "B", "B", "B.2"}, []string{"B", "B.1", "B.2", "B.2.1"}},
	}
	for _, tt := range tests {
		if got := headerNames(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("headerNames(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadTable_Options(t *testing.T) {
	t.Parallel()

	opt := config.Options{"comma": ";", "trim_space": false}
	tbl, _ := read(t, "a;b\n 1 ;2\n", opt)
	if tbl.Records[0]["a"] != " 1 " {
		t.Fatalf("a = %q, want untrimmed", tbl.Records[0]["a"])
	}
}

func TestReadTable_FallbackEncoding(t *testing.T) {
	t.Parallel()

	// 0xE9 is é in cp1252 and latin-1, invalid as UTF-8.
	input := "Dr Code,Name\nD1,Jos\xe9\n"
	tbl, _ := read(t, input, config.Options{})
	if got := tbl.Records[0]["Name"]; got != "José" {
		t.Fatalf("Name = %q, want José", got)
	}

	_, err := ReadTable(context.Background(), strings.NewReader(input),
		config.Options{"encodings": []any{"utf-8"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "not decodable") {
		t.Fatalf("utf-8 only: err = %v, want not decodable", err)
	}

	_, err = ReadTable(context.Background(), strings.NewReader(input),
		config.Options{"encodings": []any{"ebcdic"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown encoding") {
		t.Fatalf("unknown: err = %v", err)
	}
}

func TestReadTable_EmptyInput(t *testing.T) {
	t.Parallel()

	if _, err := ReadTable(context.Background(), strings.NewReader(""), config.Options{}, nil); err == nil {
		t.Fatal("want error for empty input")
	}
	tbl, _ := read(t, "a,b\n", config.Options{})
	if tbl.Len() != 0 || len(tbl.Columns) != 2 {
		t.Fatalf("header only: Len=%d Columns=%v", tbl.Len(), tbl.Columns)
	}
}

func TestReadTable_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadTable(ctx, strings.NewReader("a\n1\n"), config.Options{}, nil); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestKnownEncoding(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"UTF-8", "utf-8-sig", "cp1252", "latin-1", "ISO-8859-1", "cp850"} {
		if !KnownEncoding(name) {
			t.Errorf("KnownEncoding(%q) = false", name)
		}
	}
	if KnownEncoding("koi8") {
		t.Error("KnownEncoding(koi8) = true")
	}
}
