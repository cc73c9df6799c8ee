package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRepo struct{ closed bool }

func (f *fakeRepo) EnsureTable(context.Context, TableDef) error { return nil }
func (f *fakeRepo) CopyFrom(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) Exec(context.Context, string) error { return nil }
func (f *fakeRepo) Close()                             { f.closed = true }

func TestRegisterAndNew(t *testing.T) {
	want := &fakeRepo{}
	var gotDSN string
	Register("Fake-Registry", func(_ context.Context, cfg Config) (Repository, error) {
		gotDSN = cfg.DSN
		return want, nil
	})

	repo, err := New(context.Background(), Config{Kind: " fake-registry ", DSN: "mem"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repo != want {
		t.Fatalf("New returned %T, want registered repo", repo)
	}
	if gotDSN != "mem" {
		t.Fatalf("factory saw DSN %q, want mem", gotDSN)
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake-registry" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() = %v, missing fake-registry", Kinds())
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	f := func(context.Context, Config) (Repository, error) { return nil, errors.New("unused") }
	Register("dup-kind", f)
	defer func() {
		if recover() == nil {
			t.Fatal("second Register did not panic")
		}
	}()
	Register("DUP-KIND", f)
}

func TestNewUnknownKind(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{Kind: "nope"})
	if err == nil || !strings.Contains(err.Error(), `unknown kind "nope"`) {
		t.Fatalf("err = %v, want unknown kind", err)
	}
}

func TestTableDefValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		def     TableDef
		wantErr string
	}{
		{"ok", TableDef{Name: "rx", Columns: []Column{{Name: "a"}, {Name: "b", Type: Real}}}, ""},
		{"no name", TableDef{Columns: []Column{{Name: "a"}}}, "table name"},
		{"no columns", TableDef{Name: "rx"}, "no columns"},
		{"blank column", TableDef{Name: "rx", Columns: []Column{{Name: " "}}}, "empty name"},
		{"repeat", TableDef{Name: "rx", Columns: []Column{{Name: "A"}, {Name: "a"}}}, "repeats column"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestColumnNames(t *testing.T) {
	t.Parallel()
	def := TableDef{Name: "rx", Columns: []Column{{Name: "zone"}, {Name: "rx", Type: Real}}}
	got := def.ColumnNames()
	if len(got) != 2 || got[0] != "zone" || got[1] != "rx" {
		t.Fatalf("ColumnNames() = %v", got)
	}
}
