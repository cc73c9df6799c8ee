package postgres

import (
	"context"
	"errors"
	"testing"

	"rxreport/internal/storage"
)

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
	)
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://u@h/db"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotCfg.DSN != "postgres://u@h/db" {
		t.Errorf("hook DSN = %q", gotCfg.DSN)
	}
	repo.Close()
	if !closed {
		t.Error("Close did not call cleanup")
	}
}

func TestRegistrationPropagatesError(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	boom := errors.New("boom")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, boom }

	if _, err := storage.New(context.Background(), storage.Config{Kind: "postgres"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()
	got, err := createTableSQL(storage.TableDef{
		Name: "public.rx_master",
		Columns: []storage.Column{
			{Name: "ZBM Code"},
			{Name: "total_rx", Type: storage.Real},
			{Name: "doctors", Type: storage.Integer},
		},
	})
	if err != nil {
		t.Fatalf("createTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"rx_master\" (\n" +
		"  \"ZBM Code\" TEXT,\n  \"total_rx\" DOUBLE PRECISION,\n  \"doctors\" BIGINT\n)"
	if got != want {
		t.Fatalf("createTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestSplitFQN(t *testing.T) {
	t.Parallel()
	id := splitFQN("public.rx")
	if len(id) != 2 || id[0] != "public" || id[1] != "rx" {
		t.Fatalf("splitFQN = %v", id)
	}
	if id := splitFQN("rx"); len(id) != 1 {
		t.Fatalf("splitFQN(rx) = %v", id)
	}
}

func TestNewRepositoryEmptyDSN(t *testing.T) {
	t.Parallel()
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatal("want error for empty DSN")
	}
}
