package mysql

import (
	"context"

	"rxreport/internal/storage"
)

// newRepository points at NewRepository. Tests replace it to avoid
// a live server.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository
// and calling the close function NewRepository returned on Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
