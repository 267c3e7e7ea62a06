package workflow

import (
	"context"

	"gorm.io/gorm"
)

// WithTransaction runs fn in one database transaction. Any error returned by fn, or a panic,
// rolls back every write fn made; nil commits.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// InTransaction is WithTransaction for functions that produce a value.
func InTransaction[T any](ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		var err error
		result, err = fn(tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
