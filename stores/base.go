package stores

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "storebridge_tx"

// BaseStore gives every store a transaction-aware handle: operations run on
// the ambient transaction when one is in the context, on the pool otherwise.
type BaseStore struct {
	db *gorm.DB
}

func (s *BaseStore) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// WithTransaction runs fn inside one transaction. Store calls made through
// the returned context join it, so a command apply and its attempt record
// commit or roll back together.
func (s *BaseStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}
