package uow

import (
	"context"

	"gorm.io/gorm"

	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm. The push ingest path
// uses it to land a whole commit batch atomically before the job is
// enqueued.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
}
