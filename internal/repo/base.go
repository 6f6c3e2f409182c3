package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the database handle shared by the domain repositories. A
// repository running inside a transaction wraps the transaction handle in a
// fresh Base.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
