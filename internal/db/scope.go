// Package db opens the relational store, owns its schema, and provides the
// per-request unit of work.
package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Scope runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; the
// connection is released on every path. fn's error is returned unchanged.
func Scope(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fmt.Errorf("db: scope: no database")
	}
	return db.WithContext(ctx).Transaction(fn)
}
