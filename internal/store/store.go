// Package store is the persistence layer: a sqlite database accessed
// through gorm, with typed methods per entity. Conditional updates report
// affected-row counts so callers can build compare-and-swap mutations on
// top of them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tallybooks/tally/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the database handle. All business services operate through it.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&model.Client{},
		&model.Project{},
		&model.Task{},
		&model.Invoice{},
		&model.InvoiceLineItem{},
		&model.TimeEntry{},
		&model.Expense{},
		&model.BankTransaction{},
		&model.ExpenseCategory{},
		&model.PaymentTerm{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing gorm handle (used by Transact).
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transact runs fn inside a single database transaction. The Store passed
// to fn routes every operation through that transaction; any error rolls
// the whole batch back.
func (s *Store) Transact(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// translate maps gorm's not-found to the package sentinel.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
