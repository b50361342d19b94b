package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExpenseCategory is a settings catalog entry for classifying expenses.
type ExpenseCategory struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"size:128;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *ExpenseCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c ExpenseCategory) CatalogID() string   { return c.ID }
func (c ExpenseCategory) CatalogName() string { return c.Name }

// PaymentTerm is a settings catalog entry (e.g. "Net 30") carrying the
// default due-date offset applied to new invoices.
type PaymentTerm struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"size:128;not null;uniqueIndex"`
	NetDays   int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *PaymentTerm) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t PaymentTerm) CatalogID() string   { return t.ID }
func (t PaymentTerm) CatalogName() string { return t.Name }
