package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TimeEntry is a logged unit of work. Approved, not-yet-invoiced entries
// feed time-and-materials invoicing; InvoiceID is the back-reference set
// when the entry is billed and cleared again if that invoice is deleted.
type TimeEntry struct {
	ID          string          `gorm:"primaryKey;type:uuid"`
	ProjectID   string          `gorm:"not null;index"`
	TaskID      *string         `gorm:"index"`
	Date        time.Time       `gorm:"not null"`
	Description string          `gorm:"size:512"`
	Hours       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	HourlyRate  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Approved    bool            `gorm:"not null;default:false"`
	InvoiceID   *string         `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e *TimeEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Amount returns hours x rate at currency precision.
func (e TimeEntry) Amount() decimal.Decimal {
	return e.Hours.Mul(e.HourlyRate).Round(2)
}

// Expense is a recorded cost. Billable, not-yet-invoiced expenses feed
// time-and-materials invoicing; all expenses feed the reconciliation
// candidate pool as debits.
type Expense struct {
	ID          string          `gorm:"primaryKey;type:uuid"`
	ProjectID   *string         `gorm:"index"`
	CategoryID  *string         `gorm:"index"`
	Date        time.Time       `gorm:"not null"`
	Description string          `gorm:"size:512;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Billable    bool            `gorm:"not null;default:false"`
	InvoiceID   *string         `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e *Expense) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
