package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillingUnit says how a task's budget is denominated.
type BillingUnit string

const (
	UnitHours BillingUnit = "hours"
	UnitFixed BillingUnit = "fixed"
)

// Task is a billable unit of work inside a project. Its budget is billed
// incrementally across invoices; BilledPercentage and BilledAmount are the
// running ledger state and only the invoice composer mutates them.
type Task struct {
	ID               string          `gorm:"primaryKey;type:uuid"`
	ProjectID        string          `gorm:"not null;index"`
	Name             string          `gorm:"size:255;not null"`
	TotalBudget      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,2);not null"` // hours or unit count
	BilledPercentage decimal.Decimal `gorm:"type:decimal(7,4);not null"`  // 0..100, never decreases except on invoice deletion
	BilledAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null"` // persisted for audit
	BillingUnit      BillingUnit     `gorm:"size:16;not null;default:'hours'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// RemainingPercentage returns how much of the budget is still unbilled.
func (t Task) RemainingPercentage() decimal.Decimal {
	return decimal.NewFromInt(100).Sub(t.BilledPercentage)
}

// RemainingBudget returns the unbilled portion of the total budget,
// rounded to currency precision.
func (t Task) RemainingBudget() decimal.Decimal {
	return t.TotalBudget.Sub(t.BilledAmount).Round(2)
}

// UnitPrice returns the per-unit fee (budget / quantity). Zero quantity
// yields the full budget as a single unit.
func (t Task) UnitPrice() decimal.Decimal {
	if t.Quantity.IsZero() {
		return t.TotalBudget
	}
	return t.TotalBudget.Div(t.Quantity).Round(2)
}
