package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus is the invoice lifecycle state.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// CalculatorType records which billing strategy produced an invoice.
type CalculatorType string

const (
	CalcManual        CalculatorType = "manual"
	CalcMilestone     CalculatorType = "milestone"
	CalcPercentage    CalculatorType = "percentage"
	CalcTimeMaterials CalculatorType = "time_materials"
	CalcFixedFee      CalculatorType = "fixed_fee"
)

// PaymentTolerance absorbs rounding drift when deciding whether an
// invoice is fully paid or a payment exactly matches an open balance.
var PaymentTolerance = decimal.New(1, -2) // 0.01

// Invoice is a bill issued to a client, optionally scoped to a project.
type Invoice struct {
	ID             string          `gorm:"primaryKey;type:uuid"`
	Number         string          `gorm:"size:32;not null;uniqueIndex"`
	ClientID       string          `gorm:"not null;index"`
	ProjectID      *string         `gorm:"index"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status         InvoiceStatus   `gorm:"size:16;not null;default:'draft'"`
	CalculatorType CalculatorType  `gorm:"size:24;not null"`
	IssueDate      time.Time       `gorm:"not null"`
	DueDate        *time.Time      `gorm:"index"`
	LineItems      []InvoiceLineItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// OpenBalance is the amount still owed.
func (i Invoice) OpenBalance() decimal.Decimal {
	return i.Total.Sub(i.AmountPaid)
}

// IsOpen reports whether the invoice can still receive payments.
func (i Invoice) IsOpen() bool {
	return i.Status != InvoicePaid && i.OpenBalance().GreaterThan(decimal.Zero)
}

// SettledBy reports whether paying amountPaid settles total within tolerance.
func SettledBy(amountPaid, total decimal.Decimal) bool {
	return total.Sub(amountPaid).LessThanOrEqual(PaymentTolerance)
}

// RecalcStatus moves the invoice to paid when settled. Status only moves
// forward: a payment never downgrades sent back to draft, and a paid
// invoice stays paid.
func (i *Invoice) RecalcStatus() {
	if SettledBy(i.AmountPaid, i.Total) {
		i.Status = InvoicePaid
	}
}

// EffectiveStatus folds in overdue, which is derived at read time rather
// than stored: a sent invoice past its due date reports as overdue.
func (i Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceSent && i.DueDate != nil && now.After(*i.DueDate) {
		return InvoiceOverdue
	}
	return i.Status
}

// InvoiceLineItem is one line on an invoice. TaskID and BilledPercentage
// are set for task-based strategies; BilledPercentage is a creation-time
// snapshot and immutable afterwards.
type InvoiceLineItem struct {
	ID               string          `gorm:"primaryKey;type:uuid"`
	InvoiceID        string          `gorm:"not null;index"`
	TaskID           *string         `gorm:"index"`
	Description      string          `gorm:"size:512;not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BilledPercentage decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	CreatedAt        time.Time
}

func (li *InvoiceLineItem) BeforeCreate(*gorm.DB) error {
	if li.ID == "" {
		li.ID = uuid.NewString()
	}
	return nil
}
