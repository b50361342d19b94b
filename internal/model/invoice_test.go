package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSettledBy(t *testing.T) {
	assert.True(t, SettledBy(dec("500.00"), dec("500.00")))
	assert.True(t, SettledBy(dec("499.99"), dec("500.00")), "one cent short settles")
	assert.True(t, SettledBy(dec("500.01"), dec("500.00")), "overpayment settles")
	assert.False(t, SettledBy(dec("499.98"), dec("500.00")))
}

func TestRecalcStatus_NeverDowngrades(t *testing.T) {
	inv := Invoice{Status: InvoicePaid, Total: dec("500"), AmountPaid: dec("100")}
	inv.RecalcStatus()
	assert.Equal(t, InvoicePaid, inv.Status, "paid stays paid even with an odd balance")

	inv = Invoice{Status: InvoiceSent, Total: dec("500"), AmountPaid: dec("500")}
	inv.RecalcStatus()
	assert.Equal(t, InvoicePaid, inv.Status)

	inv = Invoice{Status: InvoiceSent, Total: dec("500"), AmountPaid: dec("100")}
	inv.RecalcStatus()
	assert.Equal(t, InvoiceSent, inv.Status, "partial payment leaves status alone")
}

func TestEffectiveStatus(t *testing.T) {
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	sent := Invoice{Status: InvoiceSent, DueDate: &due}
	assert.Equal(t, InvoiceSent, sent.EffectiveStatus(due.AddDate(0, 0, -1)))
	assert.Equal(t, InvoiceOverdue, sent.EffectiveStatus(due.AddDate(0, 0, 1)),
		"overdue is derived, never stored")

	paid := Invoice{Status: InvoicePaid, DueDate: &due}
	assert.Equal(t, InvoicePaid, paid.EffectiveStatus(due.AddDate(0, 0, 30)),
		"paid invoices never report overdue")

	draft := Invoice{Status: InvoiceDraft, DueDate: &due}
	assert.Equal(t, InvoiceDraft, draft.EffectiveStatus(due.AddDate(0, 0, 30)))

	undated := Invoice{Status: InvoiceSent}
	assert.Equal(t, InvoiceSent, undated.EffectiveStatus(due.AddDate(0, 1, 0)))
}

func TestOpenBalanceAndIsOpen(t *testing.T) {
	inv := Invoice{Status: InvoiceSent, Total: dec("500"), AmountPaid: dec("150")}
	assert.True(t, inv.OpenBalance().Equal(dec("350")))
	assert.True(t, inv.IsOpen())

	inv.AmountPaid = dec("500")
	assert.False(t, inv.IsOpen())

	inv = Invoice{Status: InvoicePaid, Total: dec("500"), AmountPaid: dec("499.99")}
	assert.False(t, inv.IsOpen(), "paid status closes the invoice regardless of balance")
}

func TestTaskDerivedValues(t *testing.T) {
	task := Task{TotalBudget: dec("8000"), Quantity: dec("40"), BilledPercentage: dec("25"), BilledAmount: dec("2000")}
	assert.True(t, task.RemainingPercentage().Equal(dec("75")))
	assert.True(t, task.RemainingBudget().Equal(dec("6000.00")))
	assert.True(t, task.UnitPrice().Equal(dec("200.00")))

	fixed := Task{TotalBudget: dec("5000"), Quantity: decimal.Zero}
	assert.True(t, fixed.UnitPrice().Equal(dec("5000")), "zero quantity bills as one unit")
}
