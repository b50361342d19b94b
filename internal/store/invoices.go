package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tallybooks/tally/internal/model"
)

// CreateInvoice inserts an invoice together with its line items.
func (s *Store) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}
	return nil
}

// GetInvoice fetches an invoice with its line items.
func (s *Store) GetInvoice(ctx context.Context, id string) (model.Invoice, error) {
	var inv model.Invoice
	if err := s.db.WithContext(ctx).Preload("LineItems").First(&inv, "id = ?", id).Error; err != nil {
		return model.Invoice{}, fmt.Errorf("loading invoice %s: %w", id, translate(err))
	}
	return inv, nil
}

// SaveInvoiceTotals persists recomputed subtotal/tax/total on an invoice.
func (s *Store) SaveInvoiceTotals(ctx context.Context, id string, subtotal, tax, total decimal.Decimal) error {
	err := s.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).
		Updates(map[string]any{
			"subtotal":   subtotal,
			"tax_amount": tax,
			"total":      total,
		}).Error
	if err != nil {
		return fmt.Errorf("saving invoice totals %s: %w", id, err)
	}
	return nil
}

// SetInvoiceStatus writes an invoice status.
func (s *Store) SetInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error {
	err := s.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("setting invoice %s status: %w", id, err)
	}
	return nil
}

// OpenInvoices lists a client's invoices that can still receive payments:
// open balance above zero and not paid. Sorted by due date ascending with
// null due dates last, then by invoice number. An optional project ID
// narrows the set for project-specific payments.
func (s *Store) OpenInvoices(ctx context.Context, clientID string, projectID *string) ([]model.Invoice, error) {
	q := s.db.WithContext(ctx).
		Where("client_id = ? AND status <> ? AND total - amount_paid > 0", clientID, model.InvoicePaid)
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	}
	var invoices []model.Invoice
	if err := q.Order("due_date IS NULL, due_date ASC, number ASC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("listing open invoices for client %s: %w", clientID, err)
	}
	return invoices, nil
}

// ApplyPayment adds amount to an invoice's amount_paid as a conditional
// update that refuses to exceed the invoice total (within the payment
// tolerance). Returns false when the ceiling would be breached, meaning a
// concurrent payment got there first.
func (s *Store) ApplyPayment(ctx context.Context, invoiceID string, amount decimal.Decimal) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ? AND amount_paid + ? <= total + ?", invoiceID, amount, model.PaymentTolerance).
		Update("amount_paid", gorm.Expr("amount_paid + ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("applying payment to invoice %s: %w", invoiceID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SaveLineItem persists edits to an existing line item (quantity, rate,
// amount). The billed-percentage snapshot is creation-time state and is
// deliberately not updatable.
func (s *Store) SaveLineItem(ctx context.Context, li model.InvoiceLineItem) error {
	err := s.db.WithContext(ctx).Model(&model.InvoiceLineItem{}).Where("id = ?", li.ID).
		Updates(map[string]any{
			"description": li.Description,
			"quantity":    li.Quantity,
			"unit_price":  li.UnitPrice,
			"amount":      li.Amount,
		}).Error
	if err != nil {
		return fmt.Errorf("saving line item %s: %w", li.ID, err)
	}
	return nil
}

// InvoiceNumbersForYear returns all invoice numbers issued in a year.
func (s *Store) InvoiceNumbersForYear(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	err := s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("number LIKE ?", prefix+"%").Pluck("number", &numbers).Error
	if err != nil {
		return nil, fmt.Errorf("listing invoice numbers %s*: %w", prefix, err)
	}
	return numbers, nil
}

// AllInvoices lists every invoice, newest first.
func (s *Store) AllInvoices(ctx context.Context) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := s.db.WithContext(ctx).Order("number DESC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, nil
}

// PaidInvoices lists all fully paid invoices (the invoice side of the
// reconciliation candidate pool).
func (s *Store) PaidInvoices(ctx context.Context) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := s.db.WithContext(ctx).Where("status = ?", model.InvoicePaid).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("listing paid invoices: %w", err)
	}
	return invoices, nil
}

// DeleteInvoiceRows removes an invoice's line items and then the invoice
// itself. Callers clear back-references and reverse ledger state first;
// this is the final step of the deletion batch.
func (s *Store) DeleteInvoiceRows(ctx context.Context, invoiceID string) error {
	if err := s.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceLineItem{}).Error; err != nil {
		return fmt.Errorf("deleting line items for invoice %s: %w", invoiceID, err)
	}
	if err := s.db.WithContext(ctx).Delete(&model.Invoice{}, "id = ?", invoiceID).Error; err != nil {
		return fmt.Errorf("deleting invoice %s: %w", invoiceID, err)
	}
	return nil
}
