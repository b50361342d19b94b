// Package invoicing turns billing requests into persisted invoices. The
// invoice row, its line items and every task ledger commit they trigger
// are written in one transaction — all or nothing.
package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tally/internal/ledger"
	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/store"
)

// ValidationError reports malformed or missing billing input. Surfaced
// before any mutation; never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TaskSelection picks a task to bill, with the requested percentage for
// percentage billing (ignored by milestone and fixed-fee).
type TaskSelection struct {
	TaskID     string
	Percentage decimal.Decimal
}

// ManualLine is a free-text line item for manual invoices.
type ManualLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateParams holds a billing request.
type CreateParams struct {
	ClientID  string
	ProjectID *string
	Strategy  model.CalculatorType
	TaxAmount decimal.Decimal
	IssueDate time.Time
	DueDate   *time.Time

	TaskSelections []TaskSelection // milestone, percentage, fixed-fee
	ManualLines    []ManualLine    // manual
}

// Service composes, edits and deletes invoices.
type Service struct {
	store    *store.Store
	ledger   *ledger.Service
	registry *Registry
}

// NewService creates an invoicing Service with the built-in calculators.
func NewService(st *store.Store, led *ledger.Service) *Service {
	return &Service{store: st, ledger: led, registry: DefaultRegistry()}
}

// Create validates the request, builds line items via the strategy's
// calculator, and persists the invoice. Any ledger failure (e.g. a task
// concurrently fully billed) aborts the entire creation.
func (s *Service) Create(ctx context.Context, params CreateParams) (model.Invoice, error) {
	if err := s.validate(params); err != nil {
		return model.Invoice{}, err
	}

	calc := s.registry.Get(params.Strategy)
	if calc == nil {
		return model.Invoice{}, ValidationError{Field: "strategy", Reason: fmt.Sprintf("unknown calculator %q", params.Strategy)}
	}

	var created model.Invoice
	err := s.store.Transact(ctx, func(tx *store.Store) error {
		built, err := calc.Build(ctx, tx, s.ledger.WithStore(tx), params)
		if err != nil {
			return err
		}
		if len(built.Lines) == 0 {
			return ValidationError{Field: "line items", Reason: "nothing to invoice"}
		}

		number, err := s.nextNumber(ctx, tx, params.IssueDate.Year())
		if err != nil {
			return err
		}

		inv := model.Invoice{
			Number:         number,
			ClientID:       params.ClientID,
			ProjectID:      params.ProjectID,
			Subtotal:       built.Subtotal,
			TaxAmount:      params.TaxAmount,
			Total:          built.Subtotal.Add(params.TaxAmount),
			AmountPaid:     decimal.Zero,
			Status:         model.InvoiceDraft,
			CalculatorType: params.Strategy,
			IssueDate:      params.IssueDate,
			DueDate:        params.DueDate,
			LineItems:      built.Lines,
		}
		if err := tx.CreateInvoice(ctx, &inv); err != nil {
			return err
		}

		if err := tx.AssignTimeEntriesToInvoice(ctx, built.TimeEntryIDs, inv.ID); err != nil {
			return err
		}
		if err := tx.AssignExpensesToInvoice(ctx, built.ExpenseIDs, inv.ID); err != nil {
			return err
		}

		created = inv
		return nil
	})
	if err != nil {
		return model.Invoice{}, err
	}
	return created, nil
}

// RecomputeTotals re-derives an invoice's subtotal and total from its
// current line items, so manual line edits are reflected before the next
// save rather than frozen at creation time.
func (s *Service) RecomputeTotals(ctx context.Context, invoiceID string) (model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return model.Invoice{}, err
	}

	subtotal := decimal.Zero
	for _, line := range inv.LineItems {
		subtotal = subtotal.Add(line.Amount)
	}
	total := subtotal.Add(inv.TaxAmount)

	if err := s.store.SaveInvoiceTotals(ctx, invoiceID, subtotal, inv.TaxAmount, total); err != nil {
		return model.Invoice{}, err
	}

	inv.Subtotal = subtotal
	inv.Total = total
	return inv, nil
}

// MarkSent transitions a draft invoice to sent. Notification dispatch is
// the caller's business; this only records that the status changed.
func (s *Service) MarkSent(ctx context.Context, invoiceID string) error {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != model.InvoiceDraft {
		return ValidationError{Field: "status", Reason: fmt.Sprintf("invoice %s is %s, only drafts can be sent", inv.Number, inv.Status)}
	}
	return s.store.SetInvoiceStatus(ctx, invoiceID, model.InvoiceSent)
}

// Delete removes an invoice: time-entry and expense back-references are
// cleared, each task-billing line item's ledger delta is reversed, then
// the line items and the invoice row are deleted — one transaction,
// symmetric with Create.
func (s *Service) Delete(ctx context.Context, invoiceID string) error {
	return s.store.Transact(ctx, func(tx *store.Store) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}

		if err := tx.ClearInvoiceBackrefs(ctx, invoiceID); err != nil {
			return err
		}

		led := s.ledger.WithStore(tx)
		for _, line := range inv.LineItems {
			if line.TaskID == nil || line.BilledPercentage.IsZero() {
				continue
			}
			if err := led.ReverseBilling(ctx, *line.TaskID, line.BilledPercentage, line.Amount); err != nil {
				return err
			}
		}

		return tx.DeleteInvoiceRows(ctx, invoiceID)
	})
}

// validate rejects malformed requests before any mutation.
func (s *Service) validate(params CreateParams) error {
	if params.ClientID == "" {
		return ValidationError{Field: "client", Reason: "no client selected"}
	}
	if params.TaxAmount.IsNegative() {
		return ValidationError{Field: "tax amount", Reason: "must not be negative"}
	}
	if params.IssueDate.IsZero() {
		return ValidationError{Field: "issue date", Reason: "required"}
	}

	switch params.Strategy {
	case model.CalcManual:
		if len(params.ManualLines) == 0 {
			return ValidationError{Field: "line items", Reason: "no line items supplied"}
		}
		for _, line := range params.ManualLines {
			if line.Quantity.LessThanOrEqual(decimal.Zero) || line.UnitPrice.IsNegative() {
				return ValidationError{Field: "line items", Reason: fmt.Sprintf("bad quantity or rate on %q", line.Description)}
			}
		}
	case model.CalcMilestone, model.CalcPercentage, model.CalcFixedFee:
		if len(params.TaskSelections) == 0 {
			return ValidationError{Field: "tasks", Reason: "no tasks selected"}
		}
		seen := make(map[string]bool, len(params.TaskSelections))
		for _, sel := range params.TaskSelections {
			if seen[sel.TaskID] {
				return ValidationError{Field: "tasks", Reason: fmt.Sprintf("task %s selected more than once", sel.TaskID)}
			}
			seen[sel.TaskID] = true
		}
	case model.CalcTimeMaterials:
		if params.ProjectID == nil {
			return ValidationError{Field: "project", Reason: "time and materials billing requires a project"}
		}
	}
	return nil
}

// nextNumber returns the next sequential invoice number for a year.
func (s *Service) nextNumber(ctx context.Context, tx *store.Store, year int) (string, error) {
	numbers, err := tx.InvoiceNumbersForYear(ctx, YearPrefix(year))
	if err != nil {
		return "", err
	}

	maxSeq := 0
	for _, n := range numbers {
		_, seq, err := ParseNumber(n)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return FormatNumber(year, maxSeq+1), nil
}
