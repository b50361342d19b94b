// Package payments decides how an incoming payment applies across a
// client's open invoices and applies the chosen allocation atomically.
package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/store"
)

// ValidationError reports malformed payment input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AllocationExceedsBalanceError reports a per-invoice amount above that
// invoice's open balance. The per-invoice ceiling is the authoritative
// constraint; it is re-validated at apply time, not only at entry.
type AllocationExceedsBalanceError struct {
	InvoiceID string
	Requested decimal.Decimal
	Open      decimal.Decimal
}

func (e AllocationExceedsBalanceError) Error() string {
	return fmt.Sprintf("allocation %s exceeds open balance %s on invoice %s",
		e.Requested.StringFixed(2), e.Open.StringFixed(2), e.InvoiceID)
}

// AllocationInput is one requested split: apply Amount to InvoiceID.
type AllocationInput struct {
	InvoiceID string
	Amount    decimal.Decimal
}

// Allocation is an applied (or proposed) split, with the invoice balance
// around it.
type Allocation struct {
	InvoiceID     string
	InvoiceNumber string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// Params identifies the payment being allocated.
type Params struct {
	ClientID  string
	ProjectID *string // narrows candidates for project-specific payments
	Amount    decimal.Decimal
}

// Proposal is the allocator's suggestion for a payment: the candidate
// invoices in aging order and, when the payment exactly settles one of
// them, that invoice pre-selected for the full amount.
type Proposal struct {
	Candidates  []model.Invoice
	Allocations []Allocation
	AutoMatched bool
}

// Result describes an applied allocation batch.
type Result struct {
	Allocations    []Allocation
	TotalAllocated decimal.Decimal
	Remaining      decimal.Decimal // entered amount minus allocated; negative when over-allocated
	OverAllocated  bool            // warning only; the per-invoice ceiling is the hard rule
	PaidInvoices   []string        // invoices that became fully paid
}

// Service proposes and applies payment allocations.
type Service struct {
	store *store.Store
}

// NewService creates a payment allocator.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Propose loads the client's open invoices (due date ascending, nulls
// last) and auto-matches when the entered amount equals exactly one
// candidate's open balance within the payment tolerance.
func (s *Service) Propose(ctx context.Context, params Params) (Proposal, error) {
	if err := validateParams(params); err != nil {
		return Proposal{}, err
	}

	candidates, err := s.store.OpenInvoices(ctx, params.ClientID, params.ProjectID)
	if err != nil {
		return Proposal{}, err
	}

	proposal := Proposal{Candidates: candidates}
	for _, inv := range candidates {
		open := inv.OpenBalance()
		if params.Amount.Sub(open).Abs().LessThanOrEqual(model.PaymentTolerance) {
			proposal.Allocations = []Allocation{{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.Number,
				Amount:        open,
				BalanceBefore: open,
				BalanceAfter:  decimal.Zero,
			}}
			proposal.AutoMatched = true
			break
		}
	}
	return proposal, nil
}

// Apply validates the requested splits and applies them in one
// transaction. Partial allocation (less than the entered amount) is fine;
// allocating beyond the entered amount is reported as a warning on the
// Result. Per-invoice amounts above the open balance are hard errors.
// Applying a payment never downgrades an invoice's status.
func (s *Service) Apply(ctx context.Context, params Params, inputs []AllocationInput) (Result, error) {
	if err := validateParams(params); err != nil {
		return Result{}, err
	}
	if len(inputs) == 0 {
		return Result{}, ValidationError{Field: "allocations", Reason: "no invoices allocated"}
	}
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if in.Amount.LessThanOrEqual(decimal.Zero) {
			return Result{}, ValidationError{Field: "allocations", Reason: fmt.Sprintf("non-positive amount for invoice %s", in.InvoiceID)}
		}
		if seen[in.InvoiceID] {
			return Result{}, ValidationError{Field: "allocations", Reason: fmt.Sprintf("invoice %s allocated more than once", in.InvoiceID)}
		}
		seen[in.InvoiceID] = true
	}

	var result Result
	err := s.store.Transact(ctx, func(tx *store.Store) error {
		for _, in := range inputs {
			inv, err := tx.GetInvoice(ctx, in.InvoiceID)
			if err != nil {
				return err
			}
			if inv.ClientID != params.ClientID {
				return ValidationError{Field: "allocations", Reason: fmt.Sprintf("invoice %s belongs to another client", inv.Number)}
			}

			open := inv.OpenBalance()
			if in.Amount.GreaterThan(open) {
				return AllocationExceedsBalanceError{InvoiceID: in.InvoiceID, Requested: in.Amount, Open: open}
			}

			ok, err := tx.ApplyPayment(ctx, in.InvoiceID, in.Amount)
			if err != nil {
				return err
			}
			if !ok {
				// A concurrent payment moved the balance under us.
				return AllocationExceedsBalanceError{InvoiceID: in.InvoiceID, Requested: in.Amount, Open: open}
			}

			after := open.Sub(in.Amount)
			if model.SettledBy(inv.AmountPaid.Add(in.Amount), inv.Total) && inv.Status != model.InvoicePaid {
				if err := tx.SetInvoiceStatus(ctx, in.InvoiceID, model.InvoicePaid); err != nil {
					return err
				}
				result.PaidInvoices = append(result.PaidInvoices, in.InvoiceID)
			}

			result.Allocations = append(result.Allocations, Allocation{
				InvoiceID:     in.InvoiceID,
				InvoiceNumber: inv.Number,
				Amount:        in.Amount,
				BalanceBefore: open,
				BalanceAfter:  after,
			})
			result.TotalAllocated = result.TotalAllocated.Add(in.Amount)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	result.Remaining = params.Amount.Sub(result.TotalAllocated)
	result.OverAllocated = result.Remaining.IsNegative()
	return result, nil
}

func validateParams(params Params) error {
	if params.ClientID == "" {
		return ValidationError{Field: "client", Reason: "no client selected"}
	}
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return ValidationError{Field: "amount", Reason: "payment amount must be positive"}
	}
	return nil
}
