// Package ledger is the single source of truth for how much of a task's
// budget has been invoiced. Every mutation goes through a conditional
// update at the storage layer so that concurrent billers can never push a
// task past 100%.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/store"
)

// FullyBilledError reports a billing attempt against a task with no
// remaining budget.
type FullyBilledError struct {
	TaskID string
}

func (e FullyBilledError) Error() string {
	return fmt.Sprintf("task %s is fully billed", e.TaskID)
}

// Commit is the result of one billing commit against a task.
type Commit struct {
	TaskID               string
	Percentage           decimal.Decimal // billed by this commit
	Amount               decimal.Decimal // billed by this commit, currency precision
	CumulativePercentage decimal.Decimal // task state after the commit
	CumulativeAmount     decimal.Decimal
}

// Service updates task billing state.
type Service struct {
	store *store.Store
}

// NewService creates a ledger Service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// commitAttempts bounds the re-read loop when the conditional update
// loses a race. Remaining budget can shrink between read and write, so
// one retry re-clamps; more than a couple means something is wrong.
const commitAttempts = 3

// CommitBilling bills a slice of a task's budget and returns the new
// cumulative state.
//
// Milestone and fixed-fee strategies always bill everything left.
// Percentage billing clamps the requested percentage to what remains, so
// a request of 150% against a task with 30% left bills exactly 30%.
// A task with nothing left fails with FullyBilledError.
//
// The cumulative update is a compare-and-swap: the storage-level
// condition (cumulative + delta <= 100) is the authority, not the read
// that computed the delta.
func (s *Service) CommitBilling(ctx context.Context, taskID string, requested decimal.Decimal, strategy model.CalculatorType) (Commit, error) {
	for attempt := 0; attempt < commitAttempts; attempt++ {
		task, err := s.store.GetTask(ctx, taskID)
		if err != nil {
			return Commit{}, err
		}

		remaining := task.RemainingPercentage()
		if remaining.LessThanOrEqual(decimal.Zero) {
			return Commit{}, FullyBilledError{TaskID: taskID}
		}

		var pct decimal.Decimal
		switch strategy {
		case model.CalcMilestone, model.CalcFixedFee:
			pct = remaining
		case model.CalcPercentage:
			if requested.LessThanOrEqual(decimal.Zero) {
				return Commit{}, fmt.Errorf("requested percentage must be positive, got %s", requested)
			}
			pct = decimal.Min(requested, remaining)
		default:
			return Commit{}, fmt.Errorf("strategy %q does not bill against the task ledger", strategy)
		}

		amount := s.amountFor(task, pct, remaining)

		ok, err := s.store.ApplyBillingDelta(ctx, taskID, pct, amount)
		if err != nil {
			return Commit{}, err
		}
		if !ok {
			// Lost a race with another biller; re-read and re-clamp.
			continue
		}

		updated, err := s.store.GetTask(ctx, taskID)
		if err != nil {
			return Commit{}, err
		}
		return Commit{
			TaskID:               taskID,
			Percentage:           pct,
			Amount:               amount,
			CumulativePercentage: updated.BilledPercentage,
			CumulativeAmount:     updated.BilledAmount,
		}, nil
	}
	return Commit{}, FullyBilledError{TaskID: taskID}
}

// amountFor converts a percentage into a currency amount. Filling the
// task to 100% bills the exact remaining budget instead of the rounded
// product, so cumulative amount lands on the total budget without drift.
func (s *Service) amountFor(task model.Task, pct, remaining decimal.Decimal) decimal.Decimal {
	if pct.Equal(remaining) {
		return task.RemainingBudget()
	}
	return task.TotalBudget.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}

// ReverseBilling backs a prior commit out of the task ledger, used when
// the invoice that produced it is deleted. The inverse conditional update
// refuses to drive the cumulative below zero.
func (s *Service) ReverseBilling(ctx context.Context, taskID string, pct, amount decimal.Decimal) error {
	ok, err := s.store.ReverseBillingDelta(ctx, taskID, pct, amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reversing %s%% on task %s would drive the ledger negative", pct, taskID)
	}
	return nil
}

// WithStore returns a copy of the service bound to a different store,
// typically a transaction-scoped one.
func (s *Service) WithStore(st *store.Store) *Service {
	return &Service{store: st}
}
