package invoicing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tally/internal/ledger"
	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/store"
)

// BuildResult is what a calculator produces: line items, their subtotal,
// and the IDs of any time entries / expenses consumed, which the composer
// stamps with the new invoice ID.
type BuildResult struct {
	Lines        []model.InvoiceLineItem
	Subtotal     decimal.Decimal
	TimeEntryIDs []string
	ExpenseIDs   []string
}

// Calculator turns strategy-specific inputs into invoice line items. Task
// ledger commits happen inside Build, on the transaction-scoped store the
// composer passes in, so a failed build rolls everything back.
type Calculator interface {
	Type() model.CalculatorType
	Build(ctx context.Context, tx *store.Store, led *ledger.Service, params CreateParams) (BuildResult, error)
}

// Registry holds calculators by type.
type Registry struct {
	calculators map[model.CalculatorType]Calculator
}

// NewRegistry creates an empty calculator registry.
func NewRegistry() *Registry {
	return &Registry{calculators: make(map[model.CalculatorType]Calculator)}
}

// Register adds a calculator. Panics on duplicate type.
func (r *Registry) Register(c Calculator) {
	if _, ok := r.calculators[c.Type()]; ok {
		panic("duplicate calculator type: " + string(c.Type()))
	}
	r.calculators[c.Type()] = c
}

// Get returns the calculator for a strategy, or nil.
func (r *Registry) Get(t model.CalculatorType) Calculator {
	return r.calculators[t]
}

// DefaultRegistry returns a registry with all built-in calculators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&manualCalculator{})
	r.Register(&taskCalculator{strategy: model.CalcMilestone})
	r.Register(&taskCalculator{strategy: model.CalcPercentage})
	r.Register(&timeMaterialsCalculator{})
	r.Register(&fixedFeeCalculator{})
	return r
}

// manualCalculator builds free-text line items; no ledger interaction.
type manualCalculator struct{}

func (c *manualCalculator) Type() model.CalculatorType { return model.CalcManual }

func (c *manualCalculator) Build(_ context.Context, _ *store.Store, _ *ledger.Service, params CreateParams) (BuildResult, error) {
	var res BuildResult
	for _, line := range params.ManualLines {
		amount := line.Quantity.Mul(line.UnitPrice).Round(2)
		res.Lines = append(res.Lines, model.InvoiceLineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      amount,
		})
		res.Subtotal = res.Subtotal.Add(amount)
	}
	return res, nil
}

// taskCalculator builds one line per selected task, committing the billed
// percentage to the task ledger. Covers milestone (bill all remaining) and
// percentage (bill the requested slice, clamped to remaining).
type taskCalculator struct {
	strategy model.CalculatorType
}

func (c *taskCalculator) Type() model.CalculatorType { return c.strategy }

func (c *taskCalculator) Build(ctx context.Context, tx *store.Store, led *ledger.Service, params CreateParams) (BuildResult, error) {
	var res BuildResult
	hundred := decimal.NewFromInt(100)
	for _, sel := range params.TaskSelections {
		task, err := tx.GetTask(ctx, sel.TaskID)
		if err != nil {
			return BuildResult{}, err
		}

		commit, err := led.CommitBilling(ctx, sel.TaskID, sel.Percentage, c.strategy)
		if err != nil {
			return BuildResult{}, err
		}

		taskID := sel.TaskID
		res.Lines = append(res.Lines, model.InvoiceLineItem{
			TaskID:           &taskID,
			Description:      fmt.Sprintf("%s (%s%% of budget)", task.Name, commit.Percentage.StringFixed(0)),
			Quantity:         task.Quantity.Mul(commit.Percentage).Div(hundred).Round(4),
			UnitPrice:        task.UnitPrice(),
			Amount:           commit.Amount,
			BilledPercentage: commit.Percentage,
		})
		res.Subtotal = res.Subtotal.Add(commit.Amount)
	}
	return res, nil
}

// timeMaterialsCalculator draws line items from the project's approved,
// not-yet-invoiced time entries and billable expenses. The billing unit is
// the time entry, not the task, so the task ledger is untouched.
type timeMaterialsCalculator struct{}

func (c *timeMaterialsCalculator) Type() model.CalculatorType { return model.CalcTimeMaterials }

func (c *timeMaterialsCalculator) Build(ctx context.Context, tx *store.Store, _ *ledger.Service, params CreateParams) (BuildResult, error) {
	var res BuildResult

	entries, err := tx.BillableTimeEntries(ctx, *params.ProjectID)
	if err != nil {
		return BuildResult{}, err
	}
	for _, e := range entries {
		amount := e.Amount()
		res.Lines = append(res.Lines, model.InvoiceLineItem{
			TaskID:      e.TaskID,
			Description: e.Description,
			Quantity:    e.Hours,
			UnitPrice:   e.HourlyRate,
			Amount:      amount,
		})
		res.Subtotal = res.Subtotal.Add(amount)
		res.TimeEntryIDs = append(res.TimeEntryIDs, e.ID)
	}

	expenses, err := tx.BillableExpenses(ctx, *params.ProjectID)
	if err != nil {
		return BuildResult{}, err
	}
	for _, e := range expenses {
		res.Lines = append(res.Lines, model.InvoiceLineItem{
			Description: e.Description,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   e.Amount,
			Amount:      e.Amount,
		})
		res.Subtotal = res.Subtotal.Add(e.Amount)
		res.ExpenseIDs = append(res.ExpenseIDs, e.ID)
	}

	return res, nil
}

// fixedFeeCalculator bills each selected task's full remaining budget as a
// single-quantity line. It consumes the ledger like milestone billing; the
// percentage snapshot is kept on the line so deletion can reverse it.
type fixedFeeCalculator struct{}

func (c *fixedFeeCalculator) Type() model.CalculatorType { return model.CalcFixedFee }

func (c *fixedFeeCalculator) Build(ctx context.Context, tx *store.Store, led *ledger.Service, params CreateParams) (BuildResult, error) {
	var res BuildResult
	for _, sel := range params.TaskSelections {
		task, err := tx.GetTask(ctx, sel.TaskID)
		if err != nil {
			return BuildResult{}, err
		}

		commit, err := led.CommitBilling(ctx, sel.TaskID, decimal.Zero, model.CalcFixedFee)
		if err != nil {
			return BuildResult{}, err
		}

		taskID := sel.TaskID
		res.Lines = append(res.Lines, model.InvoiceLineItem{
			TaskID:           &taskID,
			Description:      task.Name,
			Quantity:         decimal.NewFromInt(1),
			UnitPrice:        commit.Amount,
			Amount:           commit.Amount,
			BilledPercentage: commit.Percentage,
		})
		res.Subtotal = res.Subtotal.Add(commit.Amount)
	}
	return res, nil
}
