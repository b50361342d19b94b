package store

import (
	"context"
	"fmt"

	"github.com/tallybooks/tally/internal/model"
)

// CreateClient inserts a client.
func (s *Store) CreateClient(ctx context.Context, c *model.Client) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	return nil
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// CreateTimeEntry inserts a time entry.
func (s *Store) CreateTimeEntry(ctx context.Context, e *model.TimeEntry) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("creating time entry: %w", err)
	}
	return nil
}

// CreateExpense inserts an expense.
func (s *Store) CreateExpense(ctx context.Context, e *model.Expense) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}
	return nil
}

// BillableTimeEntries lists a project's approved, not-yet-invoiced time
// entries (the line-item pool for time-and-materials invoicing).
func (s *Store) BillableTimeEntries(ctx context.Context, projectID string) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND approved = ? AND invoice_id IS NULL", projectID, true).
		Order("date").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing billable time entries for project %s: %w", projectID, err)
	}
	return entries, nil
}

// BillableExpenses lists a project's billable, not-yet-invoiced expenses.
func (s *Store) BillableExpenses(ctx context.Context, projectID string) ([]model.Expense, error) {
	var expenses []model.Expense
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND billable = ? AND invoice_id IS NULL", projectID, true).
		Order("date").Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("listing billable expenses for project %s: %w", projectID, err)
	}
	return expenses, nil
}

// AllExpenses lists every expense (the expense side of the reconciliation
// candidate pool).
func (s *Store) AllExpenses(ctx context.Context) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := s.db.WithContext(ctx).Order("date").Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// AssignTimeEntriesToInvoice stamps invoiceID on the given time entries.
func (s *Store) AssignTimeEntriesToInvoice(ctx context.Context, ids []string, invoiceID string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&model.TimeEntry{}).
		Where("id IN ?", ids).Update("invoice_id", invoiceID).Error
	if err != nil {
		return fmt.Errorf("assigning time entries to invoice %s: %w", invoiceID, err)
	}
	return nil
}

// AssignExpensesToInvoice stamps invoiceID on the given expenses.
func (s *Store) AssignExpensesToInvoice(ctx context.Context, ids []string, invoiceID string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&model.Expense{}).
		Where("id IN ?", ids).Update("invoice_id", invoiceID).Error
	if err != nil {
		return fmt.Errorf("assigning expenses to invoice %s: %w", invoiceID, err)
	}
	return nil
}

// ClearInvoiceBackrefs nulls the invoice_id back-reference on any time
// entries and expenses billed by the invoice, so deleting it leaves no
// orphaned references.
func (s *Store) ClearInvoiceBackrefs(ctx context.Context, invoiceID string) error {
	if err := s.db.WithContext(ctx).Model(&model.TimeEntry{}).
		Where("invoice_id = ?", invoiceID).Update("invoice_id", nil).Error; err != nil {
		return fmt.Errorf("clearing time entry refs for invoice %s: %w", invoiceID, err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Expense{}).
		Where("invoice_id = ?", invoiceID).Update("invoice_id", nil).Error; err != nil {
		return fmt.Errorf("clearing expense refs for invoice %s: %w", invoiceID, err)
	}
	return nil
}
