package payments

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return st
}

func newInvoice(t *testing.T, st *store.Store, number, clientID, total string, dueDays int) model.Invoice {
	t.Helper()
	issue := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var due *time.Time
	if dueDays >= 0 {
		d := issue.AddDate(0, 0, dueDays)
		due = &d
	}
	inv := model.Invoice{
		Number:         number,
		ClientID:       clientID,
		Subtotal:       dec(total),
		Total:          dec(total),
		AmountPaid:     decimal.Zero,
		Status:         model.InvoiceSent,
		CalculatorType: model.CalcManual,
		IssueDate:      issue,
		DueDate:        due,
	}
	require.NoError(t, st.CreateInvoice(context.Background(), &inv))
	return inv
}

func TestPropose_AutoMatchExactBalance(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	newInvoice(t, st, "INV-2025-001", "client-1", "800.00", 14)
	target := newInvoice(t, st, "INV-2025-002", "client-1", "1523.47", 30)

	prop, err := svc.Propose(context.Background(), Params{ClientID: "client-1", Amount: dec("1523.47")})
	require.NoError(t, err)

	require.True(t, prop.AutoMatched)
	require.Len(t, prop.Allocations, 1)
	assert.Equal(t, target.ID, prop.Allocations[0].InvoiceID)
	assert.True(t, prop.Allocations[0].Amount.Equal(dec("1523.47")))
	assert.True(t, prop.Allocations[0].BalanceAfter.IsZero())
}

func TestPropose_AutoMatchWithinTolerance(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	newInvoice(t, st, "INV-2025-001", "client-1", "500.00", 14)

	prop, err := svc.Propose(context.Background(), Params{ClientID: "client-1", Amount: dec("500.01")})
	require.NoError(t, err)
	assert.True(t, prop.AutoMatched, "one cent off is within tolerance")
}

func TestPropose_NoMatchListsCandidatesInAgingOrder(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	later := newInvoice(t, st, "INV-2025-001", "client-1", "900.00", 45)
	sooner := newInvoice(t, st, "INV-2025-002", "client-1", "400.00", 7)
	undated := newInvoice(t, st, "INV-2025-003", "client-1", "250.00", -1)

	prop, err := svc.Propose(context.Background(), Params{ClientID: "client-1", Amount: dec("1000.00")})
	require.NoError(t, err)

	assert.False(t, prop.AutoMatched)
	assert.Empty(t, prop.Allocations)
	require.Len(t, prop.Candidates, 3)
	assert.Equal(t, sooner.ID, prop.Candidates[0].ID)
	assert.Equal(t, later.ID, prop.Candidates[1].ID)
	assert.Equal(t, undated.ID, prop.Candidates[2].ID, "invoices without due date sort last")
}

func TestPropose_ExcludesPaidAndOtherClients(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()

	paid := newInvoice(t, st, "INV-2025-001", "client-1", "100.00", 14)
	require.NoError(t, st.SetInvoiceStatus(ctx, paid.ID, model.InvoicePaid))
	newInvoice(t, st, "INV-2025-002", "client-other", "100.00", 14)
	open := newInvoice(t, st, "INV-2025-003", "client-1", "100.00", 14)

	prop, err := svc.Propose(ctx, Params{ClientID: "client-1", Amount: dec("300.00")})
	require.NoError(t, err)
	require.Len(t, prop.Candidates, 1)
	assert.Equal(t, open.ID, prop.Candidates[0].ID)
}

func TestApply_SplitAcrossInvoices(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()
	first := newInvoice(t, st, "INV-2025-001", "client-1", "500.00", 7)
	second := newInvoice(t, st, "INV-2025-002", "client-1", "300.00", 14)

	res, err := svc.Apply(ctx, Params{ClientID: "client-1", Amount: dec("700.00")}, []AllocationInput{
		{InvoiceID: first.ID, Amount: dec("500.00")},
		{InvoiceID: second.ID, Amount: dec("200.00")},
	})
	require.NoError(t, err)

	assert.True(t, res.TotalAllocated.Equal(dec("700.00")))
	assert.True(t, res.Remaining.IsZero())
	assert.False(t, res.OverAllocated)
	assert.Equal(t, []string{first.ID}, res.PaidInvoices)

	reloadedFirst, err := st.GetInvoice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, reloadedFirst.Status)
	assert.True(t, reloadedFirst.OpenBalance().IsZero())

	reloadedSecond, err := st.GetInvoice(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceSent, reloadedSecond.Status)
	assert.True(t, reloadedSecond.OpenBalance().Equal(dec("100.00")), "got %s", reloadedSecond.OpenBalance())
}

func TestApply_PartialLeavesRemainder(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	inv := newInvoice(t, st, "INV-2025-001", "client-1", "500.00", 7)

	res, err := svc.Apply(context.Background(), Params{ClientID: "client-1", Amount: dec("800.00")}, []AllocationInput{
		{InvoiceID: inv.ID, Amount: dec("500.00")},
	})
	require.NoError(t, err)
	assert.True(t, res.Remaining.Equal(dec("300.00")), "got %s", res.Remaining)
	assert.False(t, res.OverAllocated)
}

func TestApply_CeilingIsHardError(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()
	small := newInvoice(t, st, "INV-2025-001", "client-1", "200.00", 7)
	other := newInvoice(t, st, "INV-2025-002", "client-1", "900.00", 14)

	_, err := svc.Apply(ctx, Params{ClientID: "client-1", Amount: dec("500.00")}, []AllocationInput{
		{InvoiceID: other.ID, Amount: dec("250.00")},
		{InvoiceID: small.ID, Amount: dec("250.00")},
	})
	var exceeds AllocationExceedsBalanceError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, small.ID, exceeds.InvoiceID)

	// The earlier split in the batch rolled back too.
	reloaded, err := st.GetInvoice(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.AmountPaid.IsZero(), "got %s", reloaded.AmountPaid)
}

func TestApply_OverAllocationIsWarningOnly(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	first := newInvoice(t, st, "INV-2025-001", "client-1", "500.00", 7)
	second := newInvoice(t, st, "INV-2025-002", "client-1", "300.00", 14)

	res, err := svc.Apply(context.Background(), Params{ClientID: "client-1", Amount: dec("600.00")}, []AllocationInput{
		{InvoiceID: first.ID, Amount: dec("500.00")},
		{InvoiceID: second.ID, Amount: dec("300.00")},
	})
	require.NoError(t, err, "allocating beyond the entered amount is allowed")
	assert.True(t, res.OverAllocated)
	assert.True(t, res.Remaining.Equal(dec("-200.00")), "got %s", res.Remaining)
}

func TestApply_ValidationFailures(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()
	inv := newInvoice(t, st, "INV-2025-001", "client-1", "500.00", 7)

	cases := []struct {
		name   string
		params Params
		inputs []AllocationInput
	}{
		{"no client", Params{Amount: dec("100")}, []AllocationInput{{InvoiceID: inv.ID, Amount: dec("100")}}},
		{"zero amount", Params{ClientID: "client-1"}, []AllocationInput{{InvoiceID: inv.ID, Amount: dec("100")}}},
		{"no allocations", Params{ClientID: "client-1", Amount: dec("100")}, nil},
		{"zero split", Params{ClientID: "client-1", Amount: dec("100")}, []AllocationInput{{InvoiceID: inv.ID, Amount: dec("0")}}},
		{"duplicate invoice", Params{ClientID: "client-1", Amount: dec("100")}, []AllocationInput{
			{InvoiceID: inv.ID, Amount: dec("50")},
			{InvoiceID: inv.ID, Amount: dec("50")},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, tc.params, tc.inputs)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestApply_WrongClientRejected(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	inv := newInvoice(t, st, "INV-2025-001", "client-other", "500.00", 7)

	_, err := svc.Apply(context.Background(), Params{ClientID: "client-1", Amount: dec("100.00")}, []AllocationInput{
		{InvoiceID: inv.ID, Amount: dec("100.00")},
	})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApply_ToleranceSettlesNearMiss(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()
	inv := newInvoice(t, st, "INV-2025-001", "client-1", "500.00", 7)

	// One cent short still settles the invoice.
	res, err := svc.Apply(ctx, Params{ClientID: "client-1", Amount: dec("499.99")}, []AllocationInput{
		{InvoiceID: inv.ID, Amount: dec("499.99")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{inv.ID}, res.PaidInvoices)

	reloaded, err := st.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, reloaded.Status)
}
