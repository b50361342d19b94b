package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallybooks/tally/internal/audit"
	"github.com/tallybooks/tally/internal/payments"
)

func newPaymentCommand() *cobra.Command {
	var (
		clientID string
		project  string
		amount   string
		splits   []string
	)

	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Allocate an incoming payment across open invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			params := payments.Params{ClientID: clientID, Amount: amt}
			if project != "" {
				params.ProjectID = &project
			}

			svc := payments.NewService(st)

			inputs, err := parseSplits(splits)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				// No explicit splits: fall back to the auto-match proposal.
				proposal, err := svc.Propose(cmd.Context(), params)
				if err != nil {
					return err
				}
				if !proposal.AutoMatched {
					fmt.Println("No exact match; specify --invoice splits. Open invoices:")
					for _, inv := range proposal.Candidates {
						fmt.Printf("  %s %s open %s\n", inv.ID, inv.Number, inv.OpenBalance().StringFixed(2))
					}
					return fmt.Errorf("payment of %s not allocated", amt.StringFixed(2))
				}
				for _, a := range proposal.Allocations {
					inputs = append(inputs, payments.AllocationInput{InvoiceID: a.InvoiceID, Amount: a.Amount})
				}
			}

			result, err := svc.Apply(cmd.Context(), params, inputs)
			if err != nil {
				return err
			}

			entries := make([]audit.Entry, 0, len(result.Allocations))
			for _, a := range result.Allocations {
				entries = append(entries, audit.Entry{
					Timestamp: time.Now(),
					Action:    "payment.apply",
					EntityID:  a.InvoiceID,
					Details:   fmt.Sprintf("%s applied to %s", a.Amount.StringFixed(2), a.InvoiceNumber),
				})
			}
			if err := audit.Append(auditDir, entries); err != nil {
				return err
			}

			fmt.Printf("Allocated %s across %d invoice(s), %s unapplied\n",
				result.TotalAllocated.StringFixed(2), len(result.Allocations), result.Remaining.StringFixed(2))
			if result.OverAllocated {
				fmt.Println("Warning: allocations exceed the entered payment amount")
			}
			for _, id := range result.PaidInvoices {
				fmt.Printf("Invoice %s is now paid\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "client ID (required)")
	_ = cmd.MarkFlagRequired("client")
	cmd.Flags().StringVar(&project, "project", "", "restrict to a project")
	cmd.Flags().StringVar(&amount, "amount", "", "payment amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringArrayVar(&splits, "invoice", nil, "manual split, invoiceID:amount (repeatable)")

	return cmd
}

// parseSplits parses repeatable "invoiceID:amount" flags.
func parseSplits(specs []string) ([]payments.AllocationInput, error) {
	var inputs []payments.AllocationInput
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("split %q must be invoiceID:amount", spec)
		}
		amt, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parsing split amount in %q: %w", spec, err)
		}
		inputs = append(inputs, payments.AllocationInput{InvoiceID: parts[0], Amount: amt})
	}
	return inputs, nil
}
