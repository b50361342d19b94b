package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallybooks/tally/internal/audit"
	"github.com/tallybooks/tally/internal/invoicing"
	"github.com/tallybooks/tally/internal/ledger"
	"github.com/tallybooks/tally/internal/model"
)

func newInvoiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create, list, send and delete invoices",
	}
	cmd.AddCommand(newInvoiceCreateCommand())
	cmd.AddCommand(newInvoiceListCommand())
	cmd.AddCommand(newInvoiceSendCommand())
	cmd.AddCommand(newInvoiceDeleteCommand())
	return cmd
}

func newInvoiceCreateCommand() *cobra.Command {
	var (
		clientID string
		project  string
		strategy string
		tasks    []string
		lines    []string
		tax      string
		dueDays  int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an invoice with a billing strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore()
			if err != nil {
				return err
			}

			taxAmount, err := decimal.NewFromString(tax)
			if err != nil {
				return fmt.Errorf("parsing tax amount %q: %w", tax, err)
			}

			params := invoicing.CreateParams{
				ClientID:  clientID,
				Strategy:  model.CalculatorType(strategy),
				TaxAmount: taxAmount,
				IssueDate: time.Now(),
			}
			if project != "" {
				params.ProjectID = &project
			}
			if dueDays == 0 {
				dueDays = cfg.Billing.DefaultNetDays
			}
			due := time.Now().AddDate(0, 0, dueDays)
			params.DueDate = &due

			params.TaskSelections, err = parseTaskSelections(tasks)
			if err != nil {
				return err
			}
			params.ManualLines, err = parseManualLines(lines)
			if err != nil {
				return err
			}

			svc := invoicing.NewService(st, ledger.NewService(st))
			inv, err := svc.Create(cmd.Context(), params)
			if err != nil {
				return err
			}

			if err := audit.Append(auditDir, []audit.Entry{{
				Timestamp: time.Now(),
				Action:    "invoice.create",
				EntityID:  inv.ID,
				Details:   fmt.Sprintf("%s %s total %s", inv.Number, inv.CalculatorType, inv.Total.StringFixed(2)),
			}}); err != nil {
				return err
			}

			fmt.Printf("Created %s: subtotal %s, total %s (%d line items)\n",
				inv.Number, inv.Subtotal.StringFixed(2), inv.Total.StringFixed(2), len(inv.LineItems))
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "client ID (required)")
	_ = cmd.MarkFlagRequired("client")
	cmd.Flags().StringVar(&project, "project", "", "project ID")
	cmd.Flags().StringVar(&strategy, "strategy", "manual", "billing strategy: manual, milestone, percentage, time_materials, fixed_fee")
	cmd.Flags().StringArrayVar(&tasks, "task", nil, "task selection, taskID[:percentage] (repeatable)")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "manual line, description:quantity:unitPrice (repeatable)")
	cmd.Flags().StringVar(&tax, "tax", "0", "tax amount")
	cmd.Flags().IntVar(&dueDays, "due-days", 0, "days until due (default from config)")

	return cmd
}

func newInvoiceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}

			invoices, err := st.AllInvoices(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			for _, inv := range invoices {
				fmt.Printf("%-14s %-10s total %12s paid %12s open %12s\n",
					inv.Number, inv.EffectiveStatus(now),
					inv.Total.StringFixed(2), inv.AmountPaid.StringFixed(2), inv.OpenBalance().StringFixed(2))
			}
			return nil
		},
	}
}

func newInvoiceSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <invoice-id>",
		Short: "Mark a draft invoice as sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}

			svc := invoicing.NewService(st, ledger.NewService(st))
			if err := svc.MarkSent(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Printf("Invoice %s marked sent\n", args[0])
			return nil
		},
	}
}

func newInvoiceDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <invoice-id>",
		Short: "Delete an invoice, reversing its task billing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}

			svc := invoicing.NewService(st, ledger.NewService(st))
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			if err := audit.Append(auditDir, []audit.Entry{{
				Timestamp: time.Now(),
				Action:    "invoice.delete",
				EntityID:  args[0],
			}}); err != nil {
				return err
			}

			fmt.Printf("Deleted invoice %s\n", args[0])
			return nil
		},
	}
}

// parseTaskSelections parses repeatable "taskID[:percentage]" flags.
func parseTaskSelections(specs []string) ([]invoicing.TaskSelection, error) {
	var selections []invoicing.TaskSelection
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 2)
		sel := invoicing.TaskSelection{TaskID: parts[0]}
		if len(parts) == 2 {
			pct, err := decimal.NewFromString(parts[1])
			if err != nil {
				return nil, fmt.Errorf("parsing task percentage %q: %w", spec, err)
			}
			sel.Percentage = pct
		}
		selections = append(selections, sel)
	}
	return selections, nil
}

// parseManualLines parses repeatable "description:quantity:unitPrice" flags.
func parseManualLines(specs []string) ([]invoicing.ManualLine, error) {
	var lines []invoicing.ManualLine
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("manual line %q must be description:quantity:unitPrice", spec)
		}
		qty, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parsing quantity in %q: %w", spec, err)
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing unit price in %q: %w", spec, err)
		}
		lines = append(lines, invoicing.ManualLine{Description: parts[0], Quantity: qty, UnitPrice: price})
	}
	return lines, nil
}
