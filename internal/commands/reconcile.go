package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybooks/tally/internal/audit"
	"github.com/tallybooks/tally/internal/logging"
	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/reconcile"
)

func newReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match bank transactions against platform records",
	}
	cmd.AddCommand(newReconcileListCommand())
	cmd.AddCommand(newReconcileMatchCommand())
	cmd.AddCommand(newReconcileUnmatchCommand())
	return cmd
}

func reconcileService() (*reconcile.Service, error) {
	_, st, err := openStore()
	if err != nil {
		return nil, err
	}
	return reconcile.NewService(st, logging.WithComponent("reconcile")), nil
}

func newReconcileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show unmatched bank and platform transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := reconcileService()
			if err != nil {
				return err
			}

			overview, err := svc.BuildOverview(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Unmatched bank transactions (%d):\n", len(overview.UnmatchedBank))
			for _, txn := range overview.UnmatchedBank {
				fmt.Printf("  %s %s %-6s %10s  %s\n",
					txn.ID, txn.Date.Format("2006-01-02"), txn.Type, txn.Amount.StringFixed(2), txn.Description)
			}

			fmt.Printf("Unmatched platform transactions (%d):\n", len(overview.UnmatchedPlatform))
			for _, p := range overview.UnmatchedPlatform {
				fmt.Printf("  %s %s %-7s %-6s %10s  %s\n",
					p.ID, p.Date.Format("2006-01-02"), p.SourceKind, p.Type, p.Amount.StringFixed(2), p.Description)
			}
			return nil
		},
	}
}

func newReconcileMatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "match <bank-tx-id> <invoice|expense> <reference-id>",
		Short: "Match a bank transaction to a platform transaction",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := reconcileService()
			if err != nil {
				return err
			}

			refType := model.ReferenceType(args[1])
			if err := svc.Match(cmd.Context(), args[0], args[2], refType); err != nil {
				return err
			}

			if err := audit.Append(auditDir, []audit.Entry{{
				Timestamp: time.Now(),
				Action:    "bank.match",
				EntityID:  args[0],
				Details:   fmt.Sprintf("%s %s", refType, args[2]),
			}}); err != nil {
				return err
			}

			fmt.Printf("Matched %s to %s %s\n", args[0], refType, args[2])
			return nil
		},
	}
}

func newReconcileUnmatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch <bank-tx-id>",
		Short: "Return a bank transaction to the unmatched state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := reconcileService()
			if err != nil {
				return err
			}

			if err := svc.Unmatch(cmd.Context(), args[0]); err != nil {
				return err
			}

			if err := audit.Append(auditDir, []audit.Entry{{
				Timestamp: time.Now(),
				Action:    "bank.unmatch",
				EntityID:  args[0],
			}}); err != nil {
				return err
			}

			fmt.Printf("Unmatched %s\n", args[0])
			return nil
		},
	}
}
