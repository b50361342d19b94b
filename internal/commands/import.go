package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybooks/tally/internal/audit"
	"github.com/tallybooks/tally/internal/logging"
	"github.com/tallybooks/tally/internal/reconcile"
)

func newImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a bank statement CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			svc := reconcile.NewService(st, logging.WithComponent("reconcile"))
			count, err := svc.ImportStatement(cmd.Context(), f, format, reconcile.DefaultRegistry())
			if err != nil {
				return err
			}

			if err := audit.Append(auditDir, []audit.Entry{{
				Timestamp: time.Now(),
				Action:    "bank.import",
				EntityID:  args[0],
				Details:   fmt.Sprintf("%d transactions", count),
			}}); err != nil {
				return err
			}

			fmt.Printf("Imported %d bank transactions from %s\n", count, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "statement format")

	return cmd
}
