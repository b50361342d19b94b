package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallybooks/tally/internal/buildinfo"
	"github.com/tallybooks/tally/internal/config"
	"github.com/tallybooks/tally/internal/store"
)

const configFile = "tally.yaml"

// auditDir is where the append-only audit trail lives.
const auditDir = "logs"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Professional services billing",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newInvoiceCommand())
	rootCmd.AddCommand(newPaymentCommand())
	rootCmd.AddCommand(newReconcileCommand())

	return rootCmd
}

// openStore loads tally.yaml from the working directory and opens the
// database it points at.
func openStore() (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s (run 'tally init' first?): %w", configFile, err)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}
