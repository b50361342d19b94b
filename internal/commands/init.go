package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tallybooks/tally/internal/config"
	"github.com/tallybooks/tally/internal/store"
)

func newInitCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "company name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(dir, name string) error {
	if err := os.MkdirAll(filepath.Join(dir, auditDir), 0o755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	cfg := config.Default(name)
	cfg.Database.Path = filepath.Join(dir, cfg.Database.Path)
	if err := config.Save(filepath.Join(dir, configFile), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Create and migrate the database.
	if _, err := store.Open(cfg.Database.Path); err != nil {
		return err
	}

	fmt.Printf("Initialized tally project for %s at %s\n", name, dir)
	return nil
}
