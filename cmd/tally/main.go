package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tallybooks/tally/internal/commands"
	"github.com/tallybooks/tally/internal/logging"
)

func main() {
	// .env is optional; it only supplies overrides like TALLY_DB_PATH.
	_ = godotenv.Load()

	if err := logging.Setup(logging.DefaultConfig()); err != nil {
		os.Exit(1)
	}

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
