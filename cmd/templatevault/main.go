package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/systmms/templatevault/cmd/templatevault/commands"
	"github.com/systmms/templatevault/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Purge sealed credentials on SIGINT/SIGTERM.
	memguard.CatchInterrupt()

	cfg := &config.Config{}
	cmd := commands.NewRootCommand(cfg, commands.DefaultDeps(),
		fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))

	code := commands.Execute(cmd)
	memguard.Purge()
	os.Exit(code)
}
