package main

import (
	"github.com/agenticwork/maestro/internal/cli"
	"github.com/agenticwork/maestro/internal/commands/pricing"
	"github.com/agenticwork/maestro/internal/commands/route"
	"github.com/agenticwork/maestro/internal/commands/run"
	versioncmd "github.com/agenticwork/maestro/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(route.NewCommand())
	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(pricing.NewCommand())
	rootCmd.AddCommand(versioncmd.NewCommand())

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
