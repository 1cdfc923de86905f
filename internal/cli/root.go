// Package cli holds the root command and the plumbing shared by the
// maestro subcommands: global flags, version metadata, config loading,
// and exit-code handling.
package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
)

var (
	versionMu sync.RWMutex
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersion sets the version information (called from main).
func SetVersion(v, c, b string) {
	versionMu.Lock()
	defer versionMu.Unlock()
	version, commit, buildDate = v, c, b
}

// GetVersion returns version information.
func GetVersion() (string, string, string) {
	versionMu.RLock()
	defer versionMu.RUnlock()
	return version, commit, buildDate
}

// Global flag values, registered on the root command.
var (
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

// JSONOutput reports whether --json was passed.
func JSONOutput() bool { return flagJSON }

// Verbose reports whether --verbose was passed.
func Verbose() bool { return flagVerbose }

// ConfigPath returns the --config value, which may be empty.
func ConfigPath() string { return flagConfig }

// NewRootCommand creates the root Cobra command for maestro.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maestro",
		Short: "Maestro - multi-model orchestration",
		Long: `Maestro routes a single request across multiple LLM roles: a reasoning
model analyzes the task, a tool model gathers information, and a synthesis
model writes the final answer, with automatic fallback on provider failure.

Run 'maestro route "your prompt"' to see the routing decision for a prompt.
Run 'maestro run "your prompt"' to execute a full orchestration.`,
		SilenceUsage:  true,
		SilenceErrors: true, // errors are handled in main for proper exit codes
	}

	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to routing config file (YAML)")

	return cmd
}

// HandleExitError prints the error and exits non-zero.
func HandleExitError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
