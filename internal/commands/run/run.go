// Package run implements the `maestro run` command: a full orchestration
// against the providers configured in the environment.
package run

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenticwork/maestro/internal/cli"
	"github.com/agenticwork/maestro/internal/log"
	"github.com/agenticwork/maestro/pkg/llm"
	"github.com/agenticwork/maestro/pkg/llm/cost"
	"github.com/agenticwork/maestro/pkg/llm/providers"
	"github.com/agenticwork/maestro/pkg/orchestration"
)

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	var (
		systemPrompt string
		slider       float64
		showEvents   bool
		usageDB      string
	)

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a multi-model orchestration",
		Long: `Execute a prompt through the multi-model engine. Providers are taken
from the environment (ANTHROPIC_API_KEY, OPENAI_API_KEY, OLLAMA_HOST); the
routing analyzer decides whether the prompt engages multiple roles or runs
single-model.

Streamed content is printed as it arrives. A per-role cost summary is
printed at the end.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cli.ConfigPath())
			if err != nil {
				return err
			}

			registry, err := providers.NewRegistryFromEnv()
			if err != nil {
				return err
			}

			var sliderPos *float64
			if cmd.Flags().Changed("slider") {
				sliderPos = &slider
			}

			logger := log.New(log.DefaultConfig())
			if cli.Verbose() {
				logCfg := log.DefaultConfig()
				logCfg.Level = "debug"
				logger = log.New(logCfg)
			}

			store, err := newUsageStore(usageDB)
			if err != nil {
				return err
			}
			defer store.Close()

			orch := orchestration.New(registry,
				orchestration.WithLogger(logger),
				orchestration.WithUsageStore(store),
			)

			emit := streamPrinter(cmd, showEvents)

			result, err := orch.Orchestrate(cmd.Context(), orchestration.Request{
				Messages:       []llm.Message{{Role: llm.MessageRoleUser, Content: strings.Join(args, " ")}},
				SystemPrompt:   systemPrompt,
				Config:         cfg,
				SliderPosition: sliderPos,
				Emit:           emit,
			})
			if err != nil {
				return err
			}

			if cli.JSONOutput() {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal result: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			printSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt appended to each role's framing")
	cmd.Flags().Float64Var(&slider, "slider", 0, "Cost/quality slider position (0.0-1.0)")
	cmd.Flags().BoolVar(&showEvents, "events", false, "Print lifecycle events as they occur")
	cmd.Flags().StringVar(&usageDB, "usage-db", "", "SQLite file for persisting per-role usage (in-memory when unset)")

	return cmd
}

// newUsageStore opens the usage store backing --usage-db, defaulting to an
// in-memory store that lives for the length of the run.
func newUsageStore(path string) (cost.Store, error) {
	if path == "" {
		return cost.NewMemoryStore(), nil
	}
	return cost.NewSQLiteStore(path)
}

// streamPrinter prints streamed content inline and, optionally, the
// lifecycle events around it.
func streamPrinter(cmd *cobra.Command, showEvents bool) orchestration.EmitFunc {
	return func(event string, payload map[string]interface{}) {
		switch event {
		case orchestration.EventRoleStream:
			if content, ok := payload["content"].(string); ok {
				cmd.Print(content)
			}
		case orchestration.EventRoleComplete:
			cmd.Println()
		default:
			if showEvents {
				cmd.Printf("[%s] %v\n", event, payload)
			}
		}
	}
}

func printSummary(cmd *cobra.Command, result *orchestration.OrchestrationResult) {
	cmd.Println()
	cmd.Printf("Roles:    ")
	names := make([]string, len(result.RolesExecuted))
	for i, role := range result.RolesExecuted {
		names[i] = role.String()
	}
	cmd.Println(strings.Join(names, " -> "))
	cmd.Printf("Handoffs: %d\n", result.HandoffCount)
	cmd.Printf("Tokens:   %d\n", result.TotalUsage.TotalTokens)
	cmd.Printf("Cost:     $%.4f\n", result.TotalCostUSD)

	for role, entry := range result.CostBreakdown {
		cmd.Printf("  %-15s %s  %d tokens  $%.4f\n",
			role.String(), entry.Model, entry.Usage.TotalTokens, entry.CostUSD)
	}
}
