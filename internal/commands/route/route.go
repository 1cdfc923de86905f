// Package route implements the `maestro route` command: it runs the
// routing analyzer over a prompt and prints the decision without invoking
// any provider.
package route

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenticwork/maestro/internal/cli"
	"github.com/agenticwork/maestro/pkg/llm"
	"github.com/agenticwork/maestro/pkg/orchestration"
)

// NewCommand creates the route command.
func NewCommand() *cobra.Command {
	var (
		slider    float64
		toolNames []string
	)

	cmd := &cobra.Command{
		Use:   "route <prompt>",
		Short: "Show the routing decision for a prompt",
		Long: `Analyze a prompt with the multi-model routing analyzer and print the
resulting decision: whether multi-model routing engages, the complexity
classification, and the planned role sequence with cost estimates.

No provider is contacted; this is a dry run of the routing stage only.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cli.ConfigPath())
			if err != nil {
				return err
			}

			var sliderPos *float64
			if cmd.Flags().Changed("slider") {
				sliderPos = &slider
			}

			tools := make([]llm.Tool, 0, len(toolNames))
			for _, name := range toolNames {
				tools = append(tools, llm.Tool{Name: name})
			}

			prompt := strings.Join(args, " ")
			messages := []llm.Message{{Role: llm.MessageRoleUser, Content: prompt}}

			analyzer := orchestration.NewAnalyzer()
			decision := analyzer.AnalyzeRequest(messages, tools, sliderPos, cfg)

			if cli.JSONOutput() {
				data, err := json.MarshalIndent(decision, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal routing decision: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			printDecision(cmd, decision)
			return nil
		},
	}

	cmd.Flags().Float64Var(&slider, "slider", 0, "Cost/quality slider position (0.0-1.0)")
	cmd.Flags().StringSliceVar(&toolNames, "tool", nil, "Available tool name (repeatable)")

	return cmd
}

func printDecision(cmd *cobra.Command, decision orchestration.RoutingDecision) {
	cmd.Printf("Multi-model: %v\n", decision.UseMultiModel)
	cmd.Printf("Reason:      %s\n", decision.Reason)
	cmd.Printf("Complexity:  %s (words=%d, sentences=%d)\n",
		decision.Analysis.Complexity,
		decision.Analysis.WordCount,
		decision.Analysis.SentenceCount,
	)

	if decision.Plan != nil {
		roles := make([]string, len(decision.Plan.Roles))
		for i, role := range decision.Plan.Roles {
			roles[i] = role.String()
		}
		cmd.Printf("Plan:        %s\n", strings.Join(roles, " -> "))
		cmd.Printf("Estimated:   $%.4f, %s\n",
			decision.Plan.EstimatedCostUSD,
			decision.Plan.EstimatedDuration,
		)
	}
	if decision.SingleModel != nil {
		cmd.Printf("Model:       %s\n", decision.SingleModel.Model)
	}
}
