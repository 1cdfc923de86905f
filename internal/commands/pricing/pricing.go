// Package pricing implements the `maestro pricing` command.
package pricing

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agenticwork/maestro/internal/cli"
	llmpricing "github.com/agenticwork/maestro/pkg/llm/pricing"
)

// NewCommand creates the pricing command.
func NewCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "List model pricing",
		Long: `List the per-token pricing the engine uses for cost estimates and
per-role cost breakdowns. User overrides from the pricing config file are
merged over the built-in table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := llmpricing.NewManager()
			models := mgr.ListModels(provider)

			if cli.JSONOutput() {
				data, err := json.MarshalIndent(models, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal pricing: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT $/M\tOUTPUT $/M")
			for _, m := range models {
				if m.IsSubscription {
					fmt.Fprintf(w, "%s\t%s\tsubscription\tsubscription\n", m.Provider, m.Model)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\n",
					m.Provider, m.Model, m.InputPricePerMillion, m.OutputPricePerMillion)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider name")

	return cmd
}
