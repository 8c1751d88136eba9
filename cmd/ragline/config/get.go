package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Long: `Print the value of one key from config.toml, after defaults are applied.

Examples:
  ragline config get generation.provider
  ragline config get retrieval.top_k`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkKey(key); err != nil {
				return err
			}

			cfger, err := open(cmd)
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTarget(w, cfger)
			fmt.Fprintf(w, "  %s  %s\n\n", keyLabel(key), display(key, value))
			return nil
		},
	}
}
