package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/cliui"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set one key in config.toml, creating the file if needed. Numeric keys
(top_k, dimensions, max_tokens) must be integers and *.timeout / history.ttl
must be Go durations such as 20s or 720h.

Examples:
  ragline config set generation.provider anthropic
  ragline config set embedding.dimensions 768
  ragline config set history.ttl 720h`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := checkKey(key); err != nil {
				return err
			}

			cfger, err := open(cmd)
			if err != nil {
				return err
			}

			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTarget(w, cfger)
			fmt.Fprintf(w, "  %s Set %s = %s\n\n", cliui.SuccessMark, keyLabel(key), display(key, value))
			return nil
		},
	}
}

func keyLabel(key string) string {
	return cliui.KeyStyle.Render(key)
}
