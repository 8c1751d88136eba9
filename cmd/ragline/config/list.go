package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every configuration key",
		Long:  "Print every supported key with its effective value from config.toml and the defaults.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := open(cmd)
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()
			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}

			w := cmd.OutOrStdout()
			printTarget(w, cfger)

			section := ""
			for _, key := range keys {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}

				if s, _, _ := strings.Cut(key, "."); s != section {
					if section != "" {
						fmt.Fprintln(w)
					}
					section = s
				}

				fmt.Fprintf(w, "  %-*s  %s\n", width, key, display(key, value))
			}
			fmt.Fprintln(w)

			return nil
		},
	}
}
