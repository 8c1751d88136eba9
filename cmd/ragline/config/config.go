// Package configcmder provides "ragline config", which reads and writes the
// config.toml in the .ragline/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
)

const configLongDesc string = `Manage persistent ragline configuration.

Values in config.toml sit below flags and RAGLINE_* environment variables and
above the built-in defaults. Keys use dotted section notation, for example
retrieval.provider, embedding.model or generation.timeout.

  ragline config set <key> <value>    Set a value
  ragline config get <key>            Print a value
  ragline config list                 Print every key

Credentials (*.api_key) are masked when printed.`

const configShortDesc string = "Manage persistent ragline configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// open resolves the config file for cmd, honoring the persistent
// --config-dir flag when the root command defines it.
func open(cmd *cobra.Command) (*config.Configer, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// completeKey offers config keys for the first positional argument.
func completeKey(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// display renders a value for output, masking credentials.
func display(key, value string) string {
	switch {
	case value == "":
		return cliui.DimStyle.Render("<not set>")
	case config.IsSecretKey(key):
		return cliui.DimStyle.Render(mask(value))
	default:
		return cliui.ValueStyle.Render(value)
	}
}

// mask hides all but the last four characters of a credential.
func mask(value string) string {
	const visible = 4
	if len(value) <= visible {
		return "****"
	}
	return "****" + value[len(value)-visible:]
}
