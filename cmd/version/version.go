// Package versioncmder provides the version command shared by the ragline binaries.
package versioncmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/pkg/utils"
)

// Info is the build metadata printed by the version command.
type Info struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"buildtime"`
}

func NewVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := Info{Version: utils.Version, Sha: utils.Sha, Buildtime: utils.Buildtime}
			w := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(w)
				return enc.Encode(info)
			}

			_, err := fmt.Fprintf(w, "ragline %s (%s, built %s)\n", info.Version, info.Sha, info.Buildtime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build metadata as JSON")

	return cmd
}
