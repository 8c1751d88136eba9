// Package raglinecmder
package raglinecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/ragline/cmd/ragline/ask"
	configcmder "github.com/papercomputeco/ragline/cmd/ragline/config"
	historycmder "github.com/papercomputeco/ragline/cmd/ragline/history"
	servecmder "github.com/papercomputeco/ragline/cmd/ragline/serve"
	versioncmder "github.com/papercomputeco/ragline/cmd/version"
)

const raglineLongDesc string = `ragline answers questions from your documents.

Questions are embedded, matched against stored document chunks, and answered by
a language model with the best matching chunks and the conversation so far as
context.

Run the server and ask questions using:
  ragline serve                 Run the API server
  ragline ask "<question>"      Ask a question, continuing the active conversation
  ragline history <id>          Show a conversation`

const raglineShortDesc string = "ragline - retrieval-augmented question answering"

func NewRaglineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ragline",
		Short:         raglineShortDesc,
		Long:          raglineLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .ragline/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
