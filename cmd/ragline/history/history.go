// Package historycmder provides the history command that prints a conversation.
package historycmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/api/client"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/dotdir"
)

type historyCommander struct {
	conversationID string
	asJSON         bool

	apiTarget string
	configDir string

	out io.Writer
}

const historyLongDesc string = `Show the questions and answers of a conversation via the ragline API.

Without an id the active conversation (the one "ragline ask" continues) is shown.

Examples:
  ragline history
  ragline history 3f1c7a52-8c77-4a55-9d3e-0f4b1d2c6e10
  ragline history --json`

const historyShortDesc string = "Show a conversation"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cmder.conversationID = args[0]
			}
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", defaults.Client.APITarget, "ragline API server URL")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw JSON response")

	return cmd
}

func (c *historyCommander) run(ctx context.Context) error {
	if c.conversationID == "" {
		state, err := dotdir.NewManager().LoadConversation(c.configDir)
		if err != nil {
			return err
		}
		if state == nil {
			return errors.New("no active conversation: pass a conversation id")
		}
		c.conversationID = state.ConversationID
	}

	hist, err := client.New(c.apiTarget, nil).History(ctx, c.conversationID)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(hist)
	}

	fmt.Fprintf(c.out, "\n  %s %s\n",
		cliui.KeyStyle.Render("Conversation:"),
		cliui.IDStyle.Render(hist.ConversationID),
	)

	if len(hist.Turns) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No turns yet."))
		return nil
	}

	for i, t := range hist.Turns {
		fmt.Fprintf(c.out, "\n  %s %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.DimStyle.Render(t.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		)
		fmt.Fprintf(c.out, "  %s %s\n", cliui.HeaderStyle.Render("Q:"), t.Question)
		fmt.Fprintf(c.out, "  %s %s\n", cliui.HeaderStyle.Render("A:"), t.Answer)
	}
	fmt.Fprintln(c.out)

	return nil
}
