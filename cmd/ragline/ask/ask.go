// Package askcmder provides the ask command that questions a running ragline
// API server.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/ragline/api"
	"github.com/papercomputeco/ragline/api/client"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/dotdir"
	"github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/utils"
	"github.com/papercomputeco/ragline/pkg/vector"
)

type askCommander struct {
	question       string
	conversationID string
	newChat        bool
	noStream       bool
	markdown       bool
	quiet          bool

	apiTarget string
	configDir string

	out    io.Writer
	debug  bool
	logger *slog.Logger
}

const askLongDesc string = `Ask a question via the ragline API.

The answer is streamed as the model writes it, followed by the document chunks
it was grounded on and the conversation id. Follow-up questions continue the
active conversation, which is stored in the .ragline/ directory; pass
--conversation to continue a specific one or --new to start over.

Use --markdown to render the finished answer as markdown (terminal only;
implies --no-stream).

Examples:
  ragline ask "What is the refund policy?"
  ragline ask "And for digital goods?"
  ragline ask "Summarize the onboarding guide" --new --markdown
  ragline ask "What changed?" --conversation 3f1c7a52-8c77-4a55-9d3e-0f4b1d2c6e10`

const askShortDesc string = "Ask a question"

const previewLen = 80

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
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
			cmder.question = strings.Join(args, " ")
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", defaults.Client.APITarget, "ragline API server URL")
	cmd.Flags().StringVarP(&cmder.conversationID, "conversation", "c", "", "Conversation id to continue")
	cmd.Flags().BoolVarP(&cmder.newChat, "new", "n", false, "Start a new conversation")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Wait for the full answer instead of streaming it")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the answer as markdown")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only the answer")

	return cmd
}

func (c *askCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	ddm := dotdir.NewManager()

	conversationID := c.conversationID
	if conversationID == "" && !c.newChat {
		state, err := ddm.LoadConversation(c.configDir)
		if err != nil {
			return err
		}
		if state != nil {
			conversationID = state.ConversationID
		}
	}

	c.logger.Debug("asking question",
		"api_target", c.apiTarget,
		"conversation_id", conversationID,
	)

	req := api.QueryRequest{Question: c.question, ConversationID: conversationID}
	apiClient := client.New(c.apiTarget, nil)

	markdown := c.markdown && isTerminal(os.Stdout)

	var (
		sources  []vector.Result
		resolved string
	)
	if c.noStream || markdown {
		var resp *query.Response
		err := cliui.Step(os.Stderr, "Thinking", func() error {
			var err error
			resp, err = apiClient.Query(ctx, req)
			return err
		})
		if err != nil {
			return err
		}
		sources, resolved = resp.Sources, resp.ConversationID.String()

		if markdown {
			width, _, _ := term.GetSize(int(os.Stdout.Fd()))
			rendered, err := cliui.RenderMarkdown(resp.Answer, min(width, 100))
			if err != nil {
				c.logger.Debug("markdown rendering failed", "error", err)
			}
			fmt.Fprint(c.out, rendered)
		} else {
			fmt.Fprintln(c.out, resp.Answer)
		}
	} else {
		result, err := apiClient.QueryStream(ctx, req, func(tok string) {
			fmt.Fprint(c.out, tok)
		})
		fmt.Fprintln(c.out)
		if err != nil {
			return err
		}
		sources, resolved = result.Sources, result.ConversationID
	}

	if resolved != "" {
		if err := ddm.SaveConversation(resolved, c.configDir); err != nil {
			c.logger.Warn("could not save active conversation", "error", err)
		}
	}

	if c.quiet {
		return nil
	}

	c.printSources(sources)
	fmt.Fprintf(c.out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Conversation:"),
		cliui.IDStyle.Render(resolved),
	)

	return nil
}

func (c *askCommander) printSources(sources []vector.Result) {
	if len(sources) == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n%s\n", cliui.HeaderStyle.Render("Sources"))
	for i, src := range sources {
		fmt.Fprintf(c.out, "  %s %s %s\n      %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.IDStyle.Render(src.ChunkID),
			cliui.ScoreStyle.Render(fmt.Sprintf("(%.3f)", src.Similarity)),
			cliui.DimStyle.Render(utils.Truncate(strings.Join(strings.Fields(src.Content), " "), previewLen)),
		)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
