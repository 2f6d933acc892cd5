package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tankdown/client/internal/app"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	URL    string
	Name   string
	Record string
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a live game channel as a player",
		Long: `Open the game channel under a player name and apply the live event
stream. Lines read from stdin are treated as key codes: each line fires
the bound action's press commands, then its release commands. The
binding table is loaded from keybinds.yaml in the assets directory.

Examples:
  tankdown play --url ws://localhost:8080/play --name ada --assets ./config`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd.Context(), opts.RootOptions, app.ModePlay, opts.Name, opts.URL, opts.Record, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "websocket address of the game channel (required)")
	_ = cmd.MarkFlagRequired("url")
	cmd.Flags().StringVar(&opts.Name, "name", "", "player name sent in the channel handshake (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.Record, "record", "", "capture the event stream to a replay file")

	return cmd
}

// feedInput reads key codes from stdin and forwards press/release
// pairs through the dispatcher until stdin closes or the context ends.
func feedInput(ctx context.Context, rt *app.Runtime, cmd *cobra.Command) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}
		if err := rt.Input.KeyDown(code); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "send command: %v\n", err)
			return
		}
		if err := rt.Input.KeyUp(code); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "send command: %v\n", err)
			return
		}
	}
}
