package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	client "tankdown/client"
	"tankdown/client/internal/app"
	"tankdown/client/internal/recorder"
)

// SpectateOptions holds flags for the spectate command.
type SpectateOptions struct {
	*RootOptions
	URL    string
	Record string
}

// NewSpectateCommand creates the spectate command.
func NewSpectateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpectateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "spectate",
		Short: "Follow a live game channel without joining",
		Long: `Open the game channel as a spectator and apply the live event stream.
The command runs until interrupted or until the channel fails.

Examples:
  tankdown spectate --url ws://localhost:8080/play --assets ./config`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd.Context(), opts.RootOptions, app.ModeSpectate, "", opts.URL, opts.Record, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "websocket address of the game channel (required)")
	_ = cmd.MarkFlagRequired("url")
	cmd.Flags().StringVar(&opts.Record, "record", "", "capture the event stream to a replay file")

	return cmd
}

// runLive boots an online runtime, starts the engine loop, and blocks
// until the context is cancelled or the runtime reports a failure.
// Playing mode additionally feeds stdin key codes through the input
// dispatcher.
func runLive(ctx context.Context, rootOpts *RootOptions, mode app.Mode, player, url, recordPath string, cmd *cobra.Command) error {
	pub, closePub, err := newPublisher(rootOpts)
	if err != nil {
		return err
	}
	defer closePub(ctx)

	var capture *recorder.Recorder
	var tap func(raw []byte)
	if recordPath != "" {
		capture = recorder.New()
		tap = capture.Note
	}

	failed := make(chan []string, 1)
	rt, err := app.Boot(ctx, app.Config{
		Mode:       mode,
		PlayerName: player,
		ChannelURL: url,
		Fetch:      dirFetch(rootOpts.Assets),
		Publisher:  pub,
		Tap:        tap,
		OnError: func(messages []string) {
			failed <- messages
		},
		OnRoster: func(players []client.Player) {
			names := make([]string, 0, len(players))
			for _, p := range players {
				names = append(names, p.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "roster: %s\n", strings.Join(names, ", "))
		},
	})
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	stop := rt.Engine.Start()
	defer stop()
	defer rt.Channel.Close()

	if capture != nil {
		defer func() {
			if err := saveCapture(capture, recordPath); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "save recording: %v\n", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "recorded %d events to %s\n", capture.Count(), recordPath)
			}
		}()
	}

	if rt.Input != nil {
		go feedInput(ctx, rt, cmd)
	}

	select {
	case <-ctx.Done():
		return nil
	case messages := <-failed:
		return fmt.Errorf("runtime failed: %s", strings.Join(messages, "; "))
	}
}

func saveCapture(capture *recorder.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := capture.Flush(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
