package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tankdown/client/internal/app"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	File string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Drive the engine from a recorded event file",
		Long: `Load a recorded event file and apply every event in timestamp order,
fast-forwarding the simulation clock between events. The run stops at the
end of the file, at a GameOvr event, or at the first malformed event.

Examples:
  tankdown replay --assets ./config
  tankdown replay --assets ./config --file match-7.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", app.DefaultReplayName, "recorded event file, relative to the assets directory")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	pub, closePub, err := newPublisher(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closePub(ctx)

	var failure []string
	rt, err := app.Boot(ctx, app.Config{
		Mode:       app.ModeReplay,
		Fetch:      dirFetch(opts.Assets),
		ReplayName: opts.File,
		Publisher:  pub,
		OnError: func(messages []string) {
			failure = messages
		},
	})
	if err != nil {
		return fmt.Errorf("boot replay: %w", err)
	}

	engine := rt.Engine
	for {
		next, ok := engine.NextEventTime()
		if !ok || engine.Halted() {
			break
		}
		engine.Advance(next - engine.Now())
		if done, _ := engine.Finished(); done {
			break
		}
	}

	if engine.Halted() {
		return fmt.Errorf("replay halted: %v", failure)
	}

	snapshot := engine.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "replayed to t=%.0fms: map %q, %d elements, %d players\n",
		snapshot.Now, snapshot.MapName, len(snapshot.Elements), len(snapshot.Players))
	if done, winner := engine.Finished(); done {
		if winner == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "game over")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "game over: %s wins\n", winner)
		}
	}
	return nil
}
