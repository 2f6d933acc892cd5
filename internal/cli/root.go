// Package cli wires the tankdown commands: replay drives the engine
// from a recorded event file, spectate and play attach to a live
// channel.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Log     string // "console" | "json" | "off"
	Assets  string // directory resources are fetched from
}

// ValidLogModes defines the allowed diagnostic outputs.
var ValidLogModes = []string{"console", "json", "off"}

// NewRootCommand creates the root command for the tankdown CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tankdown",
		Short: "Tankdown client runtime",
		Long:  "Headless client runtime for the tankdown arena: replays recorded event files or follows a live game channel.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidLogMode(opts.Log) {
				return fmt.Errorf("invalid log mode %q: must be one of %v", opts.Log, ValidLogModes)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "include debug diagnostics")
	cmd.PersistentFlags().StringVar(&opts.Log, "log", "console", "diagnostic output (console|json|off)")
	cmd.PersistentFlags().StringVar(&opts.Assets, "assets", ".", "directory holding the catalog and binding files")

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewSpectateCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))

	return cmd
}

func isValidLogMode(mode string) bool {
	for _, m := range ValidLogModes {
		if m == mode {
			return true
		}
	}
	return false
}
