// Package proto defines the live channel's wire conventions: a single
// identity line on open, newline-free single-line JSON event records
// inbound, and "<integer-time> <command>" lines outbound.
package proto

import (
	"fmt"
	"strconv"
	"strings"
)

// SpectatorSentinel is sent instead of a player name when the client
// joins as a spectator.
const SpectatorSentinel = "@spectator"

// Identity is the role announced in the handshake.
type Identity struct {
	name string
}

// PlayerIdentity joins as a named player.
func PlayerIdentity(name string) (Identity, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Identity{}, fmt.Errorf("player name is required")
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		return Identity{}, fmt.Errorf("player name %q contains line breaks", name)
	}
	if trimmed == SpectatorSentinel {
		return Identity{}, fmt.Errorf("player name %q is reserved", trimmed)
	}
	return Identity{name: trimmed}, nil
}

// Spectator joins without a player role; the client only watches.
func Spectator() Identity {
	return Identity{name: SpectatorSentinel}
}

// Spectating reports whether the identity is the spectator role.
func (i Identity) Spectating() bool { return i.name == SpectatorSentinel }

// Name returns the player name, or the spectator sentinel.
func (i Identity) Name() string { return i.name }

// HandshakeLine is the first message sent after the channel opens,
// before any gameplay traffic.
func (i Identity) HandshakeLine() string { return i.name }

// CommandLine renders one outbound input command stamped with the
// engine clock truncated to an integer tick. One command per message; no
// framing beyond the message boundary.
func CommandLine(tick int64, command string) string {
	return fmt.Sprintf("%d %s", tick, command)
}

// ParseCommandLine splits an outbound command line back into its parts.
func ParseCommandLine(line string) (tick int64, command string, err error) {
	timePart, commandPart, found := strings.Cut(line, " ")
	if !found || commandPart == "" {
		return 0, "", fmt.Errorf("command line %q: missing command token", line)
	}
	tick, err = strconv.ParseInt(timePart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("command line %q: bad time prefix: %w", line, err)
	}
	return tick, commandPart, nil
}
