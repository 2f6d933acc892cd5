package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"tankdown/client/internal/app"
	"tankdown/client/logging"
	loggingSinks "tankdown/client/logging/sinks"
)

// newPublisher builds the diagnostic router according to the global
// flags. The returned closer flushes the router; it is a no-op when
// logging is off.
func newPublisher(opts *RootOptions) (logging.Publisher, func(ctx context.Context) error, error) {
	if opts.Log == "off" {
		return logging.NopPublisher(), func(context.Context) error { return nil }, nil
	}

	cfg := logging.DefaultConfig()
	if opts.Verbose {
		cfg.MinimumSeverity = logging.SeverityDebug
	}

	sinks := map[string]logging.Sink{}
	switch opts.Log {
	case "console":
		sinks["console"] = loggingSinks.NewConsoleSink(os.Stderr)
	case "json":
		sinks["json"] = loggingSinks.NewJSON(os.Stderr, 0)
	}

	router, err := logging.NewRouter(cfg, logging.SystemClock{}, log.Default(), sinks)
	if err != nil {
		return nil, nil, fmt.Errorf("construct logging router: %w", err)
	}
	return router, router.Close, nil
}

// dirFetch resolves logical resource names against the assets
// directory.
func dirFetch(dir string) app.Fetch {
	return func(ctx context.Context, name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.Clean(name)))
	}
}
