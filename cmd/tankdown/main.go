package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tankdown/client/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tankdown:", err)
		stop()
		os.Exit(1)
	}
}
