// Package main provides the confab server entry point.
// confab is a meeting assistant backend: it ingests audio over HTTP and
// websocket, coordinates transcription and analysis, and fans results
// out to connected clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/confab/cmd"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "confab",
	Short: "Confab meeting assistant server",
	Long: `confab is the backend for the Confab meeting assistant.

It accepts live audio over websocket and file uploads over HTTP,
transcribes them, runs summary, action-item, and sentiment analysis,
and streams results back to clients as they land.

COMMON WORKFLOWS:
  Run the server:   confab serve
  Check a build:    confab version
  Manage config:    confab config init  →  confab config show

DISCOVERY:
  confab <command> --help   Subcommands, flags, and examples for any command`,
}

func init() {
	rootCmd.AddCommand(cmd.NewServeCommand(nil))
	rootCmd.AddCommand(cmd.NewVersionCommand())
	rootCmd.AddCommand(cmd.NewConfigCommand())
}

func main() {
	// Signal handling lives in the serve command; this context only covers
	// commands that finish on their own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
