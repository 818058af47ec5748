package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command with all subcommands attached.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	clientFlags := &ClientFlags{}
	startFlags := &StartFlags{}
	captureFlags := &CaptureFlags{}
	runFlags := &RunFlags{}

	root := createRootCommand()
	root.PersistentFlags().StringVar(&clientFlags.APIUrl, "api-url", "http://localhost:8080/api", "daemon API base URL")
	root.PersistentFlags().DurationVar(&clientFlags.APITimeout, "api-timeout", 0, "HTTP timeout for API calls (0 picks a sensible default)")

	root.AddCommand(
		createServeCommand(globalFlags),
		createStartCommand(clientFlags, startFlags),
		createCaptureCommand(clientFlags, captureFlags),
		createStopCommand(clientFlags),
		createListCommand(clientFlags),
		createStatusCommand(clientFlags),
		createRunCommand(clientFlags, startFlags, runFlags),
		createCleanupCommand(clientFlags),
	)
	return root
}
