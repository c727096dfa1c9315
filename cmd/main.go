// cmd is the application entry point. The serve subcommand wires every
// layer together and starts the HTTP server; demo replays the registration
// failure scenarios against a seeded engine.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eventreg",
	Short: "Event registration and ticketing service",
	Long: `eventreg keeps users, events and registrations in memory and exposes
them over a JSON API with a small HTML dashboard.

Configuration comes from EVENTREG_* environment variables; see serve --help.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	registerServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
