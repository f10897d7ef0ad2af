package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:          "organizer-cli",
	Short:        "A CLI client for the file organizer service",
	Long:         `A command-line interface for uploading files, asking for organization suggestions and applying them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "organizer-cli: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	def := os.Getenv("ORGANIZER_URL")
	if def == "" {
		def = "http://localhost:5000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", def, "base URL of the organizer service")
}

func newClientFromFlags() *client {
	return newClient(serverURL)
}
