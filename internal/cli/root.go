package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vcallrec",
	Short: "Video call recording service",
	Long: `vcallrec records a remote video-call page with a controlled browser,
then transcodes the capture and archives the result to durable storage.`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}
