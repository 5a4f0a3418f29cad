package streamrelay

import (
	"fmt"
	"os"

	"github.com/kralicky/streamrelay/pkg/cli/streamrelay/commands"
	"github.com/kralicky/streamrelay/pkg/logger"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
func BuildRootCmd() *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:          "streamrelay",
		Short:        "Relay HLS sources to RTMP destinations with ffmpeg.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logger.SetLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level %q: %w", logLevel, err)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(commands.BuildServeCmd())

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := BuildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
