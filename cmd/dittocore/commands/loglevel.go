package commands

import (
	"fmt"
	"strings"

	"github.com/marmos91/dittocore/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var logLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

var logLevelCmd = &cobra.Command{
	Use:   "log-level",
	Short: "Show or change the server's log level",
	Long: `Show the running server's log level, or change it without a restart.

Examples:
  # Show the current level
  dittocore log-level

  # Switch to debug logging
  dittocore log-level set debug

  # Pick a level interactively
  dittocore log-level set`,
	Args: cobra.NoArgs,
	RunE: runLogLevelGet,
}

var logLevelSetCmd = &cobra.Command{
	Use:       "set [LEVEL]",
	Short:     "Change the server's log level",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"debug", "info", "warn", "error"},
	RunE:      runLogLevelSet,
}

func init() {
	logLevelCmd.AddCommand(logLevelSetCmd)
}

func runLogLevelGet(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	level, err := client.LogLevel(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get log level: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), level)
	return nil
}

func runLogLevelSet(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var level string
	if len(args) == 1 {
		level = args[0]
	} else {
		current, err := client.LogLevel(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get log level: %w", err)
		}
		level, err = prompt.SelectString("Log level", logLevels, current)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	}

	applied, err := client.SetLogLevel(cmd.Context(), strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Log level set to %s\n", applied)
	return nil
}
