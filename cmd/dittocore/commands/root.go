// Package commands implements the dittocore command line.
package commands

import (
	"github.com/marmos91/dittocore/cmd/dittocore/commands/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile  string
	apiURL   string
	apiToken string
)

var rootCmd = &cobra.Command{
	Use:   "dittocore",
	Short: "dittocore - lifecycle-managed server",
	Long: `dittocore runs a server whose lifecycle (shutdown, reload in place,
in-flight request accounting) is driven by a shared state, and exposes an
admin API to inspect and control it.

Use "dittocore [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	registerFlagCompletions()
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dittocore/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "admin API base URL (default: http://localhost:<admin.port>)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "admin API bearer token (default: $"+EnvToken+", or minted from the configured secret)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logLevelCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
