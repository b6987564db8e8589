package config

import (
	"fmt"

	"github.com/marmos91/dittocore/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample configuration file",
	Long: `Create a sample dittocore configuration file with every default
spelled out and a freshly generated admin JWT secret.

By default, the file is created at $XDG_CONFIG_HOME/dittocore/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  dittocore config init

  # Initialize with custom path
  dittocore config init --config /etc/dittocore/config.yaml

  # Force overwrite existing config
  dittocore config init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := displayPath(cmd)
	if err := config.InitConfigToPath(path, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to customize your setup")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: dittocore start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: dittocore start --config %s\n", path)
	_, _ = fmt.Fprintln(out, "\nSecurity note:")
	_, _ = fmt.Fprintln(out, "  A random admin JWT secret has been generated for development use.")
	_, _ = fmt.Fprintln(out, "  For production, keep the secret out of the file:")
	_, _ = fmt.Fprintf(out, "    export %s=$(openssl rand -hex 32)\n", config.EnvAdminSecret)
	return nil
}
