package config

import (
	"fmt"

	"github.com/marmos91/dittocore/internal/cli/output"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dittocore configuration file.

Checks for syntax errors, missing required fields, and invalid values,
then warns about settings that leave features disabled.

Examples:
  # Validate default config
  dittocore config validate

  # Validate specific config file
  dittocore config validate --config /etc/dittocore/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

// Warnings lists valid but probably unintended settings in cfg.
func Warnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Admin.JWTSecret() == "" {
		warnings = append(warnings, fmt.Sprintf("admin JWT secret not configured: the admin API will not start (set admin.jwt.secret or %s)", config.EnvAdminSecret))
	}
	if !cfg.Metrics.Enabled {
		warnings = append(warnings, "metrics disabled: no /metrics endpoint will be served")
	}
	if cfg.Logging.Output == "stdout" || cfg.Logging.Output == "stderr" {
		warnings = append(warnings, "logging to "+cfg.Logging.Output+": 'dittocore logs' only works with file output or daemon mode")
	}
	return warnings
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath(cmd))
	if err != nil {
		return err
	}

	p := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, false)
	p.Printf("Configuration file: %s\n", displayPath(cmd))
	p.Success("Validation: OK")

	if warnings := Warnings(cfg); len(warnings) > 0 {
		p.Printf("\nWarnings:\n")
		for _, w := range warnings {
			p.Warning("  - " + w)
		}
	}

	metrics := "disabled"
	if cfg.Metrics.Enabled {
		metrics = fmt.Sprintf("port %d", cfg.Metrics.Port)
	}

	p.Printf("\nConfiguration summary:\n")
	return output.PrintKeyValues(p.Writer(), output.KeyValues{}.
		Add("  Admin API", fmt.Sprintf("port %d", cfg.Admin.Port)).
		Add("  Metrics", metrics).
		Add("  Log level", cfg.Logging.Level).
		Add("  Shutdown timeout", cfg.ShutdownTimeout.String()).
		Add("  Executor workers", fmt.Sprint(cfg.Executor.MaxWorkers)).
		Add("  Watch config", fmt.Sprint(cfg.Watch.Enabled)))
}
