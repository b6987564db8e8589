package config

import (
	"fmt"

	"github.com/marmos91/dittocore/internal/cli/output"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	showOutput  string
	showSecrets bool
)

const redacted = "<redacted>"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration a server would run with: the file, plus
DITTOCORE_* environment overrides, plus defaults. The admin secret is
redacted unless --show-secrets is given.

Examples:
  # Show default config as YAML
  dittocore config show

  # Show as JSON or TOML
  dittocore config show --output json
  dittocore config show --output toml

  # Show specific config file
  dittocore config show --config /etc/dittocore/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json|toml)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the admin JWT secret")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath(cmd))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	// A config has no table form.
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	if !showSecrets && cfg.Admin.JWT.Secret != "" {
		cfg.Admin.JWT.Secret = redacted
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format != output.FormatJSON {
		return printer.Print(cfg)
	}
	view, err := fileView(cfg)
	if err != nil {
		return err
	}
	return printer.Print(view)
}

// fileView converts cfg to the generic shape of its YAML file, so JSON output
// carries durations as "30s" rather than nanoseconds.
func fileView(cfg *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	var view map[string]any
	if err := yaml.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return view, nil
}
