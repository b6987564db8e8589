package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/marmos91/dittocore/internal/cli/output"
	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/spf13/cobra"
)

var (
	tokenRole    string
	tokenTTL     time.Duration
	tokenSubject string
	tokenOutput  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin API token",
	Long: `Mint a bearer token for the admin API, signed with the configured
admin secret (admin.jwt.secret or $` + config.EnvAdminSecret + `).

Viewer tokens can read status, the log level and the signal stream;
admin tokens can also change the log level, shut down and reload.

Examples:
  # Admin token valid for the configured token_duration
  dittocore token

  # Short-lived viewer token for a dashboard
  dittocore token --role viewer --ttl 15m --subject grafana

  # Use it with curl
  curl -H "Authorization: Bearer $(dittocore token)" localhost:8080/api/v1/status`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleAdmin, "Token role (admin|viewer)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default: admin.jwt.token_duration)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (default: cli:<user>)")
	tokenCmd.Flags().StringVarP(&tokenOutput, "output", "o", "table", "Output format (table prints the bare token; json|yaml|toml print details)")
}

func runToken(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(tokenOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	svc, err := auth.NewJWTService(auth.JWTConfig{
		Secret:        cfg.Admin.JWTSecret(),
		TokenDuration: cfg.Admin.JWT.TokenDuration,
	})
	if err != nil {
		return fmt.Errorf("cannot sign tokens: %w (set admin.jwt.secret or %s)", err, config.EnvAdminSecret)
	}

	subject := tokenSubject
	if subject == "" {
		subject = cliSubject()
	}
	tok, err := svc.Issue(subject, tokenRole, tokenTTL)
	if err != nil {
		return err
	}

	if format == output.FormatTable {
		_, _ = fmt.Fprintln(os.Stdout, tok.AccessToken)
		return nil
	}
	return output.StdoutPrinter(format).Print(tok)
}
