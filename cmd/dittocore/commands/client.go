package commands

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/apiclient"
	"github.com/marmos91/dittocore/pkg/config"
)

// EnvToken supplies the admin API token when --token is not given.
const EnvToken = "DITTOCORE_TOKEN"

// cliTokenTTL bounds tokens minted implicitly for a single CLI call.
const cliTokenTTL = 5 * time.Minute

// newAPIClient builds a client for the admin API. The URL defaults to the
// configured admin port on localhost. Without an explicit token, one is
// minted from the configured secret so local administration needs no
// login step.
func newAPIClient() (*apiclient.Client, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}

	base := apiURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.Admin.Port)
	}
	client := apiclient.New(base)

	token := apiToken
	if token == "" {
		token = os.Getenv(EnvToken)
	}
	if token == "" {
		if token, err = mintToken(&cfg.Admin, auth.RoleAdmin, cliTokenTTL); err != nil {
			return nil, fmt.Errorf("no API token: pass --token, set %s, or configure the admin secret: %w", EnvToken, err)
		}
	}
	return client.WithToken(token), nil
}

// mintToken issues a token signed with the configured admin secret.
func mintToken(cfg *config.AdminConfig, role string, ttl time.Duration) (string, error) {
	svc, err := auth.NewJWTService(auth.JWTConfig{
		Secret:        cfg.JWTSecret(),
		TokenDuration: cfg.JWT.TokenDuration,
	})
	if err != nil {
		return "", err
	}
	tok, err := svc.Issue(cliSubject(), role, ttl)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// cliSubject names the local user in minted tokens, which the server logs
// as requested_by.
func cliSubject() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}
