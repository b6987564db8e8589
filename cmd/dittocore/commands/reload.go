package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reloadPidFile string
	reloadViaAPI  bool
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Restart the dittocore server in place",
	Long: `Ask a running dittocore server to restart in place.

The server drains in-flight work, reads its configuration again and starts
a fresh lifecycle state without exiting. By default the request is sent as
SIGHUP to the process in the PID file; use --api to go through the admin
API (required on Windows).

Examples:
  # Reload via SIGHUP
  dittocore reload

  # Reload through the admin API
  dittocore reload --api`,
	RunE: runReload,
}

func init() {
	reloadCmd.Flags().StringVar(&reloadPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittocore/dittocore.pid)")
	reloadCmd.Flags().BoolVar(&reloadViaAPI, "api", false, "Request the reload through the admin API")
}

func runReload(cmd *cobra.Command, args []string) error {
	if reloadViaAPI {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := client.Reload(cmd.Context())
		if err != nil {
			return fmt.Errorf("reload request failed: %w", err)
		}
		if res.Accepted {
			fmt.Println("Reload accepted. Server will restart in place.")
		} else {
			fmt.Printf("A stop is already in progress (outcome: %s)\n", res.Outcome)
		}
		return nil
	}

	pid, err := readPIDFile(pidFileOrDefault(reloadPidFile))
	if err != nil {
		return err
	}
	if err := reloadProcess(pid); err != nil {
		if errors.Is(err, errProcessDone) {
			return fmt.Errorf("server is not running (stale PID %d)", pid)
		}
		return err
	}
	fmt.Println("Reload signal sent. Server will restart in place.")
	return nil
}
