package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/dittocore/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopForce   bool
	stopYes     bool
	stopViaAPI  bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the dittocore server",
	Long: `Stop a running dittocore server.

By default, sends SIGTERM for graceful shutdown: in-flight work drains
(bounded by shutdown_timeout) before the process exits. Use --force for
immediate termination with SIGKILL, or --api to request the shutdown
through the admin API instead of a signal.

Examples:
  # Stop server (uses default PID file)
  dittocore stop

  # Stop server using custom PID file
  dittocore stop --pid-file /var/run/dittocore.pid

  # Stop a remote server through the admin API
  dittocore stop --api --api-url http://10.0.0.5:8080

  # Force stop (SIGKILL) without confirmation
  dittocore stop --force --yes`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittocore/dittocore.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Force kill (SIGKILL) instead of graceful shutdown (SIGTERM)")
	stopCmd.Flags().BoolVarP(&stopYes, "yes", "y", false, "Skip confirmation for --force")
	stopCmd.Flags().BoolVar(&stopViaAPI, "api", false, "Request the shutdown through the admin API")
	stopCmd.MarkFlagsMutuallyExclusive("force", "api")
}

func runStop(cmd *cobra.Command, args []string) error {
	if stopViaAPI {
		return stopThroughAPI(cmd)
	}

	pidPath := pidFileOrDefault(stopPidFile)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return err
	}

	if stopForce {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Kill process %d without draining in-flight work?", pid), stopYes)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := stopProcess(pid, stopForce); err != nil {
		if errors.Is(err, errProcessDone) {
			fmt.Println("Server already stopped")
			_ = os.Remove(pidPath)
			return nil
		}
		return err
	}

	if stopForce {
		fmt.Println("Server terminated")
	} else {
		fmt.Println("Shutdown signal sent. Server will stop gracefully.")
	}
	return nil
}

func stopThroughAPI(cmd *cobra.Command) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	res, err := client.Shutdown(cmd.Context())
	if err != nil {
		return fmt.Errorf("shutdown request failed: %w", err)
	}
	if res.Accepted {
		fmt.Println("Shutdown accepted. Server will stop gracefully.")
	} else {
		fmt.Printf("A stop is already in progress (outcome: %s)\n", res.Outcome)
	}
	return nil
}
