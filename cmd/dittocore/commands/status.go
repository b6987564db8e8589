package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/marmos91/dittocore/internal/cli/output"
	"github.com/marmos91/dittocore/internal/cli/timeutil"
	"github.com/marmos91/dittocore/pkg/apiclient"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the dittocore server.

Checks the PID file, then asks the admin API for the lifecycle status:
phase, uptime, log level, signal subscribers and the request counters.

Examples:
  # Check status (uses default settings)
  dittocore status

  # Check a server on another port
  dittocore status --api-url http://localhost:9080

  # Output as JSON
  dittocore status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittocore/dittocore.pid)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml|toml)")
}

// ServerStatus combines the process check with the API's view.
type ServerStatus struct {
	Running   bool              `json:"running" yaml:"running" toml:"running"`
	PID       int               `json:"pid,omitempty" yaml:"pid,omitempty" toml:"pid,omitempty"`
	Healthy   bool              `json:"healthy" yaml:"healthy" toml:"healthy"`
	Message   string            `json:"message" yaml:"message" toml:"message"`
	Lifecycle *lifecycle.Status `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty" toml:"lifecycle,omitempty"`
}

func (s ServerStatus) keyValues() output.KeyValues {
	state := "Stopped"
	switch {
	case s.Running && s.Healthy:
		state = "Running"
	case s.Running && s.Lifecycle != nil && s.Lifecycle.Reloading:
		state = "Reloading"
	case s.Running:
		state = "Running (unhealthy)"
	}

	kv := output.KeyValues{}.Add("Status", state)
	if s.PID > 0 {
		kv = kv.Add("PID", strconv.Itoa(s.PID))
	}
	if l := s.Lifecycle; l != nil {
		kv = kv.
			Add("Instance", l.Instance).
			Add("Phase", l.Phase).
			Add("Started", timeutil.FormatTime(l.StartedAt)).
			Add("Uptime", timeutil.FormatSeconds(l.UptimeSec)).
			Add("Log level", l.LogLevel).
			Add("Subscribers", strconv.Itoa(l.Subscribers)).
			Add("Spawned", counterPair(l.Counters.SpawnActive, l.Counters.SpawnFinished)).
			Add("Requests", counterPair(l.Counters.HandleActive, l.Counters.HandleFinished)).
			Add("Panics", strconv.FormatUint(l.Counters.Panics, 10))
	}
	return kv.Add("Message", s.Message)
}

func counterPair(active, finished uint64) string {
	return fmt.Sprintf("%d active, %d finished", active, finished)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{Message: "Server is not running"}
	if pid, ok := isProcessRunning(pidFileOrDefault(statusPidFile)); ok {
		status.Running = true
		status.PID = pid
		status.Message = "Server process exists but the admin API is unreachable"
	}

	if client, err := newAPIClient(); err == nil {
		client.SetRetryMax(0)
		probeAPI(cmd, client, &status)
	} else if status.Running {
		status.Message = err.Error()
	}

	if format == output.FormatTable {
		return output.PrintKeyValues(os.Stdout, status.keyValues())
	}
	return output.StdoutPrinter(format).Print(status)
}

func probeAPI(cmd *cobra.Command, client *apiclient.Client, status *ServerStatus) {
	ctx := cmd.Context()
	if _, err := client.Health(ctx); err != nil {
		return
	}
	status.Running = true

	readyErr := client.Ready(ctx)
	var apiErr *apiclient.APIError
	switch {
	case readyErr == nil:
		status.Healthy = true
		status.Message = "Server is running and healthy"
	case errors.As(readyErr, &apiErr) && apiErr.IsUnavailable():
		status.Message = "Server is stopping"
	default:
		status.Message = fmt.Sprintf("Server is running but not ready: %v", readyErr)
	}

	st, err := client.Status(ctx)
	if err != nil {
		status.Message += fmt.Sprintf(" (status unavailable: %v)", err)
		return
	}
	status.Lifecycle = st
}
