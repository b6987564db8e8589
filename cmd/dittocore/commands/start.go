package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/internal/telemetry"
	"github.com/marmos91/dittocore/pkg/api"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/marmos91/dittocore/pkg/executor"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/marmos91/dittocore/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dittocore server",
	Long: `Start the dittocore server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

SIGINT and SIGTERM stop the server gracefully. SIGHUP, an admin API reload,
or (with watch.enabled) an edit of the config file restarts it in place:
in-flight work drains, the configuration is read again, and a fresh
lifecycle state is built without the process exiting.

Examples:
  # Start in background (default)
  dittocore start

  # Start in foreground
  dittocore start --foreground

  # Start with custom config file
  dittocore start --config /etc/dittocore/config.yaml

  # Start with environment variable overrides
  DITTOCORE_LOGGING_LEVEL=DEBUG dittocore start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittocore/dittocore.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/dittocore/dittocore.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	if pidFile != "" {
		removePID, err := writePIDFile(pidFile)
		if err != nil {
			return err
		}
		defer removePID()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	defer func() { _ = logger.Close() }()

	fmt.Println("dittocore - lifecycle-managed server")

	for generation := 1; ; generation++ {
		outcome, err := serveIncarnation(ctx, generation)
		if err != nil {
			return err
		}
		if outcome != lifecycle.OutcomeRestart {
			logger.Info("Server stopped gracefully")
			return nil
		}
		logger.Info("Restarting in place", "generation", generation+1)
	}
}

// serveIncarnation loads the configuration and runs one lifecycle state
// until it stops, returning the state's outcome.
func serveIncarnation(ctx context.Context, generation int) (lifecycle.Outcome, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return lifecycle.OutcomeTerminate, err
	}
	if err := InitLogger(cfg); err != nil {
		return lifecycle.OutcomeTerminate, err
	}

	logger.Info("Configuration loaded",
		"source", configSource(GetConfigFile()),
		"generation", generation,
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format)

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.FromConfig(cfg.Telemetry, Version))
	if err != nil {
		return lifecycle.OutcomeTerminate, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingFromConfig(cfg.Telemetry, Version))
	if err != nil {
		return lifecycle.OutcomeTerminate, fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	exec := executor.New(cfg.Executor.MaxWorkers)
	st := lifecycle.New(cfg, exec, logger.Levels())

	svc := lifecycle.NewService(st)
	svc.SetExecutor(exec)

	reg := metrics.NewRegistry(st, exec)
	var httpMetrics *metrics.HTTPMetrics
	if cfg.Metrics.Enabled {
		svc.AddServer("metrics", metrics.NewServer(cfg.Metrics.Port, reg))
		httpMetrics = reg.HTTP
	} else {
		logger.Info("Metrics collection disabled")
	}

	apiServer, err := api.NewServer(cfg.Admin, st, httpMetrics)
	if err != nil {
		// The process still honors OS signals without the admin API.
		logger.Warn("Admin API disabled", logger.Err(err))
	} else {
		svc.AddServer("api", apiServer)
	}

	if cfg.Watch.Enabled {
		path := config.ResolvePath(GetConfigFile())
		watcher, err := config.NewWatcher(path, cfg.Watch.Debounce)
		if err != nil {
			logger.Warn("Config watch disabled", logger.KeyFile, path, logger.Err(err))
		} else {
			defer func() { _ = watcher.Close() }()
			svc.AddReloadTrigger(watcher.Events())
			logger.Info("Watching config file for changes", logger.KeyFile, path)
		}
	}

	stopSignals := lifecycle.NotifySignals(ctx, st)
	defer stopSignals()

	logger.Info("Server is running. Press Ctrl+C to stop.", logger.Instance(st.ID()))

	outcome, err := svc.Serve(ctx)
	if err != nil {
		return outcome, fmt.Errorf("server error: %w", err)
	}
	return outcome, nil
}
