package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/internal/telemetry"
	"github.com/marmos91/dittocore/pkg/config"
	"go.opentelemetry.io/otel/trace"
)

const (
	serverStopTimeout   = 5 * time.Second
	executorWaitTimeout = 5 * time.Second
)

// AuxiliaryServer is an interface for auxiliary HTTP servers (API, Metrics).
type AuxiliaryServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Port() int
}

// Waiter blocks until all work it scheduled has returned.
type Waiter interface {
	Wait()
}

type namedServer struct {
	name string
	srv  AuxiliaryServer
}

// Service runs one server incarnation: it starts the auxiliary servers,
// waits for a stop request on the state, drains in-flight work, and
// reports whether the process should restart or exit.
type Service struct {
	state        *State
	timeout      time.Duration
	pollInterval time.Duration

	servers  []namedServer
	executor Waiter
	triggers []<-chan struct{}

	serveOnce sync.Once
	served    atomic.Bool
}

// NewService creates the serve loop for state. Timeouts come from the
// state's configuration.
func NewService(state *State) *Service {
	s := &Service{
		state:        state,
		timeout:      state.Config().ShutdownTimeout,
		pollInterval: state.Config().DrainPollInterval,
	}
	if s.timeout <= 0 {
		s.timeout = config.DefaultShutdownTimeout
	}
	if s.pollInterval <= 0 {
		s.pollInterval = config.DefaultDrainPollInterval
	}
	return s
}

func (s *Service) mustNotBeServing(what string) {
	if s.served.Load() {
		panic(fmt.Sprintf("lifecycle: cannot %s after Serve() has been called", what))
	}
}

// AddServer registers an auxiliary server. Servers start in registration
// order and stop in reverse. Must be called before Serve.
func (s *Service) AddServer(name string, srv AuxiliaryServer) {
	s.mustNotBeServing("add server")
	if srv == nil {
		return
	}
	s.servers = append(s.servers, namedServer{name: name, srv: srv})
	logger.Info("Server registered", "server", name, "port", srv.Port())
}

// SetExecutor registers the executor to wait for after a successful drain.
// Must be called before Serve.
func (s *Service) SetExecutor(w Waiter) {
	s.mustNotBeServing("set executor")
	s.executor = w
}

// AddReloadTrigger makes any value received on ch request a reload.
// Must be called before Serve.
func (s *Service) AddReloadTrigger(ch <-chan struct{}) {
	s.mustNotBeServing("add reload trigger")
	s.triggers = append(s.triggers, ch)
}

// Serve blocks until a stop is requested on the state or ctx is done,
// then drains and shuts down. Cancelling ctx counts as a terminal stop.
// The returned error reports an auxiliary server failure.
func (s *Service) Serve(ctx context.Context) (Outcome, error) {
	outcome, err := OutcomeRunning, error(nil)
	ran := false
	s.serveOnce.Do(func() {
		ran = true
		s.served.Store(true)
		outcome, err = s.serve(ctx)
	})
	if !ran {
		return s.state.Outcome(), errors.New("lifecycle: Serve() called twice")
	}
	return outcome, err
}

func (s *Service) serve(ctx context.Context) (Outcome, error) {
	st := s.state
	_, span := telemetry.StartSpan(context.Background(), telemetry.SpanServe,
		trace.WithAttributes(telemetry.Instance(st.ID())))
	defer span.End()

	logger.Info("Starting dittocore", logger.KeyInstance, st.ID(), logger.KeyPID, os.Getpid())

	// Subscribe before anything can request a stop so no signal is missed.
	sub := st.Subscribe()
	defer sub.Close()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	serverErrs := make(chan error, len(s.servers))
	for _, ns := range s.servers {
		go func(ns namedServer) {
			if err := ns.srv.Start(runCtx); err != nil {
				logger.Error("Server failed, initiating shutdown", "server", ns.name, logger.Err(err))
				serverErrs <- fmt.Errorf("%s server: %w", ns.name, err)
				st.Shutdown(SignalShutdown)
			}
		}(ns)
	}

	for _, ch := range s.triggers {
		go func(ch <-chan struct{}) {
			select {
			case <-ch:
				st.dispatch("reload-trigger", func() {
					logger.Info("Reload triggered")
					st.Reload(SignalReload)
				})
			case <-runCtx.Done():
			}
		}(ch)
	}

	s.wait(ctx, sub)

	outcome := st.Outcome()
	span.AddEvent("stop", trace.WithAttributes(telemetry.Outcome(outcome.String())))
	logger.Info("Stopping dittocore", logger.KeyOutcome, outcome.String(), logger.Uptime(st.Uptime()))

	drained := s.drain()
	span.SetAttributes(telemetry.Drained(drained))
	if drained {
		s.waitExecutor()
	}

	cancelRun()
	s.stopServers()

	var serveErr error
	for len(serverErrs) > 0 {
		serveErr = errors.Join(serveErr, <-serverErrs)
	}
	if serveErr != nil {
		telemetry.RecordError(trace.ContextWithSpan(context.Background(), span), serveErr)
	}

	snap := st.Counters().Snapshot()
	logger.Info("dittocore stopped",
		logger.KeyOutcome, outcome.String(),
		logger.KeyHandleFinished, snap.HandleFinished,
		logger.KeySpawnFinished, snap.SpawnFinished,
		logger.KeyPanics, snap.Panics)
	return outcome, serveErr
}

// wait returns once the state is stopping. Any received tag, including a
// lag notice, only prompts a re-read of the flags.
func (s *Service) wait(ctx context.Context, sub *Subscription[Signal]) {
	for !s.state.Stopping() {
		tag, err := sub.Recv(ctx)
		switch {
		case err == nil:
			logger.Debug("Signal received", logger.KeySignal, string(tag))
		case errors.Is(err, ErrLagged):
			logger.Debug("Signal subscriber lagged", logger.Err(err))
		default:
			logger.Info("Context done, initiating shutdown", "reason", err)
			s.state.Shutdown(SignalShutdown)
		}
	}
}

// drain waits for the active counters of both stages to reach zero,
// bounded by the shutdown timeout. It reports whether they did.
func (s *Service) drain() bool {
	ctx, span := telemetry.StartSpan(context.Background(), telemetry.SpanDrain)
	defer span.End()

	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	c := s.state.Counters()
	for {
		snap := c.Snapshot()
		if snap.Idle() {
			logger.Debug("Drain complete")
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			snap = c.Snapshot()
			telemetry.SetAttributes(ctx, telemetry.Counters(snap.SpawnActive, snap.HandleActive, snap.Panics)...)
			logger.Warn("Drain timed out with work still in flight",
				logger.KeyTimeout, s.timeout,
				logger.KeySpawnActive, snap.SpawnActive,
				logger.KeyHandleActive, snap.HandleActive)
			return false
		}
	}
}

func (s *Service) waitExecutor() {
	if s.executor == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.executor.Wait()
	}()
	select {
	case <-done:
	case <-time.After(executorWaitTimeout):
		logger.Warn("Executor did not finish in time", logger.KeyTimeout, executorWaitTimeout)
	}
}

func (s *Service) stopServers() {
	for i := len(s.servers) - 1; i >= 0; i-- {
		ns := s.servers[i]
		ctx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanStopServer,
			trace.WithAttributes(telemetry.Server(ns.name)))
		logger.Debug("Stopping server", "server", ns.name)
		if err := ns.srv.Stop(ctx); err != nil {
			telemetry.RecordError(ctx, err)
			logger.Error("Server shutdown error", "server", ns.name, logger.Err(err))
		}
		span.End()
		cancel()
	}
}
