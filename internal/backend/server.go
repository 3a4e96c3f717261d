package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ekisa-team/inferworker/internal/config"
	"github.com/ekisa-team/inferworker/internal/logger"
	"github.com/ekisa-team/inferworker/internal/metrics"
)

// stopTimeout bounds how long Stop waits for the process output to drain.
const stopTimeout = 5 * time.Second

// State is the readiness state of the supervised server.
type State int

const (
	StateStarting State = iota
	StatePolling
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions happen from s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// ServerConfig defines how to start and check a backend server.
type ServerConfig struct {
	Env          map[string]string
	Name         string
	BinPath      string
	HealthURL    string
	LogFile      string
	Policy       config.StartupPolicy
	Args         []string
	MaxAttempts  int
	PollInterval time.Duration
}

// Supervisor owns the backend server process for the lifetime of the worker.
type Supervisor struct {
	cfg      ServerConfig
	runner   CommandRunner
	client   *http.Client
	proc     Process
	sink     io.WriteCloser
	cancel   context.CancelFunc
	exited   chan struct{}
	state    State
	attempts int
	ready    atomic.Bool
	mu       sync.Mutex
}

// NewSupervisor creates a supervisor. A nil runner uses os/exec.
func NewSupervisor(cfg ServerConfig, runner CommandRunner) *Supervisor {
	if runner == nil {
		runner = ExecCommandRunner{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	return &Supervisor{
		cfg:    cfg,
		runner: runner,
		client: &http.Client{Timeout: 1 * time.Second},
		exited: make(chan struct{}),
		state:  StateStarting,
	}
}

// Start launches the server, waits for readiness and applies the startup policy.
// Under the fatal policy a server that never becomes ready yields ErrStartupFailure;
// under the degraded policy the failure is logged and a nil error is returned.
func (s *Supervisor) Start(ctx context.Context) (State, error) {
	if err := s.launch(); err != nil {
		return s.fail(err)
	}

	state := s.WaitReady(ctx)
	if state == StateReady {
		slog.Info("Server started", "name", s.cfg.Name, "url", s.cfg.HealthURL, "attempts", s.Attempts())
		return state, nil
	}

	return s.fail(fmt.Errorf("%s server failed to respond at %s after %d attempts", s.cfg.Name, s.cfg.HealthURL, s.Attempts()))
}

func (s *Supervisor) launch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		return ErrAlreadyStarted
	}

	s.sink = s.openSink()

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := s.runner.Launch(ctx, s.cfg.BinPath, s.cfg.Args, envList(s.cfg.Env), s.sink)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start %s server: %w", s.cfg.Name, err)
	}

	s.proc = proc
	s.cancel = cancel

	slog.Info("Server process launched", "name", s.cfg.Name, "pid", proc.Pid(), "bin", s.cfg.BinPath, "args", s.cfg.Args, "log_file", s.cfg.LogFile)

	go func() {
		err := proc.Wait()
		s.ready.Store(false)
		metrics.SetBackendReady(false)
		close(s.exited)

		if err != nil && ctx.Err() == nil {
			slog.Error("Server process exited", "name", s.cfg.Name, "error", err)
			return
		}
		slog.Info("Server process exited", "name", s.cfg.Name)
	}()

	return nil
}

func (s *Supervisor) openSink() io.WriteCloser {
	if s.cfg.LogFile == "" {
		return nopWriteCloser{io.Discard}
	}
	return logger.NewRotatingFile(s.cfg.LogFile)
}

// Poll performs one readiness attempt and returns the resulting state.
// Terminal states are sticky.
func (s *Supervisor) Poll(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return s.state
	}

	s.attempts++
	metrics.ObserveReadinessAttempt()

	switch {
	case s.probe(ctx):
		s.state = StateReady
		s.ready.Store(true)
		metrics.SetBackendReady(true)
	case s.attempts >= s.cfg.MaxAttempts:
		s.state = StateFailed
	default:
		s.state = StatePolling
	}

	slog.Debug("Readiness probe", "name", s.cfg.Name, "attempt", s.attempts, "state", s.state)
	return s.state
}

// probe reports whether the health URL answers 200.
func (s *Supervisor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.HealthURL, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// WaitReady polls every PollInterval until the server is ready, the attempt
// budget is spent, the process exits or ctx is done.
func (s *Supervisor) WaitReady(ctx context.Context) State {
	for {
		state := s.Poll(ctx)
		if state.Terminal() {
			return state
		}

		select {
		case <-ctx.Done():
			return s.markFailed()
		case <-s.exited:
			return s.markFailed()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

func (s *Supervisor) markFailed() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		s.state = StateFailed
	}
	return s.state
}

func (s *Supervisor) fail(cause error) (State, error) {
	s.markFailed()

	err := fmt.Errorf("%w: %w", ErrStartupFailure, cause)
	if s.cfg.Policy == config.StartupPolicyFatal {
		return StateFailed, err
	}

	slog.Warn("Backend not ready, continuing in degraded mode", "name", s.cfg.Name, "error", err)
	return StateFailed, nil
}

// Ready reports whether the server answered its readiness endpoint.
func (s *Supervisor) Ready() bool {
	return s.ready.Load()
}

// State returns the current readiness state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Attempts returns the number of readiness probes sent so far.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

// LogFile returns the path capturing the server output.
func (s *Supervisor) LogFile() string {
	return s.cfg.LogFile
}

// Stop terminates the server process. The log sink is closed once the process
// has exited, so no output is written after Close.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return nil
	}

	var errs []error
	if err := s.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("failed to kill server process: %w", err))
	}
	s.cancel()

	select {
	case <-s.exited:
	case <-time.After(stopTimeout):
		slog.Warn("Server process did not exit in time", "name", s.cfg.Name, "timeout", stopTimeout)
	}

	if err := s.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	s.ready.Store(false)
	slog.Info("Server stopped", "name", s.cfg.Name)

	return errors.Join(errs...)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
