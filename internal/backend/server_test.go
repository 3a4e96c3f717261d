package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/inferworker/internal/config"
)

// healthServer answers 503 until the readyOn-th request, then 200.
// A readyOn of 0 never becomes ready.
func healthServer(t *testing.T, readyOn int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if readyOn > 0 && n >= readyOn {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func testServerConfig(healthURL string, policy config.StartupPolicy, maxAttempts int) ServerConfig {
	return ServerConfig{
		Name:         "test",
		BinPath:      "/usr/bin/backend",
		Args:         []string{"serve"},
		Env:          map[string]string{"B": "2", "A": "1"},
		HealthURL:    healthURL,
		Policy:       policy,
		MaxAttempts:  maxAttempts,
		PollInterval: 5 * time.Millisecond,
	}
}

func TestSupervisor_ReadyAfterRetries(t *testing.T) {
	srv, hits := healthServer(t, 3)

	proc := newFakeProcess()
	runner := new(MockRunner)
	runner.On("Launch", "/usr/bin/backend", []string{"serve"}, []string{"A=1", "B=2"}).Return(proc, nil).Once()

	cfg := testServerConfig(srv.URL+"/health", config.StartupPolicyFatal, 5)
	cfg.LogFile = filepath.Join(t.TempDir(), "backend.log")
	sup := NewSupervisor(cfg, runner)

	state, err := sup.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
	assert.True(t, sup.Ready())
	assert.Equal(t, 3, sup.Attempts())
	assert.EqualValues(t, 3, hits.Load())

	require.NoError(t, sup.Stop())
	assert.True(t, proc.Killed())
	assert.False(t, sup.Ready())

	runner.AssertExpectations(t)
}

func TestSupervisor_FatalPolicy(t *testing.T) {
	srv, _ := healthServer(t, 0)

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(newFakeProcess(), nil)

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyFatal, 3), runner)
	t.Cleanup(func() { _ = sup.Stop() })

	state, err := sup.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStartupFailure)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, 3, sup.Attempts())
	assert.False(t, sup.Ready())
}

func TestSupervisor_DegradedPolicy(t *testing.T) {
	srv, _ := healthServer(t, 0)

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(newFakeProcess(), nil)

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyDegraded, 2), runner)
	t.Cleanup(func() { _ = sup.Stop() })

	state, err := sup.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, StateFailed, sup.State())
	assert.False(t, sup.Ready())
}

func TestSupervisor_LaunchFailure(t *testing.T) {
	launchErr := errors.New("exec: no such file")

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(nil, launchErr).Once()

	sup := NewSupervisor(testServerConfig("http://127.0.0.1:1/health", config.StartupPolicyFatal, 3), runner)

	state, err := sup.Start(context.Background())
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, ErrStartupFailure)
	assert.ErrorIs(t, err, launchErr)
	assert.Zero(t, sup.Attempts())
	assert.NoError(t, sup.Stop())
}

func TestSupervisor_ProcessExitStopsPolling(t *testing.T) {
	srv, _ := healthServer(t, 0)

	proc := newFakeProcess()
	proc.exit()

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(proc, nil)

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyDegraded, 1000), runner)

	state, err := sup.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Less(t, sup.Attempts(), 1000)
}

func TestSupervisor_ContextCanceled(t *testing.T) {
	srv, _ := healthServer(t, 0)

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(newFakeProcess(), nil)

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyFatal, 1000), runner)
	t.Cleanup(func() { _ = sup.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	state, err := sup.Start(ctx)
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, ErrStartupFailure)
}

func TestSupervisor_StartTwice(t *testing.T) {
	srv, _ := healthServer(t, 1)

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(newFakeProcess(), nil).Once()

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyFatal, 1), runner)
	t.Cleanup(func() { _ = sup.Stop() })

	_, err := sup.Start(context.Background())
	require.NoError(t, err)

	_, err = sup.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	runner.AssertExpectations(t)
}

func TestSupervisor_PollIsSticky(t *testing.T) {
	srv, hits := healthServer(t, 1)

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyFatal, 1), new(MockRunner))

	assert.Equal(t, StateStarting, sup.State())
	assert.Equal(t, StateReady, sup.Poll(context.Background()))
	assert.Equal(t, StateReady, sup.Poll(context.Background()))
	assert.Equal(t, 1, sup.Attempts())
	assert.EqualValues(t, 1, hits.Load())
}

func TestSupervisor_PollTransitions(t *testing.T) {
	srv, _ := healthServer(t, 0)

	sup := NewSupervisor(testServerConfig(srv.URL, config.StartupPolicyFatal, 2), new(MockRunner))

	assert.Equal(t, StatePolling, sup.Poll(context.Background()))
	assert.Equal(t, StateFailed, sup.Poll(context.Background()))
	assert.Equal(t, StateFailed, sup.Poll(context.Background()))
	assert.Equal(t, 2, sup.Attempts())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())

	assert.True(t, StateReady.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePolling.Terminal())
}

func TestSupervisor_StopWaitsForExit(t *testing.T) {
	srv, _ := healthServer(t, 1)

	proc := newFakeProcess()
	proc.exitDelay = 50 * time.Millisecond

	runner := new(MockRunner)
	runner.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(proc, nil).Once()

	cfg := testServerConfig(srv.URL, config.StartupPolicyFatal, 1)
	cfg.LogFile = filepath.Join(t.TempDir(), "backend.log")
	sup := NewSupervisor(cfg, runner)

	_, err := sup.Start(context.Background())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, sup.Stop())

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	select {
	case <-sup.exited:
	default:
		t.Fatal("Stop returned before the process exited")
	}
}
