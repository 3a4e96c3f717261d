package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ekisa-team/inferworker/internal/backend"
	"github.com/ekisa-team/inferworker/internal/backend/ollama"
	"github.com/ekisa-team/inferworker/internal/backend/vllm"
	"github.com/ekisa-team/inferworker/internal/config"
	"github.com/ekisa-team/inferworker/internal/handler"
	"github.com/ekisa-team/inferworker/internal/model"
	serverhttp "github.com/ekisa-team/inferworker/internal/server/http"
	"github.com/ekisa-team/inferworker/internal/xfs"
)

// app wires the per-process session: one backend server, one preparer, one handler.
type app struct {
	cfg        *config.Config
	backend    backend.Backend
	supervisor *backend.Supervisor
	preparer   *model.Preparer
	handler    *handler.Handler
	watcher    *config.Watcher
}

func newApp(opts *rootOptions) (*app, error) {
	registry := backend.NewRegistry()
	for _, b := range []backend.Backend{ollama.NewBackend(), vllm.NewBackend()} {
		if err := registry.Register(b); err != nil {
			return nil, err
		}
	}

	configPath := config.ResolvePath(xfs.ExpandTilde(opts.configPath), opts.backend)

	cfg, err := config.LoadAndValidate(configPath, opts.backend)
	if err != nil {
		return nil, err
	}

	b, err := registry.Get(backend.Provider(cfg.Backend))
	if err != nil {
		return nil, err
	}

	serverCfg := b.ServerConfig(cfg)
	serverCfg.LogFile = xfs.ExpandTilde(serverCfg.LogFile)

	a := &app{
		cfg:        cfg,
		backend:    b,
		supervisor: backend.NewSupervisor(serverCfg, nil),
		preparer:   newPreparer(b, cfg, serverCfg.BinPath),
	}
	a.handler = handler.New(b, cfg.Server.BaseURL(), a.preparer, serverCfg.LogFile, handler.SettingsFromConfig(cfg))

	if configPath != "" {
		a.watcher, err = config.NewWatcher(configPath, opts.backend, a.reload)
		if err != nil {
			return nil, err
		}
	}

	slog.Info("Config loaded successfully", "backend", cfg.Backend, "model", cfg.Model.Default, "config", configPath)
	return a, nil
}

func newPreparer(b backend.Backend, cfg *config.Config, binPath string) *model.Preparer {
	args := b.PullArgs(cfg.Model.Default)
	if !cfg.Model.Pull || args == nil {
		return model.NewPreparer(nil, cfg.Model.Default, nil)
	}

	executor, err := backend.NewExecutor(binPath, cfg.Model.PullTimeout)
	if err != nil {
		slog.Warn("Model pull disabled", "bin", binPath, "error", err)
		return model.NewPreparer(nil, cfg.Model.Default, nil)
	}

	return model.NewPreparer(executor.WithEnv(b.PullEnv(cfg)), cfg.Model.Default, args)
}

// reload applies request-level settings from a changed profile. Server launch
// settings only take effect on restart.
func (a *app) reload(cfg *config.Config, err error) {
	if err != nil {
		slog.Error("Keeping previous config", "error", err)
		return
	}
	a.handler.Update(handler.SettingsFromConfig(cfg))
}

// start launches the backend. Only the fatal startup policy returns an error.
func (a *app) start(ctx context.Context) error {
	state, err := a.supervisor.Start(ctx)
	if err != nil {
		return err
	}

	slog.Info("Worker ready to accept jobs", "backend", a.cfg.Backend, "backend_state", state)
	return nil
}

func (a *app) status() serverhttp.HealthResponseDTO {
	return serverhttp.HealthResponseDTO{
		Backend:     string(a.backend.Provider()),
		Ready:       a.supervisor.Ready(),
		ModelPulled: a.preparer.Pulled(),
	}
}

// shutdown closes the app and logs what failed to stop.
func (a *app) shutdown() {
	if err := a.close(); err != nil {
		slog.Error("Worker shutdown failed", "error", err)
		return
	}
	slog.Info("Worker stopped")
}

func (a *app) close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	errs = append(errs, a.supervisor.Stop())

	return errors.Join(errs...)
}
