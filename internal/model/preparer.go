package model

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ekisa-team/inferworker/internal/backend"
	"github.com/ekisa-team/inferworker/internal/metrics"
)

// Preparer materializes the default model on first use.
//
// The pull runs at most once per process: the pulled flag is set after the first
// attempt even if the pull failed, and later jobs never retry it. A failed pull
// surfaces as backend errors on the jobs that need the model.
type Preparer struct {
	executor *backend.Executor
	args     []string
	model    string
	group    singleflight.Group
	pulled   atomic.Bool
}

// NewPreparer creates a preparer that runs executor with args once.
// A nil executor or empty args give a preparer with nothing to do.
func NewPreparer(executor *backend.Executor, model string, args []string) *Preparer {
	p := &Preparer{
		executor: executor,
		args:     args,
		model:    model,
	}
	if executor == nil || len(args) == 0 {
		p.pulled.Store(true)
	}

	return p
}

// Ensure blocks until the first pull attempt has finished. Concurrent callers
// share that attempt.
func (p *Preparer) Ensure(ctx context.Context) {
	if p.pulled.Load() {
		return
	}

	_, _, _ = p.group.Do(p.model, func() (any, error) {
		if p.pulled.Load() {
			return nil, nil
		}
		defer p.pulled.Store(true)

		p.pull(ctx)
		return nil, nil
	})
}

func (p *Preparer) pull(ctx context.Context) {
	slog.Info("Pulling model", "model", p.model, "command", p.executor.BinaryPath()+" "+strings.Join(p.args, " "))
	start := time.Now()

	_, stderr, err := p.executor.Execute(ctx, p.args, nil)
	if err != nil {
		metrics.ObserveModelPull(false)
		slog.Error("Model pull failed", "model", p.model, "error", err, "stderr", strings.TrimSpace(string(stderr)))
		return
	}

	metrics.ObserveModelPull(true)
	slog.Info("Model ready", "model", p.model, "duration", time.Since(start))
}

// Pulled reports whether the pull has been attempted.
func (p *Preparer) Pulled() bool {
	return p.pulled.Load()
}
