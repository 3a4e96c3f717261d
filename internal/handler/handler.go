package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ekisa-team/inferworker/internal/backend"
	"github.com/ekisa-team/inferworker/internal/config"
	"github.com/ekisa-team/inferworker/internal/job"
	"github.com/ekisa-team/inferworker/internal/metrics"
	"github.com/ekisa-team/inferworker/internal/model"
	"github.com/ekisa-team/inferworker/internal/xfs"
)

// logTailBytes is how much of the backend log is dumped after a transport failure.
const logTailBytes = 8 << 10

// Settings are the request-level knobs, swappable at runtime.
type Settings struct {
	Defaults job.Defaults
	Timeout  time.Duration
}

// SettingsFromConfig extracts the request settings of a profile.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Timeout: cfg.Request.Timeout,
		Defaults: job.Defaults{
			Model:       cfg.Model.Default,
			MaxTokens:   cfg.Request.MaxTokens,
			Temperature: cfg.Request.Temperature,
		},
	}
}

// Handler forwards jobs to the backend. It holds the per-process session state
// (model preparer, backend log location, current settings) instead of globals.
type Handler struct {
	backend    backend.Backend
	translator *job.Translator
	preparer   *model.Preparer
	client     *http.Client
	logFile    string
	settings   atomic.Pointer[Settings]
}

// New creates a handler for b reachable at baseURL.
func New(b backend.Backend, baseURL string, preparer *model.Preparer, logFile string, settings Settings) *Handler {
	if preparer == nil {
		preparer = model.NewPreparer(nil, "", nil)
	}

	h := &Handler{
		backend:    b,
		translator: job.NewTranslator(b, baseURL),
		preparer:   preparer,
		client:     &http.Client{},
		logFile:    logFile,
	}
	h.settings.Store(&settings)

	return h
}

// Update swaps the request settings used by subsequent jobs.
func (h *Handler) Update(s Settings) {
	h.settings.Store(&s)
	slog.Info("Handler settings updated", "timeout", s.Timeout, "model", s.Defaults.Model)
}

// Settings returns the current request settings.
func (h *Handler) Settings() Settings {
	return *h.settings.Load()
}

// Handle runs one job. Every failure is converted into an error result; Handle
// never panics and makes at most one backend call.
func (h *Handler) Handle(ctx context.Context, j *job.Job) (res job.Result) {
	if j == nil {
		j = &job.Job{}
	}

	start := time.Now()
	shape := ""

	defer func() {
		if r := recover(); r != nil {
			res = h.handlerError(j.ID, fmt.Errorf("panic: %v", r))
		}

		status := "success"
		if res.Failed() {
			status = "error"
		}
		metrics.ObserveJob(shape, status, time.Since(start))
	}()

	h.preparer.Ensure(ctx)

	settings := h.Settings()

	call, err := h.translator.Translate(job.ParseInput(j.Input), settings.Defaults)
	if err != nil {
		slog.Warn("Rejected job input", "job_id", j.ID, "error", err)
		return job.Fail(job.InvalidInputMessage)
	}
	shape = string(call.Shape)

	slog.Info("Calling backend", "job_id", j.ID, "shape", call.Shape, "endpoint", call.Endpoint)

	raw, err := h.forward(ctx, call, settings.Timeout)
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			slog.Error("Backend returned an error", "job_id", j.ID, "status", be.StatusCode, "body", be.Body)
			return job.Fail(be.Error())
		}
		return h.handlerError(j.ID, err)
	}

	slog.Info("Job completed", "job_id", j.ID, "shape", call.Shape, "duration", time.Since(start))
	return job.Output(raw)
}

// forward posts the payload and returns the 200 body.
func (h *Handler) forward(ctx context.Context, call *job.Call, timeout time.Duration) (json.RawMessage, error) {
	body, err := json.Marshal(call.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{
			Label:      h.backend.Label(),
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w from %s", ErrMalformedResponse, call.Endpoint)
	}

	return data, nil
}

func (h *Handler) handlerError(jobID string, err error) job.Result {
	msg := "Handler error: " + err.Error()
	slog.Error("Job failed", "job_id", jobID, "error", err)

	h.dumpBackendLogs()

	return job.Fail(msg)
}

// dumpBackendLogs logs the tail of the backend output. Failures are only noted.
func (h *Handler) dumpBackendLogs() {
	if h.logFile == "" {
		return
	}

	tail, err := xfs.Tail(h.logFile, logTailBytes)
	if err != nil {
		slog.Warn("Could not read backend logs", "path", h.logFile, "error", err)
		return
	}

	slog.Error("Backend log tail", "path", h.logFile, "log", string(tail))
}
