package serverless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ekisa-team/inferworker/internal/config"
	"github.com/ekisa-team/inferworker/internal/envvar"
	"github.com/ekisa-team/inferworker/internal/job"
)

const postTimeout = 30 * time.Second

// ErrNotConfigured is returned when the job queue endpoints are missing.
var ErrNotConfigured = errors.New("serverless job queue is not configured")

// Handler runs one job.
type Handler interface {
	Handle(ctx context.Context, j *job.Job) job.Result
}

// Config holds the job queue endpoints. URL templates contain "$ID", replaced by
// the worker id (take, ping) or the job id (post).
type Config struct {
	WorkerID      string
	APIKey        string
	GetJobURL     string
	PostOutputURL string
	PingURL       string
	Concurrency   int
	IdleDelay     time.Duration
	PingInterval  time.Duration
}

// ConfigFromEnv reads the queue endpoints from the RUNPOD_* environment.
func ConfigFromEnv(rc config.RuntimeConfig) (Config, error) {
	cfg := Config{
		WorkerID:      os.Getenv(envvar.RunpodPodID),
		APIKey:        os.Getenv(envvar.RunpodAPIKey),
		GetJobURL:     os.Getenv(envvar.RunpodWebhookGetJob),
		PostOutputURL: os.Getenv(envvar.RunpodWebhookPostOutput),
		PingURL:       os.Getenv(envvar.RunpodWebhookPing),
		Concurrency:   rc.Concurrency,
		IdleDelay:     rc.IdleDelay,
		PingInterval:  rc.PingInterval,
	}

	if cfg.GetJobURL == "" || cfg.PostOutputURL == "" {
		return Config{}, fmt.Errorf("%w: %s and %s must be set", ErrNotConfigured, envvar.RunpodWebhookGetJob, envvar.RunpodWebhookPostOutput)
	}

	return cfg, nil
}

// Poller takes jobs from the queue, runs them and posts the results.
type Poller struct {
	cfg     Config
	handler Handler
	client  *http.Client
}

// NewPoller creates a poller.
func NewPoller(cfg Config, h Handler) *Poller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = time.Second
	}

	return &Poller{
		cfg:     cfg,
		handler: h,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Run polls until ctx is done. In-flight jobs finish and post their results
// before Run returns.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("Polling for jobs", "worker_id", p.cfg.WorkerID, "concurrency", p.cfg.Concurrency)

	g, ctx := errgroup.WithContext(ctx)

	if p.cfg.PingURL != "" && p.cfg.PingInterval > 0 {
		g.Go(func() error {
			p.heartbeat(ctx)
			return nil
		})
	}

	g.Go(func() error {
		slots := new(errgroup.Group)
		slots.SetLimit(p.cfg.Concurrency)

		for ctx.Err() == nil {
			slots.Go(func() error {
				p.next(ctx)
				return nil
			})
		}

		return slots.Wait()
	})

	return g.Wait()
}

// next takes and runs at most one job.
func (p *Poller) next(ctx context.Context) {
	j, err := p.take(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Failed to take job", "error", err)
		}
		p.idle(ctx)
		return
	}
	if j == nil {
		p.idle(ctx)
		return
	}

	slog.Info("Job received", "job_id", j.ID)
	// A job that was taken is always finished and reported, even during shutdown.
	detached := context.WithoutCancel(ctx)
	res := p.handler.Handle(detached, j)

	postCtx, cancel := context.WithTimeout(detached, postTimeout)
	defer cancel()

	if err := p.post(postCtx, j.ID, res); err != nil {
		slog.Error("Failed to post job result", "job_id", j.ID, "error", err)
	}
}

func (p *Poller) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.IdleDelay):
	}
}

// take fetches the next job, or nil when the queue is empty.
func (p *Poller) take(ctx context.Context) (*job.Job, error) {
	req, err := p.newRequest(ctx, http.MethodGet, expand(p.cfg.GetJobURL, p.cfg.WorkerID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job take returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if j.ID == "" {
		return nil, nil
	}

	return &j, nil
}

type resultBody struct {
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (p *Poller) post(ctx context.Context, jobID string, res job.Result) error {
	body := resultBody{Output: res.Output, Error: res.Error}
	if res.Failed() {
		body.Output = nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := p.newRequest(ctx, http.MethodPost, expand(p.cfg.PostOutputURL, jobID), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("result post returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}

// heartbeat pings the queue until ctx is done.
func (p *Poller) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := p.newRequest(ctx, http.MethodGet, expand(p.cfg.PingURL, p.cfg.WorkerID), nil)
			if err != nil {
				slog.Warn("Failed to build ping request", "error", err)
				continue
			}

			resp, err := p.client.Do(req)
			if err != nil {
				slog.Debug("Ping failed", "error", err)
				continue
			}
			resp.Body.Close()
		}
	}
}

func (p *Poller) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", p.cfg.APIKey)
	}

	return req, nil
}

func expand(template, id string) string {
	return strings.ReplaceAll(template, "$ID", id)
}
