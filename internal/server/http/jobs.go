package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ekisa-team/inferworker/internal/job"
)

type (
	RunRequestDTO struct {
		Input map[string]any `json:"input" binding:"required"`
	}

	RunResponseDTO struct {
		ID     string          `json:"id"`
		Status string          `json:"status"`
		Output json.RawMessage `json:"output,omitempty"`
		Error  string          `json:"error,omitempty"`
	}

	HealthResponseDTO struct {
		Backend     string `json:"backend"`
		Ready       bool   `json:"ready"`
		ModelPulled bool   `json:"model_pulled"`
	}
)

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// JobRunner runs one job.
type JobRunner interface {
	Handle(ctx context.Context, j *job.Job) job.Result
}

// StatusFunc reports the worker health.
type StatusFunc func() HealthResponseDTO

// JobHandler serves the local test API.
type JobHandler struct {
	runner JobRunner
	status StatusFunc
}

// NewRouter builds the gin engine for the local test API.
func NewRouter(runner JobRunner, status StatusFunc) *gin.Engine {
	h := &JobHandler{runner: runner, status: status}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.POST("/runsync", h.handleRunSync)
	r.GET("/health", h.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// handleRunSync runs a job synchronously and returns its result.
func (h *JobHandler) handleRunSync(c *gin.Context) {
	var req RunRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := "sync-" + uuid.NewString()
	res := h.runner.Handle(c.Request.Context(), &job.Job{ID: id, Input: req.Input})

	if res.Failed() {
		c.JSON(http.StatusOK, RunResponseDTO{ID: id, Status: StatusFailed, Error: res.Error})
		return
	}

	c.JSON(http.StatusOK, RunResponseDTO{ID: id, Status: StatusCompleted, Output: res.Output})
}

// handleHealth reports readiness.
func (h *JobHandler) handleHealth(c *gin.Context) {
	st := h.status()

	code := http.StatusOK
	if !st.Ready {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, st)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
