package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Process is a running child process.
type Process interface {
	Pid() int
	Wait() error
	Kill() error
}

// CommandRunner is the interface for running commands.
type CommandRunner interface {
	// Run runs a command to completion with extra environment variables.
	Run(ctx context.Context, name string, args []string, env []string, stdin io.Reader) (stdout, stderr []byte, err error)

	// Launch starts a long-running command with extra environment variables and
	// both output streams written to out.
	Launch(ctx context.Context, name string, args []string, env []string, out io.Writer) (Process, error)
}

// ExecCommandRunner uses os/exec.
type ExecCommandRunner struct{}

// Run runs a command.
func (ExecCommandRunner) Run(ctx context.Context, name string, args []string, env []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Launch starts a command.
func (ExecCommandRunner) Launch(ctx context.Context, name string, args []string, env []string, out io.Writer) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int    { return p.cmd.Process.Pid }
func (p *execProcess) Wait() error { return p.cmd.Wait() }
func (p *execProcess) Kill() error { return p.cmd.Process.Kill() }

// Executor runs one-shot commands against a binary.
type Executor struct {
	runner     CommandRunner
	binaryPath string
	env        []string
	timeout    time.Duration
}

// NewExecutor creates an executor. Bare names are resolved through PATH.
func NewExecutor(binaryPath string, timeout time.Duration) (*Executor, error) {
	if !strings.ContainsRune(binaryPath, os.PathSeparator) {
		resolved, err := exec.LookPath(binaryPath)
		if err != nil {
			return nil, fmt.Errorf("binary not found: %w", err)
		}
		binaryPath = resolved
	} else if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("binary not found: %w", err)
	}

	return &Executor{
		binaryPath: binaryPath,
		timeout:    timeout,
		runner:     ExecCommandRunner{},
	}, nil
}

// NewExecutorWithRunner creates an executor with a custom runner.
func NewExecutorWithRunner(binaryPath string, timeout time.Duration, runner CommandRunner) *Executor {
	return &Executor{
		binaryPath: binaryPath,
		timeout:    timeout,
		runner:     runner,
	}
}

// WithEnv sets extra environment variables for every command and returns e.
func (e *Executor) WithEnv(env map[string]string) *Executor {
	e.env = envList(env)
	return e
}

// BinaryPath returns the binary the executor runs.
func (e *Executor) BinaryPath() string {
	return e.binaryPath
}

// Execute runs the command and returns output.
func (e *Executor) Execute(ctx context.Context, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	return e.runner.Run(ctx, e.binaryPath, args, e.env, stdin)
}

// envList renders env as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}
