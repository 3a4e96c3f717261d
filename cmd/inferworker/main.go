package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/inferworker/internal/config"
	"github.com/ekisa-team/inferworker/internal/env"
	"github.com/ekisa-team/inferworker/internal/envvar"
	"github.com/ekisa-team/inferworker/internal/logger"
)

type rootOptions struct {
	backend    string
	configPath string
	logFile    string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "inferworker",
		Short: "Serverless worker that fronts a local Ollama or vLLM server",
		Long: `inferworker launches a local inference server (Ollama or vLLM), waits for it
to become ready and forwards serverless jobs to its HTTP API.

Jobs carry either a "prompt" (completion) or "messages" (chat) input.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var logOpts []logger.Option
			if opts.logFile != "" {
				logOpts = append(logOpts, logger.WithLogToFile(true), logger.WithLogFile(opts.logFile))
			}
			slog.SetDefault(logger.New(env.FromEnv(), logOpts...))
		},
	}

	backend := os.Getenv(envvar.InferworkerBackend)
	if backend == "" {
		backend = config.BackendOllama
	}

	cmd.PersistentFlags().StringVar(&opts.backend, "backend", backend, `Backend profile, "ollama" or "vllm"`)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(envvar.InferworkerConfig), "Path to a YAML profile override")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Also write worker logs to this rotated file")

	cmd.AddCommand(newServeCmd(opts), newLocalCmd(opts))

	return cmd
}
