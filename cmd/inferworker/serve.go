package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/inferworker/internal/serverless"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Take jobs from the serverless job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.shutdown()

			queueCfg, err := serverless.ConfigFromEnv(a.cfg.Runtime)
			if err != nil {
				return err
			}

			if err := a.start(ctx); err != nil {
				return err
			}

			return serverless.NewPoller(queueCfg, a.handler).Run(ctx)
		},
	}
}
