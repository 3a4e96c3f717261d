package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ekisa-team/inferworker/internal/env"
	serverhttp "github.com/ekisa-team/inferworker/internal/server/http"
)

func newLocalCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Serve a local test API instead of polling the job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.shutdown()

			if err := a.start(ctx); err != nil {
				return err
			}

			if !env.FromEnv().IsDevelopment() {
				gin.SetMode(gin.ReleaseMode)
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           serverhttp.NewRouter(a.handler, a.status),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("Local API listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port for the local test API")

	return cmd
}
