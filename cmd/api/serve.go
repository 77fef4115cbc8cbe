package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/config"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var migrate, noCron bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate && a.db != nil {
				if err := database.Migrate(a.db); err != nil {
					return err
				}
				log.Info("migrations applied")
			}
			if !noCron {
				a.scheduler.Start()
				defer a.scheduler.Stop()
			}

			handler := a.router()
			a.limiter.StartCleanup(ctx, time.Minute, 10*time.Minute)

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				log.WithField("port", cfg.Port).Info("ShopDesk API listening")
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "do not run scheduled jobs in this process")
	return cmd
}
