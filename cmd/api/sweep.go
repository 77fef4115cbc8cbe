package main

import (
	"fmt"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/config"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// sweepCmd runs scheduled jobs once, for operators and external cron.
func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep [job...]",
		Short:     "Run scheduled jobs once and exit",
		Long:      "Runs the named jobs (" + jobExpiry + ", " + jobReminder + ", " + jobTempCleanup + ") or all of them.",
		ValidArgs: []string{jobExpiry, jobReminder, jobTempCleanup},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				args = a.scheduler.Names()
			}
			failed := 0
			for _, name := range args {
				n, err := a.scheduler.Run(cmd.Context(), name)
				if err != nil {
					failed++
					continue
				}
				log.WithFields(logrus.Fields{"job": name, "affected": n}).Info("sweep finished")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(args))
			}
			return nil
		},
	}
}
