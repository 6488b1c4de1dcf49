package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xtamizh/scrapebase/internal/service"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Start the core and print a Health()/Metrics() snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *service.Service) error {
			// Pause briefly before sampling. The pool's maintenance loop
			// and the memory controller tick on much longer intervals
			// (SOFT_IDLE, METRICS_INTERVAL), so the memory figures read
			// zero until the controller's first sample.
			time.Sleep(200 * time.Millisecond)
			if err := printJSON(svc.Health()); err != nil {
				return err
			}
			return printJSON(svc.Metrics())
		})
	},
}
