package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/learnloop-backend/internal/app"
	"github.com/yungbote/learnloop-backend/internal/platform/shutdown"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}

			runCtx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			a, err := app.New(runCtx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(runCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
