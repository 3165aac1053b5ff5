package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hitpoints/hitpoints-service/internal/app"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				log.Error().Err(err).Msg("startup failed")
				return err
			}
			if err := a.Run(ctx); err != nil {
				log.Error().Err(err).Msg("service stopped with error")
				return err
			}
			return nil
		},
	}
}
