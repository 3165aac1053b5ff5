package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitpoints/hitpoints-service/internal/app"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/seed"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load character files into the configured store",
		Long:  "Load character files into the configured store. Nothing is written when the store already holds characters.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Durable() {
				return fmt.Errorf("seed needs a durable STORE_BACKEND, got %q", cfg.StoreBackend)
			}

			store, err := app.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close(cmd.Context())

			n, err := seed.NewLoader(cfg.SeedDir, log).Seed(cmd.Context(), store.Store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d characters into %s\n", n, store.Name)
			return nil
		},
	}
}
