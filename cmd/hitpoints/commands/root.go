package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hitpoints/hitpoints-service/internal/infrastructure/config"
	"github.com/hitpoints/hitpoints-service/pkg/logger"
)

const serviceName = "hitpoints"

var (
	cfg *config.Config
	log zerolog.Logger

	seedDir string
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Hit point tracker for tabletop characters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed-dir") {
				loaded.SeedDir = seedDir
			}
			cfg = loaded
			log = logger.New(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.LogPretty,
				Service: serviceName,
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&seedDir, "seed-dir", "", "directory of character files (overrides SEED_DIR)")

	root.AddCommand(serveCmd(), seedCmd(), versionCmd())
	return root
}
