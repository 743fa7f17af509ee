package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpgate/rpgate/internal/daemon"
	"github.com/rpgate/rpgate/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode: insecure cookies, failure details in responses")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the rpgate web service",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if err := readConfig(); err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
				cfg.Auth.Production = false
			}

			return logger.Init(cfg.Log)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.DevMode {
				log.Warn().Msg("dev mode enabled: cookies are not marked secure and failure details are disclosed")
			}

			d, err := daemon.New(cmd.Context(), &cfg)
			if err != nil {
				log.Error().Err(err).Msg("failed to start rpgate")
				return err
			}

			return d.Start()
		},
	}
)
