// Package app implements the main application commands.
package app

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rpgate/rpgate/internal/config"
)

var (
	configPath string // Path to the configuration directory
	envFile    string // Optional .env file loaded before the configuration

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rpgate",
	Short: "rpgate is an OpenID Connect relying party",
	Long: `rpgate signs users in at an external OpenID Connect identity provider
and keeps a local browser session for them.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./etc/", "Directory of main.toml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this .env file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// readConfig loads the .env file, if any, and the configuration.
func readConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return err
		}
	}

	c, err := config.ReadConfig(configPath)
	if err != nil {
		return err
	}

	cfg = c

	return nil
}
