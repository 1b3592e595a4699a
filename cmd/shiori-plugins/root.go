package main

import (
	"github.com/spf13/cobra"

	"github.com/shiori-reader/shiori/internal/config"
	"github.com/shiori-reader/shiori/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Shiori extension tool.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shiori-plugins",
		Short: "Shiori - extension inspection and maintenance",
		Long: `shiori-plugins inspects and maintains the Shiori reader's
extension directory: installed extensions, their manifests, and the
shared library pool.`,
	}

	// Global flags, overriding config file values
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("plugins-dir", "", "extensions root directory")
	cmd.PersistentFlags().String("log-format", "", "log output format (json or text)")

	// Add subcommands
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewLibsCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// loadConfig resolves the effective configuration for a subcommand and
// installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.SetDefault("shiori-plugins", version, cfg.LogFormat)
	return cfg, nil
}
