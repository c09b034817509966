// Package cli implements sgnlctl's command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sgnl-ai/sgnl-linux-host/lib/config"
)

var configPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sgnlctl",
		Short: "Diagnose SGNL host authorization configuration and access decisions",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (defaults to "+config.EnvConfigPath+" or "+config.DefaultConfigPath+")")

	cmd.AddCommand(newValidateConfigCmd())
	cmd.AddCommand(newCheckAccessCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs sgnlctl's command tree against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func loadConfig() (config.Config, error) {
	return config.Load(config.Options{ConfigPath: configPath, StrictValidation: true})
}
