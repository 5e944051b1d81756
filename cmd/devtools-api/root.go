package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"devtools-api/internal/config"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "devtools-api",
		Short:         "Utility HTTP API (conversions, text, math, datetime) behind API-key admission",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "optional YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "optional .env file (ignored when missing)")

	root.AddCommand(
		newServeCmd(flags),
		newKeysCmd(flags),
		newStatsCmd(flags),
		newVersionCmd(),
	)
	return root
}

func (f *rootFlags) load() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: f.configFile, EnvFile: f.envFile})
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "devtools-api %s (%s)\n", version, commit)
		},
	}
}
