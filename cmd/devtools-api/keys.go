package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"devtools-api/middleware/admission/infra"
)

var errInvalidKey = errors.New("api key is not valid")

func newKeysCmd(flags *rootFlags) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Inspect the configured API keys",
	}

	keys.AddCommand(&cobra.Command{
		Use:   "check <key>",
		Short: "Check whether a key would be accepted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			creds, err := infra.LoadCredentials(cfg.APIKeys, cfg.APIKeysFile)
			if err != nil && !errors.Is(err, infra.ErrNoCredentials) {
				return err
			}

			if !creds.IsValid(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "invalid (%d keys configured)\n", creds.Len())
				return errInvalidKey
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	})

	keys.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print how many distinct keys are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			creds, err := infra.LoadCredentials(cfg.APIKeys, cfg.APIKeysFile)
			if err != nil && !errors.Is(err, infra.ErrNoCredentials) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), creds.Len())
			return nil
		},
	})
	return keys
}
