package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"pob-voting/models"
	"pob-voting/storage"
)

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-chain",
		Short: "Check block hashes and links of the stored ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := commonRun()
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.Storage)
			if err != nil {
				return errors.Wrap(err, "failed to open storage")
			}
			defer store.Close()

			blocks, err := store.LoadChain(cfg.ChainID)
			if err != nil {
				return err
			}
			if err := models.ValidateChain(blocks); err != nil {
				return errors.Wrapf(err, "chain %q is invalid", cfg.ChainID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chain %q is valid: %d blocks\n", cfg.ChainID, len(blocks))
			return nil
		},
	}
}
