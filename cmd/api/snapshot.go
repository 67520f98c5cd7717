package main

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"pob-voting/badge"
	"pob-voting/registry"
)

const (
	snapshotRounds = "rounds"
	snapshotBadges = "badges"
)

func snapshotCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "inspect-snapshot <file>",
		Short: "Check a round registry or badge snapshot and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectSnapshot(cmd.OutOrStdout(), kind, args[0])
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", snapshotRounds, "snapshot kind: rounds or badges")
	return cmd
}

func inspectSnapshot(w io.Writer, kind, path string) error {
	switch kind {
	case snapshotRounds:
		r, err := registry.NewRegistry(registry.RegistryConfig{FilePath: path, Owner: snapshotOwner}, nil)
		if err != nil {
			return err
		}
		if err := r.Load(); err != nil {
			return errors.Wrapf(err, "invalid round snapshot %s", path)
		}
		fmt.Fprintf(w, "owner %s: %d iterations, %d rounds, adapter versions %v\n",
			r.Owner().Hex(), r.IterationCount(), r.RoundCount(), r.Versions())
		for it := uint64(1); it <= r.IterationCount(); it++ {
			rounds, err := r.GetRounds(it)
			if err != nil {
				return err
			}
			for _, rd := range rounds {
				fmt.Fprintf(w, "  %d/%d %s version %d\n", rd.Iteration, rd.Round, rd.Contract.Hex(), rd.Version)
			}
		}
		return nil
	case snapshotBadges:
		b, err := badge.NewRegistry(badge.RegistryConfig{FilePath: path})
		if err != nil {
			return err
		}
		if err := b.Load(); err != nil {
			return errors.Wrapf(err, "invalid badge snapshot %s", path)
		}
		fmt.Fprintf(w, "%d badges\n", b.Count())
		return nil
	default:
		return errors.Errorf("unknown snapshot kind %q", kind)
	}
}

// snapshotOwner stands in for the owner until the file provides one.
var snapshotOwner = common.BytesToAddress([]byte{1})
