package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pob-voting/api"
	"pob-voting/chain"
	"pob-voting/config"
	"pob-voting/models"
	"pob-voting/pkg/log"
	"pob-voting/service"
	"pob-voting/storage"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the voting ledger and its HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := commonRun()
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), cfg)
		},
	}
}

func serviceConfig(cfg *config.Config) (service.Config, error) {
	modes, err := cfg.RoundModes()
	if err != nil {
		return service.Config{}, err
	}
	overrides := make(map[service.RoundKey]models.VotingMode, len(modes))
	for _, m := range modes {
		overrides[service.RoundKey{Iteration: m.Iteration, Round: m.Round}] = m.Mode
	}
	return service.Config{
		DataDir:        cfg.Storage.Dir,
		ChainID:        cfg.ChainID,
		VotingDuration: cfg.VotingDuration,
		SnapshotFiles:  cfg.SnapshotFiles,
		ModeOverrides:  overrides,
	}, nil
}

func serveRun(ctx context.Context, cfg *config.Config) error {
	logger := log.Logger(programName)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "failed to open storage")
	}
	defer store.Close()

	svcCfg, err := serviceConfig(cfg)
	if err != nil {
		return err
	}
	vs, err := service.NewVotingService(ctx, svcCfg, store, chain.SystemClock{})
	if err != nil {
		return errors.Wrap(err, "failed to start voting service")
	}

	queue := service.NewQueueProcessor(vs, cfg.QueueSize, 0)
	queue.Start()

	srv := api.NewServer(api.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, vs, queue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		queue.Stop()
		return err
	})

	logger.Info("voting ledger running",
		zap.String("chain", cfg.ChainID),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("addr", cfg.ListenAddr))
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("voting ledger stopped", zap.Uint64("height", vs.Ledger().Height()))
	return nil
}
