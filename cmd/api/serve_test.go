package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pob-voting/config"
	"pob-voting/models"
	"pob-voting/service"
)

func TestServiceConfig(t *testing.T) {
	require := require.New(t)
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.ModeOverrides = map[string]string{"1/2": "weighted"}

	svc, err := serviceConfig(cfg)
	require.NoError(err)
	require.Equal(cfg.Storage.Dir, svc.DataDir)
	require.Equal(cfg.ChainID, svc.ChainID)
	require.Equal(cfg.VotingDuration, svc.VotingDuration)
	require.Equal(models.Weighted, svc.ModeOverrides[service.RoundKey{Iteration: 1, Round: 2}])

	cfg.ModeOverrides = map[string]string{"1-2": "weighted"}
	_, err = serviceConfig(cfg)
	require.Error(err)
}
