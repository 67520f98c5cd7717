package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pob-voting/models"
	"pob-voting/storage"
)

func TestDefaults(t *testing.T) {
	require := require.New(t)
	cfg, err := Load("")
	require.NoError(err)
	require.Equal(Default(), cfg)
}

func TestYAMLThenEnv(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "pob.yaml")
	require.NoError(os.WriteFile(path, []byte(`
listenAddr: ":9000"
votingDuration: 2h
storage:
  backend: json
  dir: /var/lib/pob
log:
  level: debug
modeOverrides:
  "1/2": weighted
`), 0644))

	t.Setenv("POB_LISTEN_ADDR", ":9100")
	t.Setenv("POB_STORAGE_NUM_RETRIES", "5")
	t.Setenv("POB_LOG_FORMAT", "console")
	t.Setenv("POB_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(":9100", cfg.ListenAddr)
	require.Equal(2*time.Hour, cfg.VotingDuration)
	require.Equal(storage.Config{Backend: storage.BackendJSON, Dir: "/var/lib/pob", NumRetries: 5}, cfg.Storage)
	require.Equal("debug", cfg.Log.Level)
	require.Equal("console", cfg.Log.Format)
	require.Equal([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	modes, err := cfg.RoundModes()
	require.NoError(err)
	require.Equal([]RoundMode{{Iteration: 1, Round: 2, Mode: models.Weighted}}, modes)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"backend":  func(c *Config) { c.Storage.Backend = "leveldb" },
		"dir":      func(c *Config) { c.Storage.Dir = "" },
		"duration": func(c *Config) { c.VotingDuration = 0 },
		"queue":    func(c *Config) { c.QueueSize = 0 },
		"key":      func(c *Config) { c.ModeOverrides = map[string]string{"1": "weighted"} },
		"round":    func(c *Config) { c.ModeOverrides = map[string]string{"1/x": "weighted"} },
		"mode":     func(c *Config) { c.ModeOverrides = map[string]string{"1/1": "majority"} },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
