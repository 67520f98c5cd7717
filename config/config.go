// Package config loads service settings from defaults, an optional YAML file
// and POB_* environment variables, in that order.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"pob-voting/models"
	"pob-voting/pkg/log"
	"pob-voting/storage"
)

const EnvPrefix = "POB"

type Config struct {
	Log             log.GlobalConfig  `yaml:"log"`
	Storage         storage.Config    `yaml:"storage"`
	ChainID         string            `yaml:"chainId"         split_words:"true"`
	ListenAddr      string            `yaml:"listenAddr"      split_words:"true"`
	CORSOrigins     []string          `yaml:"corsOrigins"     envconfig:"CORS_ORIGINS"`
	VotingDuration  time.Duration     `yaml:"votingDuration"  split_words:"true"`
	QueueSize       int               `yaml:"queueSize"       split_words:"true"`
	ShutdownTimeout time.Duration     `yaml:"shutdownTimeout" split_words:"true"`
	SnapshotFiles   bool              `yaml:"snapshotFiles"   split_words:"true"`
	ModeOverrides   map[string]string `yaml:"modeOverrides"   split_words:"true"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: log.GlobalConfig{Level: "info", Format: "json"},
		Storage: storage.Config{
			Backend:    storage.BackendBolt,
			Dir:        ".pob-voting",
			NumRetries: 3,
		},
		ChainID:         "ledger",
		ListenAddr:      ":8080",
		CORSOrigins:     []string{"*"},
		VotingDuration:  48 * time.Hour,
		QueueSize:       256,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load overlays configFile (if set) and the environment onto the defaults.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, errors.Wrap(err, "error reading config file")
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, errors.Wrap(err, "error parsing config file")
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "error processing environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendJSON, storage.BackendBolt:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Dir == "" {
		return errors.New("storage dir is required")
	}
	if c.VotingDuration <= 0 {
		return errors.Errorf("invalid voting duration %s", c.VotingDuration)
	}
	if c.QueueSize <= 0 {
		return errors.Errorf("invalid queue size %d", c.QueueSize)
	}
	if _, err := c.RoundModes(); err != nil {
		return err
	}
	return nil
}

// RoundMode forces the reported voting mode of one round.
type RoundMode struct {
	Iteration uint64
	Round     uint64
	Mode      models.VotingMode
}

// RoundModes parses ModeOverrides. Keys are "<iteration>/<round>".
func (c *Config) RoundModes() ([]RoundMode, error) {
	out := make([]RoundMode, 0, len(c.ModeOverrides))
	for key, value := range c.ModeOverrides {
		it, rd, ok := strings.Cut(key, "/")
		if !ok {
			return nil, errors.Errorf("mode override key %q is not iteration/round", key)
		}
		iteration, err := strconv.ParseUint(it, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "mode override key %q", key)
		}
		round, err := strconv.ParseUint(rd, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "mode override key %q", key)
		}
		mode, err := models.ParseVotingMode(value)
		if err != nil {
			return nil, errors.Wrapf(err, "mode override %q", key)
		}
		out = append(out, RoundMode{Iteration: iteration, Round: round, Mode: mode})
	}
	return out, nil
}
