// Package storage persists ledger blocks per chain.
package storage

import (
	"regexp"

	"github.com/pkg/errors"

	"pob-voting/models"
)

var (
	ErrIO           = errors.New("storage I/O error")
	ErrNotExist     = errors.New("not exist in storage")
	ErrInvalidChain = errors.New("invalid chain id")
	ErrBlockOrder   = errors.New("block does not extend stored chain")
	ErrClosed       = errors.New("store closed")
)

// Store appends blocks to named chains and reads them back in index order.
type Store interface {
	SaveBlock(chainID string, block *models.Block) error
	LoadChain(chainID string) ([]*models.Block, error)
	Close() error
}

const (
	BackendJSON = "json"
	BackendBolt = "bolt"
)

type Config struct {
	Backend    string `yaml:"backend" envconfig:"BACKEND"`
	Dir        string `yaml:"dir" envconfig:"DIR"`
	NumRetries uint8  `yaml:"num_retries" envconfig:"NUM_RETRIES"`
}

var chainIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

func checkChainID(chainID string) error {
	if !chainIDPattern.MatchString(chainID) {
		return errors.Wrapf(ErrInvalidChain, "%q", chainID)
	}
	return nil
}

// New opens the store selected by cfg.Backend.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendJSON:
		return NewJSONStore(cfg.Dir)
	case BackendBolt:
		return NewBoltStore(cfg)
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
