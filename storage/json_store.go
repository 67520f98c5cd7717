package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/models"
	"pob-voting/pkg/log"
)

// Chain is the on-disk form of one chain.
type Chain struct {
	Blocks []*models.Block `json:"blocks"`
}

// JSONStore keeps each chain in <basePath>/<chain>_chain.json.
type JSONStore struct {
	basePath string
	mu       sync.RWMutex
	chains   map[string]*Chain
	closed   bool
}

func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	return &JSONStore{
		basePath: basePath,
		chains:   make(map[string]*Chain),
	}, nil
}

func (s *JSONStore) path(chainID string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s_chain.json", chainID))
}

// chain returns the cached chain, reading it from disk on first use.
func (s *JSONStore) chain(chainID string) (*Chain, error) {
	if c, ok := s.chains[chainID]; ok {
		return c, nil
	}
	c, err := s.loadChainFromFile(chainID)
	if err != nil {
		return nil, err
	}
	s.chains[chainID] = c
	return c, nil
}

func (s *JSONStore) SaveBlock(chainID string, block *models.Block) error {
	if err := checkChainID(chainID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	chain, err := s.chain(chainID)
	if err != nil {
		return err
	}
	if want := uint64(len(chain.Blocks)); block.Index != want {
		return errors.Wrapf(ErrBlockOrder, "chain %s: got index %d, want %d", chainID, block.Index, want)
	}

	chain.Blocks = append(chain.Blocks, block)
	if err := s.saveChainToFile(chainID, chain); err != nil {
		chain.Blocks = chain.Blocks[:len(chain.Blocks)-1]
		return err
	}
	return nil
}

func (s *JSONStore) LoadChain(chainID string) ([]*models.Block, error) {
	if err := checkChainID(chainID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	chain, err := s.chain(chainID)
	if err != nil {
		return nil, err
	}
	blocks := make([]*models.Block, len(chain.Blocks))
	copy(blocks, chain.Blocks)
	return blocks, nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.chains = nil
	return nil
}

func (s *JSONStore) loadChainFromFile(chainID string) (*Chain, error) {
	data, err := os.ReadFile(s.path(chainID))
	if err != nil {
		if os.IsNotExist(err) {
			return &Chain{Blocks: make([]*models.Block, 0)}, nil
		}
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	var chain Chain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal chain %s", chainID)
	}
	log.L().Debug("chain loaded", zap.String("chain", chainID), zap.Int("blocks", len(chain.Blocks)))
	return &chain, nil
}

func (s *JSONStore) saveChainToFile(chainID string, chain *Chain) error {
	path := s.path(chainID)
	data, err := json.MarshalIndent(chain, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal chain")
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}
