package storage

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"pob-voting/models"
)

const (
	fileMode = 0600
	boltFile = "ledger.db"
)

// BoltStore keeps one bucket per chain keyed by big-endian block index.
type BoltStore struct {
	db         *bolt.DB
	numRetries uint8
}

func NewBoltStore(cfg Config) (*BoltStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	db, err := bolt.Open(filepath.Join(cfg.Dir, boltFile), fileMode, nil)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	retries := cfg.NumRetries
	if retries == 0 {
		retries = 1
	}
	return &BoltStore{db: db, numRetries: retries}, nil
}

func indexKey(index uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], index)
	return k[:]
}

func (b *BoltStore) SaveBlock(chainID string, block *models.Block) (err error) {
	if err := checkChainID(chainID); err != nil {
		return err
	}
	value, err := json.Marshal(block)
	if err != nil {
		return errors.Wrap(err, "failed to marshal block")
	}
	for c := uint8(0); c < b.numRetries; c++ {
		err = b.db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte(chainID))
			if err != nil {
				return err
			}
			var want uint64
			if k, _ := bucket.Cursor().Last(); k != nil {
				want = binary.BigEndian.Uint64(k) + 1
			}
			if block.Index != want {
				return errors.Wrapf(ErrBlockOrder, "chain %s: got index %d, want %d", chainID, block.Index, want)
			}
			return bucket.Put(indexKey(block.Index), value)
		})
		if err == nil || errors.Cause(err) == ErrBlockOrder {
			break
		}
	}
	if err != nil && errors.Cause(err) != ErrBlockOrder {
		err = errors.Wrap(ErrIO, err.Error())
	}
	return err
}

func (b *BoltStore) LoadChain(chainID string) ([]*models.Block, error) {
	if err := checkChainID(chainID); err != nil {
		return nil, err
	}
	blocks := make([]*models.Block, 0)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(chainID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var block models.Block
			if err := json.Unmarshal(v, &block); err != nil {
				return errors.Wrapf(err, "block %x", k)
			}
			blocks = append(blocks, &block)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	return blocks, nil
}

// Block reads a single block by index.
func (b *BoltStore) Block(chainID string, index uint64) (*models.Block, error) {
	var block models.Block
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(chainID))
		if bucket == nil {
			return errors.Wrapf(ErrNotExist, "bucket = %s doesn't exist", chainID)
		}
		v := bucket.Get(indexKey(index))
		if v == nil {
			return errors.Wrapf(ErrNotExist, "block %d doesn't exist", index)
		}
		return json.Unmarshal(v, &block)
	})
	if err == nil {
		return &block, nil
	}
	if errors.Cause(err) == ErrNotExist {
		return nil, err
	}
	return nil, errors.Wrap(ErrIO, err.Error())
}

func (b *BoltStore) Close() error {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}
	}
	return nil
}
