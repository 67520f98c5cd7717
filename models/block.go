package models

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

var (
	ErrBlockHash      = errors.New("block hash mismatch")
	ErrBlockLink      = errors.New("block does not link to its parent")
	ErrBlockIndex     = errors.New("block index out of sequence")
	ErrBlockTimestamp = errors.New("block timestamp before parent")
)

type Block struct {
	Index     uint64 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Data      []byte `json:"data"`
	PrevHash  []byte `json:"prev_hash"`
	Hash      []byte `json:"hash"`
}

// NewBlock seals a block on top of prevHash.
func NewBlock(index uint64, timestamp int64, data []byte, prevHash []byte) *Block {
	b := &Block{
		Index:     index,
		Timestamp: timestamp,
		Data:      data,
		PrevHash:  prevHash,
	}
	b.Hash = b.calculateHash()
	return b
}

func (b *Block) calculateHash() []byte {
	var header [16]byte
	binary.BigEndian.PutUint64(header[:8], b.Index)
	binary.BigEndian.PutUint64(header[8:], uint64(b.Timestamp))

	d := sha3.NewLegacyKeccak256()
	d.Write(header[:])
	d.Write(b.Data)
	d.Write(b.PrevHash)
	return d.Sum(nil)
}

func (b *Block) Validate() bool {
	return bytes.Equal(b.calculateHash(), b.Hash)
}

// ValidateChain checks hashes, parent links, indices and timestamp order.
func ValidateChain(blocks []*Block) error {
	for i, cur := range blocks {
		if !cur.Validate() {
			return errors.Wrapf(ErrBlockHash, "block %d", cur.Index)
		}
		if i == 0 {
			if cur.Index != 0 || len(cur.PrevHash) != 0 {
				return errors.Wrap(ErrBlockLink, "genesis block")
			}
			continue
		}
		prev := blocks[i-1]
		if !bytes.Equal(cur.PrevHash, prev.Hash) {
			return errors.Wrapf(ErrBlockLink, "block %d", cur.Index)
		}
		if cur.Index != prev.Index+1 {
			return errors.Wrapf(ErrBlockIndex, "block %d follows %d", cur.Index, prev.Index)
		}
		if cur.Timestamp < prev.Timestamp {
			return errors.Wrapf(ErrBlockTimestamp, "block %d", cur.Index)
		}
	}
	return nil
}
