// Package signing authenticates ledger transactions with secp256k1 keys.
package signing

import (
	"crypto/ecdsa"
	"encoding/binary"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"pob-voting/models"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidKey       = errors.New("invalid private key")
)

const txDomain = "pob-voting/tx/v1"

type CryptoService struct{}

func NewCryptoService() *CryptoService {
	return &CryptoService{}
}

// GenerateKeyPair generates a new secp256k1 key pair
func (cs *CryptoService) GenerateKeyPair() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// ParsePrivateKey accepts a hex key with or without 0x prefix.
func (cs *CryptoService) ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return key, nil
}

func (cs *CryptoService) Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Sign signs a 32 byte hash.
func (cs *CryptoService) Sign(hash []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(hash, privateKey)
}

// RecoverAddress returns the account that produced sig over hash.
func (cs *CryptoService) RecoverAddress(hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.Wrapf(ErrInvalidSignature, "length %d", len(sig))
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Keccak256 computes Keccak-256 hash
func (cs *CryptoService) Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// TxHash is the digest a sender signs. The signature itself is not covered.
func (cs *CryptoService) TxHash(tx models.Transaction) []byte {
	keys := make([]string, 0, len(tx.Args))
	for k := range tx.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], tx.Nonce)
	parts := [][]byte{
		lengthPrefixed([]byte(txDomain)),
		tx.From.Bytes(),
		tx.To.Bytes(),
		lengthPrefixed([]byte(tx.Method)),
		nonce[:],
	}
	for _, k := range keys {
		parts = append(parts, lengthPrefixed([]byte(k)), lengthPrefixed([]byte(tx.Args[k])))
	}
	return cs.Keccak256(parts...)
}

func lengthPrefixed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

// SignTx fills in tx.From and tx.Signature.
func (cs *CryptoService) SignTx(tx *models.Transaction, key *ecdsa.PrivateKey) error {
	tx.From = cs.Address(key)
	sig, err := cs.Sign(cs.TxHash(*tx), key)
	if err != nil {
		return errors.Wrap(err, "failed to sign transaction")
	}
	tx.Signature = sig
	return nil
}

// Sender recovers the signer of tx.
func (cs *CryptoService) Sender(tx models.Transaction) (common.Address, error) {
	return cs.RecoverAddress(cs.TxHash(tx), tx.Signature)
}
