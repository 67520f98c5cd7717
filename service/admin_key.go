package service

import (
	"crypto/ecdsa"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"pob-voting/signing"
)

type AdminCredentials struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

const adminKeyFile = "admin_credentials.json"

// loadOrGenerateAdminKey reads the operator key from dir, creating one on
// first start.
func loadOrGenerateAdminKey(cs *signing.CryptoService, dir string) (*ecdsa.PrivateKey, error) {
	path := filepath.Join(dir, adminKeyFile)

	if data, err := os.ReadFile(path); err == nil {
		var creds AdminCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, errors.Wrap(err, "failed to parse admin credentials")
		}
		key, err := cs.ParsePrivateKey(creds.PrivateKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to restore admin private key")
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read admin credentials")
	}

	key, err := cs.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate admin key")
	}
	creds := AdminCredentials{
		Address:    cs.Address(key).Hex(),
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal admin credentials")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create key directory")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, errors.Wrap(err, "failed to save admin credentials")
	}
	return key, nil
}
