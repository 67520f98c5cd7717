package service

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/models"
	"pob-voting/signing"
)

// TxVerifier authenticates transactions and guards against replays.
type TxVerifier struct {
	crypto  *signing.CryptoService
	methods map[string]struct{}

	mu     sync.Mutex
	nonces map[common.Address]uint64
}

func NewTxVerifier(crypto *signing.CryptoService, methods []string) *TxVerifier {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	return &TxVerifier{
		crypto:  crypto,
		methods: allowed,
		nonces:  make(map[common.Address]uint64),
	}
}

// Verify checks the method name and that tx was signed by tx.From.
func (v *TxVerifier) Verify(tx models.Transaction) error {
	if _, ok := v.methods[tx.Method]; !ok {
		return errors.Wrapf(ErrUnknownMethod, "%q", tx.Method)
	}
	sender, err := v.crypto.Sender(tx)
	if err != nil {
		return err
	}
	if sender != tx.From {
		return errors.Wrapf(ErrSenderMismatch, "signed by %s, claims %s", sender.Hex(), tx.From.Hex())
	}
	return nil
}

// CheckNonce requires nonce to exceed the last nonce committed by from.
func (v *TxVerifier) CheckNonce(from common.Address, nonce uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if last, ok := v.nonces[from]; ok && nonce <= last {
		return errors.Wrapf(ErrStaleNonce, "%d <= %d", nonce, last)
	}
	return nil
}

func (v *TxVerifier) Commit(from common.Address, nonce uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nonces[from] = nonce
}

// Checkpoint captures the committed nonces. The returned func restores them.
func (v *TxVerifier) Checkpoint() func() {
	v.mu.Lock()
	saved := make(map[common.Address]uint64, len(v.nonces))
	for addr, n := range v.nonces {
		saved[addr] = n
	}
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.nonces = saved
	}
}

// NextNonce is the lowest nonce from may use next.
func (v *TxVerifier) NextNonce(from common.Address) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	last, ok := v.nonces[from]
	if !ok {
		return 0
	}
	return last + 1
}
