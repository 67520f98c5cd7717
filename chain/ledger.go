// Package chain serializes every state change into a hash-linked block log.
//
// Submit and Deploy run one at a time under the ledger lock. Each committed
// call becomes a block whose data is the JSON Entry of the call, so the log
// alone is enough to rebuild every contract with Replay. A call whose block
// cannot be persisted is rolled back through the Checkpointer of every state
// it may have touched.
package chain

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/models"
	"pob-voting/pkg/log"
	"pob-voting/storage"
	"pob-voting/voting"
)

var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrReplayMismatch  = errors.New("replayed call does not match the stored block")
)

// EventDeployed is added to the receipt of every deployment.
const EventDeployed = "ContractDeployed"

// Emitter is implemented by contracts that record events.
type Emitter interface {
	EventCount() int
	EventsSince(n int) []models.Event
}

// Checkpointer is implemented by state a call may change before its block is
// persisted. restore puts the state back as it was at Checkpoint.
type Checkpointer interface {
	Checkpoint() (restore func())
}

// Entry is the payload of a non-genesis block.
type Entry struct {
	Tx      models.Transaction `json:"tx"`
	Receipt models.Receipt     `json:"receipt"`
}

type genesis struct {
	ChainID string `json:"chain_id"`
}

// Deployment describes a contract known to the ledger.
type Deployment struct {
	Address  common.Address `json:"address"`
	Kind     string         `json:"kind"`
	Deployer common.Address `json:"deployer"`
	Block    uint64         `json:"block"`
	Contract any            `json:"-"`
}

// BuildFunc constructs a contract at its assigned address.
type BuildFunc func(addr common.Address, tx voting.Tx) (any, error)

type Ledger struct {
	chainID string
	clock   Clock
	store   storage.Store
	logger  *zap.Logger

	mu      sync.RWMutex
	blocks  []*models.Block
	deploys map[common.Address]uint64
	replay  *models.Block
	tracked []Checkpointer

	// cmu guards contracts separately so contract code running inside Submit
	// can still resolve other contracts.
	cmu       sync.RWMutex
	contracts map[common.Address]*Deployment
}

// New opens the chain chainID in store. A fresh chain gets a genesis block.
func New(chainID string, store storage.Store, clock Clock) (*Ledger, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	blocks, err := store.LoadChain(chainID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load chain %s", chainID)
	}
	if err := models.ValidateChain(blocks); err != nil {
		return nil, errors.Wrapf(err, "stored chain %s is corrupt", chainID)
	}
	l := &Ledger{
		chainID:   chainID,
		clock:     clock,
		store:     store,
		logger:    log.Logger("chain").With(zap.String("chain", chainID)),
		blocks:    blocks,
		deploys:   make(map[common.Address]uint64),
		contracts: make(map[common.Address]*Deployment),
	}
	if len(blocks) == 0 {
		data, err := json.Marshal(genesis{ChainID: chainID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal genesis")
		}
		if err := l.append(data, l.clock.Now().Unix()); err != nil {
			return nil, err
		}
	}
	l.logger.Info("ledger opened", zap.Int("blocks", len(l.blocks)))
	return l, nil
}

func (l *Ledger) ChainID() string { return l.chainID }

// Now is the time the next block would carry.
func (l *Ledger) Now() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextTime()
}

// nextTime truncates to block precision and never runs behind the tip.
func (l *Ledger) nextTime() time.Time {
	if l.replay != nil {
		return time.Unix(l.replay.Timestamp, 0)
	}
	now := l.clock.Now().Truncate(time.Second)
	if tip := l.blocks[len(l.blocks)-1]; now.Unix() < tip.Timestamp {
		return time.Unix(tip.Timestamp, 0)
	}
	return now
}

func (l *Ledger) append(data []byte, timestamp int64) error {
	var (
		index uint64
		prev  []byte
	)
	if n := len(l.blocks); n > 0 {
		index = l.blocks[n-1].Index + 1
		prev = l.blocks[n-1].Hash
	}
	b := models.NewBlock(index, timestamp, data, prev)
	if err := l.store.SaveBlock(l.chainID, b); err != nil {
		return errors.Wrapf(err, "failed to persist block %d", index)
	}
	l.blocks = append(l.blocks, b)
	return nil
}

// Track adds state outside any contract, such as account nonces, that every
// call may change. It must be called before the ledger serves traffic.
func (l *Ledger) Track(cp Checkpointer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracked = append(l.tracked, cp)
}

// checkpoint captures target, when it supports it, and the tracked state.
func (l *Ledger) checkpoint(target any) func() {
	var restores []func()
	if cp, ok := target.(Checkpointer); ok {
		restores = append(restores, cp.Checkpoint())
	}
	for _, cp := range l.tracked {
		restores = append(restores, cp.Checkpoint())
	}
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}

// Register attaches a contract that is not created through Deploy, such as
// the round registry.
func (l *Ledger) Register(addr common.Address, kind string, contract any) {
	l.cmu.Lock()
	defer l.cmu.Unlock()
	l.contracts[addr] = &Deployment{Address: addr, Kind: kind, Contract: contract}
}

func (l *Ledger) Contract(addr common.Address) (any, bool) {
	l.cmu.RLock()
	defer l.cmu.RUnlock()
	d, ok := l.contracts[addr]
	if !ok {
		return nil, false
	}
	return d.Contract, true
}

func (l *Ledger) Deployment(addr common.Address) (Deployment, bool) {
	l.cmu.RLock()
	defer l.cmu.RUnlock()
	d, ok := l.contracts[addr]
	if !ok {
		return Deployment{}, false
	}
	return *d, true
}

// Deployments lists every known contract ordered by address.
func (l *Ledger) Deployments() []Deployment {
	l.cmu.RLock()
	defer l.cmu.RUnlock()
	out := make([]Deployment, 0, len(l.contracts))
	for _, d := range l.contracts {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Cmp(out[j].Address) < 0
	})
	return out
}

// IsLocked reports whether the contract at addr is locked for history.
func (l *Ledger) IsLocked(addr common.Address) bool {
	c, ok := l.Contract(addr)
	if !ok {
		return false
	}
	locker, ok := c.(interface{ Locked() bool })
	return ok && locker.Locked()
}

// Deploy creates a contract at the address derived from the deployer and its
// deployment count.
func (l *Ledger) Deploy(ctx context.Context, tx models.Transaction, kind string, build BuildFunc) (*models.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	nonce := l.deploys[tx.From]
	addr := crypto.CreateAddress(tx.From, nonce)
	now := l.nextTime()
	restore := l.checkpoint(nil)
	contract, err := build(addr, voting.Tx{From: tx.From, Time: now})
	if err != nil {
		restore()
		return nil, err
	}

	tx.To = addr
	events := []models.Event{models.NewEvent(addr, now, EventDeployed, "kind", kind, "deployer", tx.From.Hex())}
	if em, ok := contract.(Emitter); ok {
		events = append(events, em.EventsSince(0)...)
	}
	receipt, err := l.commit(tx, now, events)
	if err != nil {
		restore()
		return nil, err
	}

	l.deploys[tx.From] = nonce + 1
	l.cmu.Lock()
	l.contracts[addr] = &Deployment{
		Address:  addr,
		Kind:     kind,
		Deployer: tx.From,
		Block:    receipt.BlockIndex,
		Contract: contract,
	}
	l.cmu.Unlock()
	l.logger.Info("contract deployed",
		zap.String("kind", kind),
		zap.String("address", addr.Hex()),
		zap.Uint64("block", receipt.BlockIndex))
	return receipt, nil
}

// Submit runs fn against the contract at tx.To. A successful fn is sealed
// into a block together with the events it emitted. When fn fails or the
// block cannot be persisted, the contract and the tracked state are restored
// and the chain is left untouched.
func (l *Ledger) Submit(ctx context.Context, tx models.Transaction, fn func(voting.Tx) error) (*models.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, ok := l.Contract(tx.To)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownContract, "%s", tx.To.Hex())
	}
	em, _ := target.(Emitter)

	l.mu.Lock()
	defer l.mu.Unlock()

	var before int
	if em != nil {
		before = em.EventCount()
	}
	now := l.nextTime()
	restore := l.checkpoint(target)
	if err := fn(voting.Tx{From: tx.From, Time: now}); err != nil {
		restore()
		return nil, err
	}
	var events []models.Event
	if em != nil {
		events = em.EventsSince(before)
	}
	receipt, err := l.commit(tx, now, events)
	if err != nil {
		restore()
		l.logger.Warn("call rolled back",
			zap.String("method", tx.Method),
			zap.String("to", tx.To.Hex()),
			zap.Error(err))
		return nil, err
	}
	return receipt, nil
}

func (l *Ledger) commit(tx models.Transaction, now time.Time, events []models.Event) (*models.Receipt, error) {
	if events == nil {
		events = []models.Event{}
	}
	if l.replay != nil {
		var stored Entry
		if err := json.Unmarshal(l.replay.Data, &stored); err != nil {
			return nil, errors.Wrapf(err, "block %d", l.replay.Index)
		}
		if stored.Receipt.To != tx.To || stored.Receipt.Method != tx.Method || len(stored.Receipt.Events) != len(events) {
			return nil, errors.Wrapf(ErrReplayMismatch, "block %d", l.replay.Index)
		}
		receipt := stored.Receipt
		return &receipt, nil
	}

	receipt := models.Receipt{
		TxID:       uuid.New().String(),
		From:       tx.From,
		To:         tx.To,
		Method:     tx.Method,
		Events:     events,
		BlockIndex: l.blocks[len(l.blocks)-1].Index + 1,
		Timestamp:  now.Unix(),
	}
	data, err := json.Marshal(Entry{Tx: tx, Receipt: receipt})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal block entry")
	}
	if err := l.append(data, now.Unix()); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Replay feeds every stored entry to apply in order. apply is expected to
// repeat the original Deploy or Submit call; those calls then reuse the
// stored block instead of appending a new one. Replay must run before the
// ledger serves traffic.
func (l *Ledger) Replay(ctx context.Context, apply func(ctx context.Context, entry Entry) error) error {
	l.mu.RLock()
	stored := make([]*models.Block, len(l.blocks))
	copy(stored, l.blocks)
	l.mu.RUnlock()

	for _, b := range stored[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		var entry Entry
		if err := json.Unmarshal(b.Data, &entry); err != nil {
			return errors.Wrapf(err, "block %d", b.Index)
		}
		l.mu.Lock()
		l.replay = b
		l.mu.Unlock()

		err := apply(ctx, entry)

		l.mu.Lock()
		l.replay = nil
		l.mu.Unlock()
		if err != nil {
			return errors.Wrapf(err, "replay block %d (%s)", b.Index, entry.Tx.Method)
		}
	}
	l.logger.Info("ledger replayed", zap.Int("blocks", len(stored)-1))
	return nil
}

// View runs fn while no Submit or Deploy is in flight.
func (l *Ledger) View(fn func() error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn()
}

// Blocks returns a copy of the block list.
func (l *Ledger) Blocks() []*models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1].Index
}

// Entry decodes the payload of block index.
func (l *Ledger) Entry(index uint64) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index == 0 || index >= uint64(len(l.blocks)) {
		return Entry{}, errors.Wrapf(storage.ErrNotExist, "block %d", index)
	}
	var entry Entry
	if err := json.Unmarshal(l.blocks[index].Data, &entry); err != nil {
		return Entry{}, errors.Wrapf(err, "block %d", index)
	}
	return entry, nil
}

func (l *Ledger) Validate() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.ValidateChain(l.blocks)
}
