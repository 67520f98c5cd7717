// Package registry routes (iteration, round) pairs to voting contracts and
// round versions to adapters.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/models"
	"pob-voting/pkg/log"
	"pob-voting/voting"
)

// MaxRoundsPerIteration bounds the rounds of one iteration.
const MaxRoundsPerIteration = 8

const (
	EventIterationRegistered = "IterationRegistered"
	EventRoundAdded          = "RoundAdded"
	EventAdapterSet          = "AdapterSet"
	EventRoundVersionSet     = "RoundVersionSet"
)

var (
	ErrOwnerOnly              = voting.ErrOwnerOnly
	ErrZeroAddress            = voting.ErrZeroAddress
	ErrNonContiguousIteration = errors.New("iteration ids must be contiguous")
	ErrIterationNotFound      = errors.New("iteration not found")
	ErrNonContiguousRound     = errors.New("round ids must be contiguous")
	ErrMaxRounds              = errors.New("max rounds per iteration exceeded")
	ErrContractReused         = errors.New("voting contract already registered")
	ErrRoundNotFound          = errors.New("round not found")
	ErrVersionNotSet          = errors.New("round version not set")
	ErrAdapterNotSet          = errors.New("adapter not set for version")
	ErrRoundImmutable         = errors.New("round is immutable")
)

// Round binds one voting period to its contract.
type Round struct {
	Iteration       uint64         `json:"iteration"`
	Round           uint64         `json:"round"`
	Contract        common.Address `json:"contract"`
	DeployBlockHint uint64         `json:"deploy_block_hint"`
	Version         uint64         `json:"version,omitempty"`
}

// Iteration is one edition of the grant program.
type Iteration struct {
	ID      uint64   `json:"id"`
	ChainID uint64   `json:"chain_id"`
	Rounds  []*Round `json:"rounds"`
}

// LockChecker tells whether a voting contract is locked for history.
type LockChecker interface {
	IsLocked(contract common.Address) bool
}

type RegistryConfig struct {
	Address  common.Address `json:"address"`
	FilePath string         `json:"file_path"`
	AutoSave bool           `json:"auto_save"`
	Owner    common.Address `json:"owner"`
}

type registryFile struct {
	Owner      common.Address            `json:"owner"`
	Iterations []*Iteration              `json:"iterations"`
	Adapters   map[uint64]common.Address `json:"adapters"`
}

// Registry is the round and version registry.
type Registry struct {
	address    common.Address
	owner      common.Address
	iterations []*Iteration
	byContract map[common.Address]*Round
	adapters   map[uint64]common.Address
	locks      LockChecker
	events     []models.Event
	mu         sync.RWMutex
	config     RegistryConfig
}

func NewRegistry(config RegistryConfig, locks LockChecker) (*Registry, error) {
	if config.Owner == (common.Address{}) {
		return nil, errors.Wrap(ErrZeroAddress, "registry owner")
	}
	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create directory")
		}
	}
	return &Registry{
		address:    config.Address,
		owner:      config.Owner,
		byContract: make(map[common.Address]*Round),
		adapters:   make(map[uint64]common.Address),
		locks:      locks,
		config:     config,
	}, nil
}

// Load replaces the registry with the contents of a snapshot file after
// checking its ordering rules. The ledger never reads snapshots back; Load
// serves offline inspection.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.FilePath == "" {
		return errors.New("no registry file configured")
	}
	data, err := os.ReadFile(r.config.FilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read registry file")
	}
	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to unmarshal registry")
	}
	byContract, err := validateFile(&file)
	if err != nil {
		return err
	}
	if file.Owner != (common.Address{}) {
		r.owner = file.Owner
	}
	r.iterations = file.Iterations
	r.byContract = byContract
	r.adapters = file.Adapters
	if r.adapters == nil {
		r.adapters = make(map[uint64]common.Address)
	}
	log.L().Info("round registry loaded",
		zap.Int("iterations", len(r.iterations)),
		zap.Int("rounds", len(byContract)),
		zap.Int("adapters", len(r.adapters)))
	return nil
}

func validateFile(file *registryFile) (map[common.Address]*Round, error) {
	byContract := make(map[common.Address]*Round)
	for i, it := range file.Iterations {
		if it == nil || it.ID != uint64(i+1) {
			return nil, errors.Wrapf(ErrNonContiguousIteration, "entry %d", i)
		}
		if len(it.Rounds) > MaxRoundsPerIteration {
			return nil, errors.Wrapf(ErrMaxRounds, "iteration %d", it.ID)
		}
		for j, rd := range it.Rounds {
			if rd == nil || rd.Round != uint64(j+1) || rd.Iteration != it.ID {
				return nil, errors.Wrapf(ErrNonContiguousRound, "iteration %d entry %d", it.ID, j)
			}
			if _, dup := byContract[rd.Contract]; dup {
				return nil, errors.Wrapf(ErrContractReused, "%s", rd.Contract.Hex())
			}
			if rd.Version != 0 {
				if _, ok := file.Adapters[rd.Version]; !ok {
					return nil, errors.Wrapf(ErrAdapterNotSet, "version %d", rd.Version)
				}
			}
			byContract[rd.Contract] = rd
		}
	}
	return byContract, nil
}

func (r *Registry) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	if r.config.FilePath == "" {
		return nil
	}
	iterations := r.iterations
	if iterations == nil {
		iterations = []*Iteration{}
	}
	data, err := json.MarshalIndent(registryFile{
		Owner:      r.owner,
		Iterations: iterations,
		Adapters:   r.adapters,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal registry")
	}
	tmp := r.config.FilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write registry file")
	}
	if err := os.Rename(tmp, r.config.FilePath); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to save registry file")
	}
	return nil
}

type state struct {
	owner      common.Address
	iterations []*Iteration
	byContract map[common.Address]*Round
	adapters   map[uint64]common.Address
	events     int
}

func (r *Registry) stateLocked() state {
	st := state{
		owner:      r.owner,
		iterations: make([]*Iteration, len(r.iterations)),
		byContract: make(map[common.Address]*Round, len(r.byContract)),
		adapters:   make(map[uint64]common.Address, len(r.adapters)),
		events:     len(r.events),
	}
	for i, it := range r.iterations {
		cp := &Iteration{ID: it.ID, ChainID: it.ChainID, Rounds: make([]*Round, len(it.Rounds))}
		for j, rd := range it.Rounds {
			rc := *rd
			cp.Rounds[j] = &rc
			st.byContract[rc.Contract] = &rc
		}
		st.iterations[i] = cp
	}
	for v, a := range r.adapters {
		st.adapters[v] = a
	}
	return st
}

func (r *Registry) restoreLocked(st state) {
	r.owner = st.owner
	r.iterations = st.iterations
	r.byContract = st.byContract
	r.adapters = st.adapters
	r.events = r.events[:st.events]
}

// Checkpoint captures the rounds, adapters and events. The returned func
// restores them.
func (r *Registry) Checkpoint() func() {
	r.mu.RLock()
	st := r.stateLocked()
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.restoreLocked(st)
		if !r.config.AutoSave {
			return
		}
		if err := r.saveLocked(); err != nil {
			log.L().Warn("failed to rewrite registry snapshot", zap.Error(err))
		}
	}
}

// commit writes the snapshot. A failed write puts back the state captured
// before the mutation.
func (r *Registry) commit(before state) error {
	if !r.config.AutoSave {
		return nil
	}
	if err := r.saveLocked(); err != nil {
		r.restoreLocked(before)
		return err
	}
	return nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func (r *Registry) emit(at time.Time, name string, kv ...string) {
	r.events = append(r.events, models.NewEvent(r.address, at, name, kv...))
}

func (r *Registry) Address() common.Address { return r.address }

func (r *Registry) EventCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// EventsSince returns the events from index n on.
func (r *Registry) EventsSince(n int) []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n < 0 || n >= len(r.events) {
		return nil
	}
	out := make([]models.Event, len(r.events)-n)
	copy(out, r.events[n:])
	return out
}

func (r *Registry) Owner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// RegisterIteration appends the next iteration; id must be one past the last.
func (r *Registry) RegisterIteration(tx voting.Tx, id, chainID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.From != r.owner {
		return ErrOwnerOnly
	}
	if want := uint64(len(r.iterations)) + 1; id != want {
		return errors.Wrapf(ErrNonContiguousIteration, "got %d, want %d", id, want)
	}
	before := r.stateLocked()
	r.iterations = append(r.iterations, &Iteration{ID: id, ChainID: chainID, Rounds: []*Round{}})
	r.emit(tx.Time, EventIterationRegistered, "iteration", u64(id), "chainId", u64(chainID))
	return r.commit(before)
}

func (r *Registry) iteration(id uint64) (*Iteration, error) {
	if id == 0 || id > uint64(len(r.iterations)) {
		return nil, errors.Wrapf(ErrIterationNotFound, "iteration %d", id)
	}
	return r.iterations[id-1], nil
}

// AddRound appends the next round of an iteration.
func (r *Registry) AddRound(tx voting.Tx, iterationID, roundID uint64, contract common.Address, deployBlockHint uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.From != r.owner {
		return ErrOwnerOnly
	}
	it, err := r.iteration(iterationID)
	if err != nil {
		return err
	}
	if contract == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "voting contract")
	}
	if len(it.Rounds) >= MaxRoundsPerIteration {
		return errors.Wrapf(ErrMaxRounds, "iteration %d", iterationID)
	}
	if want := uint64(len(it.Rounds)) + 1; roundID != want {
		return errors.Wrapf(ErrNonContiguousRound, "got %d, want %d", roundID, want)
	}
	if prev, ok := r.byContract[contract]; ok {
		return errors.Wrapf(ErrContractReused, "%s is iteration %d round %d", contract.Hex(), prev.Iteration, prev.Round)
	}
	before := r.stateLocked()
	rd := &Round{
		Iteration:       iterationID,
		Round:           roundID,
		Contract:        contract,
		DeployBlockHint: deployBlockHint,
	}
	it.Rounds = append(it.Rounds, rd)
	r.byContract[contract] = rd
	r.emit(tx.Time, EventRoundAdded,
		"iteration", u64(iterationID), "round", u64(roundID), "contract", contract.Hex())
	return r.commit(before)
}

// SetAdapter registers or replaces the adapter of a version.
func (r *Registry) SetAdapter(tx voting.Tx, version uint64, adapter common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.From != r.owner {
		return ErrOwnerOnly
	}
	if version == 0 {
		return errors.Wrap(ErrVersionNotSet, "version 0 is reserved")
	}
	if adapter == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "adapter")
	}
	before := r.stateLocked()
	r.adapters[version] = adapter
	r.emit(tx.Time, EventAdapterSet, "version", u64(version), "adapter", adapter.Hex())
	return r.commit(before)
}

// SetRoundVersion picks the adapter version of a round. The version of a
// round whose contract is locked can only be set once.
func (r *Registry) SetRoundVersion(tx voting.Tx, iterationID, roundID, version uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.From != r.owner {
		return ErrOwnerOnly
	}
	rd, err := r.round(iterationID, roundID)
	if err != nil {
		return err
	}
	if _, ok := r.adapters[version]; !ok {
		return errors.Wrapf(ErrAdapterNotSet, "version %d", version)
	}
	if rd.Version != 0 && rd.Version != version && r.locks != nil && r.locks.IsLocked(rd.Contract) {
		return errors.Wrapf(ErrRoundImmutable, "iteration %d round %d", iterationID, roundID)
	}
	before := r.stateLocked()
	rd.Version = version
	r.emit(tx.Time, EventRoundVersionSet,
		"iteration", u64(iterationID), "round", u64(roundID), "version", u64(version))
	return r.commit(before)
}

func (r *Registry) round(iterationID, roundID uint64) (*Round, error) {
	it, err := r.iteration(iterationID)
	if err != nil {
		return nil, errors.Wrapf(ErrRoundNotFound, "iteration %d round %d", iterationID, roundID)
	}
	if roundID == 0 || roundID > uint64(len(it.Rounds)) {
		return nil, errors.Wrapf(ErrRoundNotFound, "iteration %d round %d", iterationID, roundID)
	}
	return it.Rounds[roundID-1], nil
}

func (r *Registry) GetRound(iterationID, roundID uint64) (Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, err := r.round(iterationID, roundID)
	if err != nil {
		return Round{}, err
	}
	return *rd, nil
}

func (r *Registry) GetRounds(iterationID uint64) ([]Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, err := r.iteration(iterationID)
	if err != nil {
		return nil, err
	}
	out := make([]Round, len(it.Rounds))
	for i, rd := range it.Rounds {
		out[i] = *rd
	}
	return out, nil
}

func (r *Registry) GetRoundByContract(contract common.Address) (Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.byContract[contract]
	if !ok {
		return Round{}, errors.Wrapf(ErrRoundNotFound, "contract %s", contract.Hex())
	}
	return *rd, nil
}

// GetPrevRoundContracts lists the contracts of all earlier rounds of the
// iteration contract belongs to, oldest first.
func (r *Registry) GetPrevRoundContracts(contract common.Address) ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.byContract[contract]
	if !ok {
		return nil, errors.Wrapf(ErrRoundNotFound, "contract %s", contract.Hex())
	}
	it := r.iterations[rd.Iteration-1]
	out := make([]common.Address, 0, rd.Round-1)
	for _, prev := range it.Rounds[:rd.Round-1] {
		out = append(out, prev.Contract)
	}
	return out, nil
}

// GetAdapterConfig resolves a round to its voting contract and adapter.
func (r *Registry) GetAdapterConfig(iterationID, roundID uint64) (contract, adapter common.Address, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, err := r.round(iterationID, roundID)
	if err != nil {
		return
	}
	if rd.Version == 0 {
		err = errors.Wrapf(ErrVersionNotSet, "iteration %d round %d", iterationID, roundID)
		return
	}
	adapter, ok := r.adapters[rd.Version]
	if !ok {
		err = errors.Wrapf(ErrAdapterNotSet, "version %d", rd.Version)
		return
	}
	return rd.Contract, adapter, nil
}

func (r *Registry) Adapter(version uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[version]
	return a, ok
}

// Versions lists the versions that have an adapter, ascending.
func (r *Registry) Versions() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.adapters))
	for v := range r.adapters {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IterationCount is the number of registered iterations.
func (r *Registry) IterationCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.iterations))
}

// RoundCount is the number of rounds across all iterations.
func (r *Registry) RoundCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byContract)
}
