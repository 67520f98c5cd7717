package badge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/models"
	"pob-voting/pkg/log"
)

// Token is one minted badge.
type Token struct {
	ID        uint64         `json:"id"`
	Owner     common.Address `json:"owner"`
	Iteration uint64         `json:"iteration"`
	Role      models.Role    `json:"role"`
	Claimed   bool           `json:"claimed"`
	MintedAt  time.Time      `json:"minted_at"`
}

type RegistryConfig struct {
	Address   common.Address `json:"address"`
	Iteration uint64         `json:"iteration"`
	FilePath  string         `json:"file_path"`
	AutoSave  bool           `json:"auto_save"`
}

// Registry is a badge contract that can mirror its tokens into a JSON file.
type Registry struct {
	tokens  map[uint64]*Token
	byOwner map[common.Address]uint64
	nextID  uint64
	gates   []ActivityChecker
	mu      sync.RWMutex
	config  RegistryConfig
}

type registryFile struct {
	Tokens []*Token `json:"tokens"`
}

var _ Contract = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create directory")
		}
	}
	return &Registry{
		tokens:  make(map[uint64]*Token),
		byOwner: make(map[common.Address]uint64),
		nextID:  1,
		config:  config,
	}, nil
}

// Bind adds a voting window that blocks transfers while it is active. Every
// bound window is consulted, so several rounds can share one badge contract.
func (r *Registry) Bind(voting ActivityChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates = append(r.gates, voting)
}

func (r *Registry) votingActive(now time.Time) bool {
	for _, g := range r.gates {
		if g.IsActive(now) {
			return true
		}
	}
	return false
}

// Checkpoint captures every token. The returned func restores them.
func (r *Registry) Checkpoint() func() {
	r.mu.RLock()
	tokens, byOwner, nextID := r.cloneLocked()
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tokens, r.byOwner, r.nextID = tokens, byOwner, nextID
		if !r.config.AutoSave {
			return
		}
		if err := r.saveLocked(); err != nil {
			log.L().Warn("failed to rewrite badge snapshot", zap.Error(err))
		}
	}
}

func (r *Registry) cloneLocked() (map[uint64]*Token, map[common.Address]uint64, uint64) {
	tokens := make(map[uint64]*Token, len(r.tokens))
	for id, tok := range r.tokens {
		cp := *tok
		tokens[id] = &cp
	}
	byOwner := make(map[common.Address]uint64, len(r.byOwner))
	for owner, id := range r.byOwner {
		byOwner[owner] = id
	}
	return tokens, byOwner, r.nextID
}

// Load replaces the in-memory tokens with the contents of a snapshot file.
// The ledger never reads snapshots back; Load serves offline inspection.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.FilePath == "" {
		return errors.New("no badge file configured")
	}
	data, err := os.ReadFile(r.config.FilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read badge file")
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to unmarshal badge data")
	}

	tokens := make(map[uint64]*Token, len(file.Tokens))
	byOwner := make(map[common.Address]uint64, len(file.Tokens))
	nextID := uint64(1)
	for _, tok := range file.Tokens {
		if err := validateToken(tok); err != nil {
			return errors.Wrapf(err, "badge %d", tok.ID)
		}
		if _, dup := tokens[tok.ID]; dup {
			return errors.Wrapf(ErrInvalidBadge, "duplicate id %d", tok.ID)
		}
		if _, dup := byOwner[tok.Owner]; dup {
			return errors.Wrapf(ErrAlreadyMinted, "%s", tok.Owner.Hex())
		}
		tokens[tok.ID] = tok
		byOwner[tok.Owner] = tok.ID
		if tok.ID >= nextID {
			nextID = tok.ID + 1
		}
	}
	r.tokens, r.byOwner, r.nextID = tokens, byOwner, nextID
	log.L().Debug("badges loaded", zap.Int("count", len(tokens)), zap.String("file", r.config.FilePath))
	return nil
}

func validateToken(tok *Token) error {
	if tok == nil {
		return errors.Wrap(ErrInvalidBadge, "empty entry")
	}
	if tok.ID == 0 {
		return errors.Wrap(ErrInvalidBadge, "id is required")
	}
	if tok.Owner == (common.Address{}) {
		return errors.Wrap(ErrInvalidBadge, "owner is required")
	}
	if tok.Role == models.RoleNone {
		return errors.Wrap(ErrInvalidBadge, "role is required")
	}
	return nil
}

// Save writes all tokens to the backing file.
func (r *Registry) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	if r.config.FilePath == "" {
		return nil
	}
	file := registryFile{Tokens: make([]*Token, 0, len(r.tokens))}
	for id := uint64(1); id < r.nextID; id++ {
		if tok, ok := r.tokens[id]; ok {
			file.Tokens = append(file.Tokens, tok)
		}
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal badge data")
	}
	tmp := r.config.FilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write badge file")
	}
	if err := os.Rename(tmp, r.config.FilePath); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to save badge file")
	}
	return nil
}

// autoSave writes the snapshot and calls undo when the write fails, so a
// mutation is only kept once it is mirrored.
func (r *Registry) autoSave(undo func()) error {
	if !r.config.AutoSave {
		return nil
	}
	if err := r.saveLocked(); err != nil {
		undo()
		return err
	}
	return nil
}

// Mint issues a badge for the registry's iteration. One badge per account.
func (r *Registry) Mint(owner common.Address, role models.Role, now time.Time) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOwner[owner]; ok {
		return 0, errors.Wrapf(ErrAlreadyMinted, "%s", owner.Hex())
	}
	tok := &Token{
		ID:        r.nextID,
		Owner:     owner,
		Iteration: r.config.Iteration,
		Role:      role,
		MintedAt:  now,
	}
	if err := validateToken(tok); err != nil {
		return 0, err
	}
	r.tokens[tok.ID] = tok
	r.byOwner[owner] = tok.ID
	r.nextID++
	if err := r.autoSave(func() {
		delete(r.tokens, tok.ID)
		delete(r.byOwner, owner)
		r.nextID--
	}); err != nil {
		return 0, err
	}
	return tok.ID, nil
}

// Transfer moves a badge. It is refused while any bound voting window is active.
func (r *Registry) Transfer(from, to common.Address, tokenID uint64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[tokenID]
	if !ok {
		return errors.Wrapf(ErrTokenNotFound, "token %d", tokenID)
	}
	if tok.Owner != from {
		return errors.Wrapf(ErrNotTokenOwner, "token %d", tokenID)
	}
	if r.votingActive(now) {
		return ErrTransferWhileActive
	}
	if _, ok := r.byOwner[to]; ok {
		return errors.Wrapf(ErrAlreadyMinted, "%s", to.Hex())
	}
	delete(r.byOwner, from)
	tok.Owner = to
	r.byOwner[to] = tokenID
	return r.autoSave(func() {
		delete(r.byOwner, to)
		tok.Owner = from
		r.byOwner[from] = tokenID
	})
}

// Claim marks a badge's deposit as claimed.
func (r *Registry) Claim(owner common.Address, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[tokenID]
	if !ok {
		return errors.Wrapf(ErrTokenNotFound, "token %d", tokenID)
	}
	if tok.Owner != owner {
		return errors.Wrapf(ErrNotTokenOwner, "token %d", tokenID)
	}
	if tok.Claimed {
		return errors.Wrapf(ErrAlreadyClaimed, "token %d", tokenID)
	}
	tok.Claimed = true
	return r.autoSave(func() { tok.Claimed = false })
}

func (r *Registry) Address() common.Address {
	return r.config.Address
}

func (r *Registry) Iteration() uint64 {
	return r.config.Iteration
}

// Count is the number of minted badges.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

func (r *Registry) HasMinted(owner common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byOwner[owner]
	return ok
}

func (r *Registry) RoleOf(owner common.Address) models.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[owner]
	if !ok {
		return models.RoleNone
	}
	return r.tokens[id].Role
}

func (r *Registry) token(tokenID uint64) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[tokenID]
	if !ok {
		return Token{}, errors.Wrapf(ErrTokenNotFound, "token %d", tokenID)
	}
	return *tok, nil
}

func (r *Registry) OwnerOf(tokenID uint64) (common.Address, error) {
	tok, err := r.token(tokenID)
	return tok.Owner, err
}

func (r *Registry) TokenIteration(tokenID uint64) (uint64, error) {
	tok, err := r.token(tokenID)
	return tok.Iteration, err
}

func (r *Registry) TokenRole(tokenID uint64) (models.Role, error) {
	tok, err := r.token(tokenID)
	return tok.Role, err
}

func (r *Registry) Claimed(tokenID uint64) (bool, error) {
	tok, err := r.token(tokenID)
	return tok.Claimed, err
}
