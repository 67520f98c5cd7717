// Package voting implements the three generations of jury voting contracts.
//
// Every generation shares the same building blocks (project directory, voter
// rosters, vote ledgers, lifecycle) but exposes its own method surface. A
// mutation validates everything before it touches state, so a failed call
// leaves no trace.
package voting

import (
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/badge"
	"pob-voting/models"
	"pob-voting/pkg/log"
	"pob-voting/projects"
	"pob-voting/tally"
	"pob-voting/voters"
)

// Tx carries the sender and block time of the calling transaction.
type Tx struct {
	From common.Address
	Time time.Time
}

// Config holds the deployment parameters of a voting contract.
type Config struct {
	Address   common.Address
	Owner     common.Address
	Iteration uint64
	Duration  time.Duration
	Badge     badge.Contract
}

func (cfg Config) validate() error {
	if cfg.Address == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "contract address")
	}
	if cfg.Owner == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "owner")
	}
	if cfg.Duration <= 0 {
		return errors.Errorf("invalid voting duration %s", cfg.Duration)
	}
	return nil
}

// roster is an account-based entity: its members and their votes.
type roster struct {
	entity             models.EntityID
	label              string
	set                *voters.AccountSet
	votes              *tally.Ledger[common.Address]
	errNotVoter        error
	errCannotBeProject error
	errCannotBeOther   error
}

type core struct {
	mu             sync.RWMutex
	address        common.Address
	owner          common.Address
	iteration      uint64
	pob            badge.Contract
	projects       *projects.Directory
	lead           *roster
	daoHic         *roster
	community      *tally.Ledger[uint64]
	window         *Lifecycle
	mode           models.VotingMode
	implementation common.Address
	events         []models.Event
	logger         *zap.Logger
}

func newCore(cfg Config, lead *roster) (*core, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	daoHic := &roster{
		entity:             models.EntityDAOHIC,
		label:              "dao_hic",
		set:                voters.NewAccountSet(voters.Multi),
		votes:              tally.NewLedger[common.Address](),
		errNotVoter:        ErrNotDaoHicVoter,
		errCannotBeProject: ErrDaoHicCannotBeProject,
		errCannotBeOther:   ErrDaoHicCannotBeSmt,
	}
	if lead.set.Cardinality() == voters.Single {
		daoHic.errCannotBeOther = ErrDaoHicCannotBeDevRel
	}
	lead.votes = tally.NewLedger[common.Address]()
	return &core{
		address:   cfg.Address,
		owner:     cfg.Owner,
		iteration: cfg.Iteration,
		pob:       cfg.Badge,
		projects:  projects.NewDirectory(),
		lead:      lead,
		daoHic:    daoHic,
		community: tally.NewLedger[uint64](),
		window:    NewLifecycle(cfg.Duration),
		mode:      models.Consensus,
		logger:    log.Logger("voting").With(zap.String("contract", cfg.Address.Hex())),
	}, nil
}

func (c *core) emit(at time.Time, name string, kv ...string) {
	c.events = append(c.events, models.NewEvent(c.address, at, name, kv...))
	c.logger.Debug("event", zap.String("name", name), zap.Strings("fields", kv))
}

// Checkpoint captures the mutable state of the contract. The returned func
// restores it, dropping the events emitted since.
func (c *core) Checkpoint() func() {
	c.mu.RLock()
	var (
		dir       = c.projects.Clone()
		leadSet   = c.lead.set.Clone()
		leadVotes = c.lead.votes.Clone()
		hicSet    = c.daoHic.set.Clone()
		hicVotes  = c.daoHic.votes.Clone()
		community = c.community.Clone()
		window    = *c.window
		mode      = c.mode
		impl      = c.implementation
		events    = len(c.events)
	)
	c.mu.RUnlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.projects = dir
		c.lead.set, c.lead.votes = leadSet, leadVotes
		c.daoHic.set, c.daoHic.votes = hicSet, hicVotes
		c.community = community
		*c.window = window
		c.mode = mode
		c.implementation = impl
		c.events = c.events[:events]
	}
}

// guard admits owner calls on an unlocked contract.
func (c *core) guard(tx Tx) error {
	if tx.From != c.owner {
		return ErrOwnerOnly
	}
	if c.window.Locked() {
		return ErrContractLocked
	}
	return nil
}

func (c *core) other(r *roster) *roster {
	if r == c.lead {
		return c.daoHic
	}
	return c.lead
}

func (c *core) canAdmit(r *roster, addr common.Address) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	if c.projects.IsRegistered(addr) {
		return r.errCannotBeProject
	}
	if c.other(r).set.Contains(addr) {
		return r.errCannotBeOther
	}
	return nil
}

// admitting rejects roster additions once the voting window was opened.
func (c *core) admitting(tx Tx) error {
	if err := c.guard(tx); err != nil {
		return err
	}
	if c.window.Activated() {
		return ErrAlreadyActivated
	}
	return nil
}

func (c *core) addVoter(tx Tx, r *roster, addr common.Address) error {
	if err := c.admitting(tx); err != nil {
		return err
	}
	if err := c.canAdmit(r, addr); err != nil {
		return err
	}
	if err := r.set.Add(addr); err != nil {
		return err
	}
	c.emit(tx.Time, EventVoterAdded, "entity", r.label, "voter", addr.Hex())
	return nil
}

// evict retracts the vote of addr and drops it from r in one step.
func (c *core) evict(at time.Time, r *roster, addr common.Address) error {
	if err := r.set.Remove(addr); err != nil {
		return errors.Wrapf(r.errNotVoter, "%s", addr.Hex())
	}
	if prev, ok := r.votes.Retract(addr); ok {
		c.emit(at, EventVoteRetracted, "entity", r.label, "voter", addr.Hex(), "project", prev.Hex())
	}
	c.emit(at, EventVoterRemoved, "entity", r.label, "voter", addr.Hex())
	return nil
}

func (c *core) removeVoter(tx Tx, r *roster, addr common.Address) error {
	if err := c.guard(tx); err != nil {
		return err
	}
	return c.evict(tx.Time, r, addr)
}

func (c *core) vote(tx Tx, r *roster, project common.Address) error {
	if c.window.Locked() {
		return ErrContractLocked
	}
	if !c.window.IsActive(tx.Time) {
		return ErrNotActive
	}
	if c.projects.IsRegistered(tx.From) {
		return ErrProjectCannotVote
	}
	if !r.set.Contains(tx.From) {
		return errors.Wrapf(r.errNotVoter, "%s", tx.From.Hex())
	}
	if !c.projects.IsRegistered(project) {
		return errors.Wrapf(ErrInvalidProject, "%s", project.Hex())
	}
	prev, had := r.votes.Cast(tx.From, project)
	c.emitVote(tx, r.label, tx.From.Hex(), project, prev, had)
	return nil
}

func (c *core) emitVote(tx Tx, entity, voter string, project, prev common.Address, hadPrev bool) {
	kv := []string{"entity", entity, "voter", voter, "project", project.Hex()}
	if hadPrev {
		kv = append(kv, "previous", prev.Hex())
	}
	c.emit(tx.Time, EventVoted, kv...)
}

func (c *core) setVotingMode(tx Tx, mode models.VotingMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if c.window.Activated() {
		return ErrAlreadyActivated
	}
	if !mode.Valid() {
		return errors.Wrapf(ErrInvalidVotingMode, "%d", mode)
	}
	c.mode = mode
	c.emit(tx.Time, EventVotingModeSet, "mode", mode.String())
	return nil
}

func (c *core) upgradeTo(tx Tx, impl common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if c.window.Activated() {
		return ErrAlreadyActivated
	}
	if impl == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "implementation")
	}
	c.implementation = impl
	c.emit(tx.Time, EventUpgraded, "implementation", impl.Hex())
	return nil
}

// RegisterProject adds a candidate. An address registered as a project
// leaves every voter roster it was part of.
func (c *core) RegisterProject(tx Tx, addr common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	id, err := c.projects.Register(addr)
	if err != nil {
		return err
	}
	c.emit(tx.Time, EventProjectRegistered, "project", addr.Hex(), "id", strconv.FormatUint(id, 10))
	for _, r := range []*roster{c.lead, c.daoHic} {
		if !r.set.Contains(addr) {
			continue
		}
		if err := c.evict(tx.Time, r, addr); err != nil {
			return err
		}
	}
	return nil
}

func (c *core) RemoveProject(tx Tx, addr common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if _, _, err := c.projects.Remove(addr); err != nil {
		return err
	}
	c.lead.votes.DropProject(addr)
	c.daoHic.votes.DropProject(addr)
	c.community.DropProject(addr)
	c.emit(tx.Time, EventProjectRemoved, "project", addr.Hex())
	return nil
}

func (c *core) AddDaoHicVoter(tx Tx, addr common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addVoter(tx, c.daoHic, addr)
}

func (c *core) RemoveDaoHicVoter(tx Tx, addr common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeVoter(tx, c.daoHic, addr)
}

func (c *core) VoteDaoHic(tx Tx, project common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vote(tx, c.daoHic, project)
}

func (c *core) communityEligible(from common.Address, tokenID uint64) error {
	if c.pob == nil {
		return errors.Wrap(ErrNotCommunityVoter, "no badge contract")
	}
	owner, err := c.pob.OwnerOf(tokenID)
	if err != nil {
		return errors.Wrapf(ErrNotCommunityVoter, "token %d: %v", tokenID, err)
	}
	if owner != from {
		return errors.Wrapf(ErrNotCommunityVoter, "token %d not owned by %s", tokenID, from.Hex())
	}
	iteration, err := c.pob.TokenIteration(tokenID)
	if err != nil || iteration != c.iteration {
		return errors.Wrapf(ErrNotCommunityVoter, "token %d not minted for iteration %d", tokenID, c.iteration)
	}
	role, err := c.pob.TokenRole(tokenID)
	if err != nil || role != models.RoleCommunity {
		return errors.Wrapf(ErrNotCommunityVoter, "token %d has role %q", tokenID, role)
	}
	claimed, err := c.pob.Claimed(tokenID)
	if err != nil || claimed {
		return errors.Wrapf(ErrNotCommunityVoter, "token %d already claimed", tokenID)
	}
	return nil
}

// VoteCommunity casts the vote of a community badge held by the sender.
func (c *core) VoteCommunity(tx Tx, tokenID uint64, project common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.window.Locked() {
		return ErrContractLocked
	}
	if !c.window.IsActive(tx.Time) {
		return ErrNotActive
	}
	if c.projects.IsRegistered(tx.From) {
		return ErrProjectCannotVote
	}
	if err := c.communityEligible(tx.From, tokenID); err != nil {
		return err
	}
	if !c.projects.IsRegistered(project) {
		return errors.Wrapf(ErrInvalidProject, "%s", project.Hex())
	}
	prev, had := c.community.Cast(tokenID, project)
	c.emitVote(tx, "community", strconv.FormatUint(tokenID, 10), project, prev, had)
	return nil
}

// Activate opens the voting window and locks the project directory.
func (c *core) Activate(tx Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if c.window.Activated() {
		return ErrAlreadyActivated
	}
	if c.projects.Count() == 0 {
		return errors.Wrap(ErrInvalidProject, "no projects registered")
	}
	if c.lead.set.Len() == 0 || c.daoHic.set.Len() == 0 {
		return ErrNotEnoughVoters
	}
	if err := c.window.Activate(tx.Time); err != nil {
		return err
	}
	c.projects.Lock()
	c.emit(tx.Time, EventActivated,
		"start", strconv.FormatInt(c.window.StartTime().Unix(), 10),
		"end", strconv.FormatInt(c.window.EndTime().Unix(), 10))
	return nil
}

func (c *core) CloseManually(tx Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if err := c.window.CloseManually(tx.Time); err != nil {
		return err
	}
	c.emit(tx.Time, EventClosedManually)
	return nil
}

// LockContractForHistory freezes the contract after voting ended. The event
// carries the winner under the contract's own voting mode.
func (c *core) LockContractForHistory(tx Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if err := c.window.Lock(tx.Time); err != nil {
		return err
	}
	w := c.winner()
	c.emit(tx.Time, EventLockedForHistory,
		"winner", w.Project.Hex(),
		"has_winner", strconv.FormatBool(w.Found),
		"mode", c.mode.String())
	c.logger.Info("locked for history", zap.Bool("hasWinner", w.Found), zap.String("winner", w.Project.Hex()))
	return nil
}

func (c *core) TransferOwnership(tx Tx, newOwner common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "new owner")
	}
	prev := c.owner
	c.owner = newOwner
	c.emit(tx.Time, EventOwnershipTransferred, "previous", prev.Hex(), "owner", newOwner.Hex())
	return nil
}
