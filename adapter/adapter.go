// Package adapter exposes every voting contract generation through one read
// interface. Adapters hold no state of their own: each call translates to the
// bespoke read methods of the generation it wraps.
package adapter

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/models"
)

var (
	ErrInvalidEntityID  = errors.New("invalid entity id")
	ErrContractMismatch = errors.New("contract does not match adapter generation")
	ErrNoBadge          = errors.New("no badge contract")
)

// ModeOverride forces the reported winner algorithm without touching the
// contract. The zero value keeps the contract's own mode.
type ModeOverride struct {
	Mode models.VotingMode
	Set  bool
}

// NoOverride keeps the contract's voting mode.
var NoOverride = ModeOverride{}

// Override forces mode for a read.
func Override(mode models.VotingMode) ModeOverride {
	return ModeOverride{Mode: mode, Set: true}
}

// Adapter is the uniform cross-generation read surface. Entity 0 is the
// DevRel account or the SMT committee depending on the generation, entity 1
// is DAO-HIC and entity 2 the badge-gated community. Account accessors only
// accept entities 0 and 1.
type Adapter interface {
	Iteration() uint64
	IsActive(now time.Time) bool
	StartTime() time.Time
	EndTime() time.Time
	VotingEnded(now time.Time) bool
	VotingMode(override ModeOverride) models.VotingMode
	Owner() common.Address
	Locked() bool
	ProjectsLocked() bool

	GetProjectAddresses() []common.Address
	IsRegisteredProject(project common.Address) bool

	GetEntityVoters(entity models.EntityID) ([]common.Address, error)
	EntityHasVoted(entity models.EntityID, voter common.Address) (bool, error)
	EntityVoteOf(entity models.EntityID, voter common.Address) (common.Address, error)
	IsEntityVoter(entity models.EntityID, voter common.Address) (bool, error)
	GetEntityVote(entity models.EntityID) (models.Winner, error)

	CommunityHasVoted(tokenID uint64) bool
	CommunityVoteOf(tokenID uint64) common.Address

	GetVoteParticipationCounts() models.ParticipationCounts
	GetProjectVoteBreakdown(project common.Address) models.VoteBreakdown

	GetWinner(override ModeOverride) models.Winner
	GetWinnerConsensus() models.Winner
	GetWinnerWeighted() models.Winner
	GetWinnerWithScores() models.ScoredWinner

	PobAddress() common.Address
	PobIteration() uint64
	HasMintedBadge(owner common.Address) bool
	GetRoleOf(owner common.Address) models.Role
	Claimed(tokenID uint64) (bool, error)
	OwnerOfToken(tokenID uint64) (common.Address, error)
}

// Constructor binds an adapter generation to a deployed voting contract.
type Constructor func(contract any) (Adapter, error)

func invalidEntity(entity models.EntityID) error {
	return errors.Wrapf(ErrInvalidEntityID, "%d", entity)
}
