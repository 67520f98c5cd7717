package adapter

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"pob-voting/badge"
	"pob-voting/models"
)

// jury is the read surface every generation shares.
type jury interface {
	Iteration() uint64
	IsActive(now time.Time) bool
	StartTime() time.Time
	EndTime() time.Time
	VotingEnded(now time.Time) bool
	Owner() common.Address
	Locked() bool
	ProjectsLocked() bool
	GetProjectAddresses() []common.Address
	IsRegisteredProject(addr common.Address) bool
	DaoHicVoters() []common.Address
	IsDaoHicVoter(addr common.Address) bool
	DaoHicVoteOf(addr common.Address) models.VoteRecord
	CommunityVoteOf(tokenID uint64) models.VoteRecord
	GetDaoHicEntityVote() models.Winner
	GetCommunityEntityVote() models.Winner
	GetVoteParticipationCounts() models.ParticipationCounts
	GetProjectVoteBreakdown(project common.Address) models.VoteBreakdown
	Badge() badge.Contract
	PobAddress() common.Address
}

// leadEntity is entity 0: a DevRel account or the SMT committee.
type leadEntity interface {
	voters() []common.Address
	isVoter(addr common.Address) bool
	voteOf(addr common.Address) models.VoteRecord
	entityVote() models.Winner
}

type base struct {
	j    jury
	lead leadEntity
}

func (b base) Iteration() uint64              { return b.j.Iteration() }
func (b base) IsActive(now time.Time) bool    { return b.j.IsActive(now) }
func (b base) StartTime() time.Time           { return b.j.StartTime() }
func (b base) EndTime() time.Time             { return b.j.EndTime() }
func (b base) VotingEnded(now time.Time) bool { return b.j.VotingEnded(now) }
func (b base) Owner() common.Address          { return b.j.Owner() }
func (b base) Locked() bool                   { return b.j.Locked() }
func (b base) ProjectsLocked() bool           { return b.j.ProjectsLocked() }
func (b base) PobAddress() common.Address     { return b.j.PobAddress() }
func (b base) GetProjectAddresses() []common.Address {
	return b.j.GetProjectAddresses()
}

func (b base) IsRegisteredProject(project common.Address) bool {
	return b.j.IsRegisteredProject(project)
}

func (b base) GetVoteParticipationCounts() models.ParticipationCounts {
	return b.j.GetVoteParticipationCounts()
}

func (b base) GetProjectVoteBreakdown(project common.Address) models.VoteBreakdown {
	return b.j.GetProjectVoteBreakdown(project)
}

func (b base) GetEntityVoters(entity models.EntityID) ([]common.Address, error) {
	switch entity {
	case models.EntitySMT:
		return b.lead.voters(), nil
	case models.EntityDAOHIC:
		return b.j.DaoHicVoters(), nil
	}
	return nil, invalidEntity(entity)
}

func (b base) voteRecord(entity models.EntityID, voter common.Address) (models.VoteRecord, error) {
	switch entity {
	case models.EntitySMT:
		return b.lead.voteOf(voter), nil
	case models.EntityDAOHIC:
		return b.j.DaoHicVoteOf(voter), nil
	}
	return models.VoteRecord{}, invalidEntity(entity)
}

func (b base) EntityHasVoted(entity models.EntityID, voter common.Address) (bool, error) {
	rec, err := b.voteRecord(entity, voter)
	return rec.HasVoted, err
}

// EntityVoteOf returns the zero address when voter has not voted.
func (b base) EntityVoteOf(entity models.EntityID, voter common.Address) (common.Address, error) {
	rec, err := b.voteRecord(entity, voter)
	return rec.Project, err
}

func (b base) IsEntityVoter(entity models.EntityID, voter common.Address) (bool, error) {
	switch entity {
	case models.EntitySMT:
		return b.lead.isVoter(voter), nil
	case models.EntityDAOHIC:
		return b.j.IsDaoHicVoter(voter), nil
	}
	return false, invalidEntity(entity)
}

func (b base) GetEntityVote(entity models.EntityID) (models.Winner, error) {
	switch entity {
	case models.EntitySMT:
		return b.lead.entityVote(), nil
	case models.EntityDAOHIC:
		return b.j.GetDaoHicEntityVote(), nil
	case models.EntityCommunity:
		return b.j.GetCommunityEntityVote(), nil
	}
	return models.Winner{}, invalidEntity(entity)
}

func (b base) CommunityHasVoted(tokenID uint64) bool {
	return b.j.CommunityVoteOf(tokenID).HasVoted
}

func (b base) CommunityVoteOf(tokenID uint64) common.Address {
	return b.j.CommunityVoteOf(tokenID).Project
}

func (b base) PobIteration() uint64 {
	if pob := b.j.Badge(); pob != nil {
		return pob.Iteration()
	}
	return 0
}

func (b base) HasMintedBadge(owner common.Address) bool {
	if pob := b.j.Badge(); pob != nil {
		return pob.HasMinted(owner)
	}
	return false
}

func (b base) GetRoleOf(owner common.Address) models.Role {
	if pob := b.j.Badge(); pob != nil {
		return pob.RoleOf(owner)
	}
	return models.RoleNone
}

func (b base) Claimed(tokenID uint64) (bool, error) {
	pob := b.j.Badge()
	if pob == nil {
		return false, ErrNoBadge
	}
	return pob.Claimed(tokenID)
}

func (b base) OwnerOfToken(tokenID uint64) (common.Address, error) {
	pob := b.j.Badge()
	if pob == nil {
		return common.Address{}, ErrNoBadge
	}
	return pob.OwnerOf(tokenID)
}

// devRelSeat is the single-account lead entity of generations 1 and 2.
type devRelSeat interface {
	DevRelAccount() (common.Address, bool)
	IsDevRelAccount(addr common.Address) bool
	DevRelVote() models.VoteRecord
	GetDevRelEntityVote() models.Winner
}

type devRelLead struct{ s devRelSeat }

func (d devRelLead) voters() []common.Address {
	if acct, ok := d.s.DevRelAccount(); ok {
		return []common.Address{acct}
	}
	return []common.Address{}
}

func (d devRelLead) isVoter(addr common.Address) bool { return d.s.IsDevRelAccount(addr) }
func (d devRelLead) entityVote() models.Winner        { return d.s.GetDevRelEntityVote() }

func (d devRelLead) voteOf(addr common.Address) models.VoteRecord {
	if !d.s.IsDevRelAccount(addr) {
		return models.VoteRecord{}
	}
	return d.s.DevRelVote()
}

// modal is the mode-aware winner surface of generations 2 and 3.
type modal interface {
	VotingMode() models.VotingMode
	GetWinner() models.Winner
	GetWinnerConsensus() models.Winner
	GetWinnerWeighted() models.Winner
	GetWinnerWithScores() models.ScoredWinner
}

type modalWinners struct{ m modal }

func (w modalWinners) VotingMode(override ModeOverride) models.VotingMode {
	if override.Set {
		return override.Mode
	}
	return w.m.VotingMode()
}

func (w modalWinners) GetWinner(override ModeOverride) models.Winner {
	if !override.Set {
		return w.m.GetWinner()
	}
	if override.Mode == models.Weighted {
		return w.m.GetWinnerWeighted()
	}
	return w.m.GetWinnerConsensus()
}

func (w modalWinners) GetWinnerConsensus() models.Winner        { return w.m.GetWinnerConsensus() }
func (w modalWinners) GetWinnerWeighted() models.Winner         { return w.m.GetWinnerWeighted() }
func (w modalWinners) GetWinnerWithScores() models.ScoredWinner { return w.m.GetWinnerWithScores() }
