package voting

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"pob-voting/aggregate"
	"pob-voting/badge"
	"pob-voting/models"
)

func (c *core) Address() common.Address { return c.address }
func (c *core) Iteration() uint64       { return c.iteration }

func (c *core) Owner() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Badge returns the badge contract community voting is gated on, or nil.
func (c *core) Badge() badge.Contract { return c.pob }

func (c *core) PobAddress() common.Address {
	if c.pob == nil {
		return common.Address{}
	}
	return c.pob.Address()
}

func (c *core) IsActive(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.IsActive(now)
}

func (c *core) VotingEnded(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.VotingEnded(now)
}

func (c *core) StartTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.StartTime()
}

func (c *core) EndTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.EndTime()
}

func (c *core) ManuallyClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.ManuallyClosed()
}

func (c *core) Locked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.Locked()
}

func (c *core) ProjectsLocked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projects.Locked()
}

func (c *core) IsRegisteredProject(addr common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projects.IsRegistered(addr)
}

func (c *core) ProjectIDOf(addr common.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projects.IDOf(addr)
}

func (c *core) ProjectAddress(id uint64) (common.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projects.AddressOf(id)
}

func (c *core) ProjectCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projects.Count()
}

func (c *core) GetProjectAddresses() []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projects.Addresses()
}

func (c *core) DaoHicVoters() []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.daoHic.set.List()
}

func (c *core) IsDaoHicVoter(addr common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.daoHic.set.Contains(addr)
}

func (c *core) DaoHicVoteOf(addr common.Address) models.VoteRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.daoHic.votes.Record(addr)
}

func (c *core) CommunityVoteOf(tokenID uint64) models.VoteRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.community.Record(tokenID)
}

func (c *core) GetDaoHicEntityVote() models.Winner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return aggregate.EntityVote(c.daoHic.votes.Counts())
}

func (c *core) GetCommunityEntityVote() models.Winner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return aggregate.EntityVote(c.community.Counts())
}

func (c *core) entityVotes() []models.Winner {
	return []models.Winner{
		aggregate.EntityVote(c.lead.votes.Counts()),
		aggregate.EntityVote(c.daoHic.votes.Counts()),
		aggregate.EntityVote(c.community.Counts()),
	}
}

func (c *core) weighted() models.ScoredWinner {
	return aggregate.WeightedScores(c.projects.Addresses(), []map[common.Address]uint64{
		c.lead.votes.Counts(),
		c.daoHic.votes.Counts(),
		c.community.Counts(),
	})
}

func (c *core) winner() models.Winner {
	if c.mode == models.Weighted {
		return c.weighted().Winner
	}
	return aggregate.ConsensusWinner(c.entityVotes())
}

// GetWinner returns the winner under the contract's voting mode.
func (c *core) GetWinner() models.Winner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.winner()
}

func (c *core) GetVoteParticipationCounts() models.ParticipationCounts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.ParticipationCounts{
		SMT:       c.lead.votes.Participation(),
		DAOHIC:    c.daoHic.votes.Participation(),
		Community: c.community.Participation(),
	}
}

func (c *core) GetProjectVoteBreakdown(project common.Address) models.VoteBreakdown {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return aggregate.Breakdown(project, c.lead.votes.Counts(), c.daoHic.votes.Counts(), c.community.Counts())
}

// Events returns a copy of every event emitted so far.
func (c *core) Events() []models.Event {
	return c.EventsSince(0)
}

func (c *core) EventCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// EventsSince returns the events from index n on.
func (c *core) EventsSince(n int) []models.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n < 0 || n >= len(c.events) {
		return nil
	}
	out := make([]models.Event, len(c.events)-n)
	copy(out, c.events[n:])
	return out
}

// modal adds voting-mode selection and upgrades to the later generations.
type modal struct{ c *core }

// SetVotingMode selects the winner algorithm. Only legal before activation.
func (m modal) SetVotingMode(tx Tx, mode models.VotingMode) error {
	return m.c.setVotingMode(tx, mode)
}

func (m modal) VotingMode() models.VotingMode {
	m.c.mu.RLock()
	defer m.c.mu.RUnlock()
	return m.c.mode
}

func (m modal) GetWinnerConsensus() models.Winner {
	m.c.mu.RLock()
	defer m.c.mu.RUnlock()
	return aggregate.ConsensusWinner(m.c.entityVotes())
}

func (m modal) GetWinnerWeighted() models.Winner {
	return m.GetWinnerWithScores().Winner
}

func (m modal) GetWinnerWithScores() models.ScoredWinner {
	m.c.mu.RLock()
	defer m.c.mu.RUnlock()
	return m.c.weighted()
}

// UpgradeTo swaps the implementation. Disabled once the program was activated.
func (m modal) UpgradeTo(tx Tx, impl common.Address) error {
	return m.c.upgradeTo(tx, impl)
}

func (m modal) Implementation() common.Address {
	m.c.mu.RLock()
	defer m.c.mu.RUnlock()
	return m.c.implementation
}
