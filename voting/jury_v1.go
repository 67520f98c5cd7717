package voting

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/aggregate"
	"pob-voting/models"
	"pob-voting/voters"
)

func newDevRelRoster() *roster {
	return &roster{
		entity:             models.EntityDevRel,
		label:              "devrel",
		set:                voters.NewAccountSet(voters.Single),
		errNotVoter:        ErrNotDevRel,
		errCannotBeProject: ErrDevRelCannotBeProject,
		errCannotBeOther:   ErrDevRelCannotBeDaoHic,
	}
}

// devRelSeat is the single-account entity of the first two generations.
type devRelSeat struct{ c *core }

// SetDevRelAccount installs addr as the DevRel account, replacing and
// retracting the vote of any previous holder.
func (d devRelSeat) SetDevRelAccount(tx Tx, addr common.Address) error {
	c := d.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.admitting(tx); err != nil {
		return err
	}
	if err := c.canAdmit(c.lead, addr); err != nil {
		return err
	}
	current, ok := c.lead.set.First()
	if ok && current == addr {
		return errors.Wrapf(ErrAlreadyVoter, "%s", addr.Hex())
	}
	if ok {
		if err := c.evict(tx.Time, c.lead, current); err != nil {
			return err
		}
	}
	if err := c.lead.set.Add(addr); err != nil {
		return err
	}
	c.emit(tx.Time, EventVoterAdded, "entity", c.lead.label, "voter", addr.Hex())
	return nil
}

// RemoveDevRelAccount clears the DevRel seat and its vote.
func (d devRelSeat) RemoveDevRelAccount(tx Tx) error {
	c := d.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(tx); err != nil {
		return err
	}
	current, ok := c.lead.set.First()
	if !ok {
		return errors.Wrap(ErrNotDevRel, "no devrel account set")
	}
	return c.evict(tx.Time, c.lead, current)
}

func (d devRelSeat) VoteDevRel(tx Tx, project common.Address) error {
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	return d.c.vote(tx, d.c.lead, project)
}

func (d devRelSeat) DevRelAccount() (common.Address, bool) {
	d.c.mu.RLock()
	defer d.c.mu.RUnlock()
	return d.c.lead.set.First()
}

func (d devRelSeat) IsDevRelAccount(addr common.Address) bool {
	d.c.mu.RLock()
	defer d.c.mu.RUnlock()
	return d.c.lead.set.Contains(addr)
}

// DevRelVote is the vote of the current DevRel account.
func (d devRelSeat) DevRelVote() models.VoteRecord {
	d.c.mu.RLock()
	defer d.c.mu.RUnlock()
	current, ok := d.c.lead.set.First()
	if !ok {
		return models.VoteRecord{}
	}
	return d.c.lead.votes.Record(current)
}

func (d devRelSeat) GetDevRelEntityVote() models.Winner {
	d.c.mu.RLock()
	defer d.c.mu.RUnlock()
	return aggregate.EntityVote(d.c.lead.votes.Counts())
}

// JuryV1 is the first generation: a DevRel account, DAO-HIC voters and the
// badge-gated community. Consensus only, not upgradeable.
type JuryV1 struct {
	*core
	devRelSeat
}

func NewJuryV1(cfg Config) (*JuryV1, error) {
	c, err := newCore(cfg, newDevRelRoster())
	if err != nil {
		return nil, err
	}
	return &JuryV1{core: c, devRelSeat: devRelSeat{c}}, nil
}
