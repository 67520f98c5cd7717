package voting

import (
	"github.com/ethereum/go-ethereum/common"

	"pob-voting/aggregate"
	"pob-voting/models"
	"pob-voting/voters"
)

// JuryV3 replaces the DevRel account with a multi-member SMT entity.
type JuryV3 struct {
	*core
	modal
}

func NewJuryV3(cfg Config) (*JuryV3, error) {
	smt := &roster{
		entity:             models.EntitySMT,
		label:              "smt",
		set:                voters.NewAccountSet(voters.Multi),
		errNotVoter:        ErrNotSmtVoter,
		errCannotBeProject: ErrSmtCannotBeProject,
		errCannotBeOther:   ErrSmtCannotBeDaoHic,
	}
	c, err := newCore(cfg, smt)
	if err != nil {
		return nil, err
	}
	return &JuryV3{core: c, modal: modal{c}}, nil
}

func (j *JuryV3) AddSmtVoter(tx Tx, addr common.Address) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.addVoter(tx, j.lead, addr)
}

func (j *JuryV3) RemoveSmtVoter(tx Tx, addr common.Address) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.removeVoter(tx, j.lead, addr)
}

func (j *JuryV3) VoteSmt(tx Tx, project common.Address) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.vote(tx, j.lead, project)
}

func (j *JuryV3) SmtVoters() []common.Address {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lead.set.List()
}

func (j *JuryV3) IsSmtVoter(addr common.Address) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lead.set.Contains(addr)
}

func (j *JuryV3) SmtVoteOf(addr common.Address) models.VoteRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lead.votes.Record(addr)
}

func (j *JuryV3) GetSmtEntityVote() models.Winner {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return aggregate.EntityVote(j.lead.votes.Counts())
}
