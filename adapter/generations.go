package adapter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/aggregate"
	"pob-voting/models"
	"pob-voting/voting"
)

// V1 reads first generation contracts. They only know consensus, so the
// weighted result is derived here from the per-project breakdown.
type V1 struct {
	base
	j *voting.JuryV1
}

func NewV1(contract any) (Adapter, error) {
	j, ok := contract.(*voting.JuryV1)
	if !ok {
		return nil, errors.Wrapf(ErrContractMismatch, "v1 adapter got %T", contract)
	}
	return &V1{base: base{j: j, lead: devRelLead{j}}, j: j}, nil
}

func (a *V1) VotingMode(override ModeOverride) models.VotingMode {
	if override.Set {
		return override.Mode
	}
	return models.Consensus
}

func (a *V1) GetWinner(override ModeOverride) models.Winner {
	if override.Set && override.Mode == models.Weighted {
		return a.GetWinnerWeighted()
	}
	return a.j.GetWinner()
}

func (a *V1) GetWinnerConsensus() models.Winner {
	return a.j.GetWinner()
}

func (a *V1) GetWinnerWeighted() models.Winner {
	return a.GetWinnerWithScores().Winner
}

func (a *V1) GetWinnerWithScores() models.ScoredWinner {
	projects := a.j.GetProjectAddresses()
	tallies := []map[common.Address]uint64{{}, {}, {}}
	for _, p := range projects {
		b := a.j.GetProjectVoteBreakdown(p)
		tallies[models.EntityDevRel][p] = b.SMT
		tallies[models.EntityDAOHIC][p] = b.DAOHIC
		tallies[models.EntityCommunity][p] = b.Community
	}
	return aggregate.WeightedScores(projects, tallies)
}

// V2 reads second generation contracts: DevRel seat plus voting mode.
type V2 struct {
	base
	modalWinners
}

func NewV2(contract any) (Adapter, error) {
	j, ok := contract.(*voting.JuryV2)
	if !ok {
		return nil, errors.Wrapf(ErrContractMismatch, "v2 adapter got %T", contract)
	}
	return &V2{base: base{j: j, lead: devRelLead{j}}, modalWinners: modalWinners{j}}, nil
}

// V3 reads third generation contracts with the SMT committee.
type V3 struct {
	base
	modalWinners
}

type smtLead struct{ j *voting.JuryV3 }

func (s smtLead) voters() []common.Address                     { return s.j.SmtVoters() }
func (s smtLead) isVoter(addr common.Address) bool             { return s.j.IsSmtVoter(addr) }
func (s smtLead) voteOf(addr common.Address) models.VoteRecord { return s.j.SmtVoteOf(addr) }
func (s smtLead) entityVote() models.Winner                    { return s.j.GetSmtEntityVote() }

func NewV3(contract any) (Adapter, error) {
	j, ok := contract.(*voting.JuryV3)
	if !ok {
		return nil, errors.Wrapf(ErrContractMismatch, "v3 adapter got %T", contract)
	}
	return &V3{base: base{j: j, lead: smtLead{j}}, modalWinners: modalWinners{j}}, nil
}

var (
	_ Adapter = (*V1)(nil)
	_ Adapter = (*V2)(nil)
	_ Adapter = (*V3)(nil)
)
