package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// VoteRecord is the vote state of one voter or badge token.
type VoteRecord struct {
	HasVoted bool           `json:"has_voted"`
	Project  common.Address `json:"project"`
}

// ParticipationCounts is the number of voters per entity that currently hold a vote.
type ParticipationCounts struct {
	SMT       uint64 `json:"smt"`
	DAOHIC    uint64 `json:"dao_hic"`
	Community uint64 `json:"community"`
}

// Total sums the counts of all entities.
func (p ParticipationCounts) Total() uint64 {
	return p.SMT + p.DAOHIC + p.Community
}

// VoteBreakdown is the raw vote count one project holds in each entity.
type VoteBreakdown struct {
	SMT       uint64 `json:"smt"`
	DAOHIC    uint64 `json:"dao_hic"`
	Community uint64 `json:"community"`
}

// Winner is the outcome of a winner query. Found is false when there is no winner.
type Winner struct {
	Project common.Address `json:"project"`
	Found   bool           `json:"found"`
}

// ScoredWinner extends Winner with per-project weighted scores aligned with Projects.
type ScoredWinner struct {
	Winner
	Projects []common.Address `json:"projects"`
	Scores   []*uint256.Int   `json:"scores"`
}
