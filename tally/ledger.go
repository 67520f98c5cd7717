// Package tally keeps per-voter vote records and the per-project counts derived from them.
package tally

import (
	"github.com/ethereum/go-ethereum/common"

	"pob-voting/models"
)

// Ledger is the vote ledger of one entity. K is the voter key: an account
// address, or a badge token id for the community entity.
//
// The sum of all counts always equals the number of voters holding a vote.
type Ledger[K comparable] struct {
	votes  map[K]common.Address
	counts map[common.Address]uint64
}

func NewLedger[K comparable]() *Ledger[K] {
	return &Ledger[K]{
		votes:  make(map[K]common.Address),
		counts: make(map[common.Address]uint64),
	}
}

// Cast points voter at project, retracting its previous vote first.
func (l *Ledger[K]) Cast(voter K, project common.Address) (prev common.Address, hadPrev bool) {
	prev, hadPrev = l.Retract(voter)
	l.votes[voter] = project
	l.counts[project]++
	return prev, hadPrev
}

// Retract clears the vote of voter and decrements its target once.
func (l *Ledger[K]) Retract(voter K) (common.Address, bool) {
	prev, ok := l.votes[voter]
	if !ok {
		return common.Address{}, false
	}
	delete(l.votes, voter)
	if l.counts[prev] <= 1 {
		delete(l.counts, prev)
	} else {
		l.counts[prev]--
	}
	return prev, true
}

// DropProject retracts every vote for project and returns the affected voters.
func (l *Ledger[K]) DropProject(project common.Address) []K {
	var dropped []K
	for voter, p := range l.votes {
		if p == project {
			dropped = append(dropped, voter)
		}
	}
	for _, voter := range dropped {
		l.Retract(voter)
	}
	return dropped
}

func (l *Ledger[K]) HasVoted(voter K) bool {
	_, ok := l.votes[voter]
	return ok
}

func (l *Ledger[K]) VoteOf(voter K) (common.Address, bool) {
	p, ok := l.votes[voter]
	return p, ok
}

// Record returns the vote state of voter.
func (l *Ledger[K]) Record(voter K) models.VoteRecord {
	p, ok := l.votes[voter]
	return models.VoteRecord{HasVoted: ok, Project: p}
}

func (l *Ledger[K]) Count(project common.Address) uint64 {
	return l.counts[project]
}

// Counts returns a copy of the non-zero counts.
func (l *Ledger[K]) Counts() map[common.Address]uint64 {
	out := make(map[common.Address]uint64, len(l.counts))
	for p, n := range l.counts {
		out[p] = n
	}
	return out
}

// Participation is the number of voters currently holding a vote.
func (l *Ledger[K]) Participation() uint64 {
	return uint64(len(l.votes))
}

func (l *Ledger[K]) Clone() *Ledger[K] {
	out := &Ledger[K]{
		votes:  make(map[K]common.Address, len(l.votes)),
		counts: make(map[common.Address]uint64, len(l.counts)),
	}
	for voter, p := range l.votes {
		out.votes[voter] = p
	}
	for p, n := range l.counts {
		out.counts[p] = n
	}
	return out
}
