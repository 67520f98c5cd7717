// Package voters holds per-entity voter membership.
package voters

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyVoter = errors.New("already a voter")
	ErrNotVoter     = errors.New("not a voter")
	ErrSetFull      = errors.New("single-account entity already has a voter")
)

// Cardinality is the membership policy of an entity.
type Cardinality uint8

const (
	// Single allows at most one account.
	Single Cardinality = iota
	// Multi allows any number of accounts.
	Multi
)

// AccountSet is an ordered membership set. Removal moves the last member into
// the freed position.
type AccountSet struct {
	card    Cardinality
	members []common.Address
	index   map[common.Address]int
}

func NewAccountSet(card Cardinality) *AccountSet {
	return &AccountSet{card: card, index: make(map[common.Address]int)}
}

func (s *AccountSet) Cardinality() Cardinality {
	return s.card
}

// CanAdd reports the error Add would return.
func (s *AccountSet) CanAdd(addr common.Address) error {
	if _, ok := s.index[addr]; ok {
		return errors.Wrapf(ErrAlreadyVoter, "%s", addr.Hex())
	}
	if s.card == Single && len(s.members) > 0 {
		return ErrSetFull
	}
	return nil
}

func (s *AccountSet) Add(addr common.Address) error {
	if err := s.CanAdd(addr); err != nil {
		return err
	}
	s.index[addr] = len(s.members)
	s.members = append(s.members, addr)
	return nil
}

func (s *AccountSet) Remove(addr common.Address) error {
	i, ok := s.index[addr]
	if !ok {
		return errors.Wrapf(ErrNotVoter, "%s", addr.Hex())
	}
	last := len(s.members) - 1
	if i != last {
		s.members[i] = s.members[last]
		s.index[s.members[i]] = i
	}
	s.members = s.members[:last]
	delete(s.index, addr)
	return nil
}

func (s *AccountSet) Contains(addr common.Address) bool {
	_, ok := s.index[addr]
	return ok
}

// First returns the only member of a Single set.
func (s *AccountSet) First() (common.Address, bool) {
	if len(s.members) == 0 {
		return common.Address{}, false
	}
	return s.members[0], true
}

func (s *AccountSet) List() []common.Address {
	out := make([]common.Address, len(s.members))
	copy(out, s.members)
	return out
}

func (s *AccountSet) Len() int {
	return len(s.members)
}

// Clone returns an independent copy of s.
func (s *AccountSet) Clone() *AccountSet {
	out := &AccountSet{
		card:    s.card,
		members: make([]common.Address, len(s.members)),
		index:   make(map[common.Address]int, len(s.index)),
	}
	copy(out.members, s.members)
	for addr, i := range s.index {
		out.index[addr] = i
	}
	return out
}
