// File: models/types.go
package models

import (
	"strings"

	"github.com/pkg/errors"
)

// VotingMode selects the winner algorithm of a round.
type VotingMode uint8

const (
	Consensus VotingMode = iota
	Weighted
)

// ErrUnknownVotingMode is returned when a mode name or value is not recognised.
var ErrUnknownVotingMode = errors.New("unknown voting mode")

func (m VotingMode) String() string {
	switch m {
	case Consensus:
		return "CONSENSUS"
	case Weighted:
		return "WEIGHTED"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether m is one of the defined modes.
func (m VotingMode) Valid() bool {
	return m == Consensus || m == Weighted
}

// ParseVotingMode accepts the names returned by String, case-insensitively.
func ParseVotingMode(s string) (VotingMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONSENSUS", "0":
		return Consensus, nil
	case "WEIGHTED", "1":
		return Weighted, nil
	}
	return 0, errors.Wrapf(ErrUnknownVotingMode, "%q", s)
}

func (m VotingMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.Wrapf(ErrUnknownVotingMode, "%d", m)
	}
	return []byte(m.String()), nil
}

func (m *VotingMode) UnmarshalText(b []byte) error {
	v, err := ParseVotingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// EntityID indexes the constituencies of a voting contract.
type EntityID uint8

const (
	// EntitySMT is the first entity. Early generations hold a single DevRel account in this slot.
	EntitySMT EntityID = iota
	EntityDAOHIC
	EntityCommunity

	EntityDevRel = EntitySMT
)

// NumEntities is the number of entities every generation exposes.
const NumEntities = 3

func (e EntityID) String() string {
	switch e {
	case EntitySMT:
		return "SMT"
	case EntityDAOHIC:
		return "DAO_HIC"
	case EntityCommunity:
		return "COMMUNITY"
	default:
		return "UNKNOWN"
	}
}

// Role is the participation role recorded on a badge.
type Role string

const (
	RoleNone      Role = ""
	RoleCommunity Role = "community"
	RoleSMT       Role = "smt"
	RoleDAOHIC    Role = "dao_hic"
	RoleDevRel    Role = "devrel"
	RoleProject   Role = "project"
)
