package voting

import (
	"github.com/pkg/errors"

	"pob-voting/projects"
	"pob-voting/voters"
)

// authorization
var (
	ErrOwnerOnly         = errors.New("owner only")
	ErrProjectCannotVote = errors.New("project cannot vote")
	ErrNotDevRel         = errors.New("not devrel")
	ErrNotSmtVoter       = errors.New("not smt voter")
	ErrNotDaoHicVoter    = errors.New("not dao hic voter")
	ErrNotCommunityVoter = errors.New("not community voter")
)

// state preconditions
var (
	ErrNotActive         = errors.New("not active")
	ErrAlreadyActivated  = errors.New("already activated")
	ErrAlreadyClosed     = errors.New("already closed")
	ErrNotEnoughVoters   = errors.New("not enough voters")
	ErrNotActivated      = errors.New("not activated")
	ErrVotingNotEnded    = errors.New("voting not ended")
	ErrInvalidVotingMode = errors.New("invalid voting mode")
)

// membership
var (
	ErrDevRelCannotBeProject = errors.New("devrel cannot be project")
	ErrSmtCannotBeProject    = errors.New("smt voter cannot be project")
	ErrDaoHicCannotBeProject = errors.New("dao hic voter cannot be project")
	ErrDevRelCannotBeDaoHic  = errors.New("devrel cannot be dao hic voter")
	ErrSmtCannotBeDaoHic     = errors.New("smt voter cannot be dao hic voter")
	ErrDaoHicCannotBeDevRel  = errors.New("dao hic voter cannot be devrel")
	ErrDaoHicCannotBeSmt     = errors.New("dao hic voter cannot be smt voter")
	ErrZeroAddress           = errors.New("zero address")

	ErrAlreadyVoter = voters.ErrAlreadyVoter
)

// referential and terminal lock
var (
	ErrInvalidProject = projects.ErrInvalidProject
	ErrProjectsLocked = projects.ErrProjectsLocked
	ErrContractLocked = errors.New("contract locked")
)
