// Package badge models the proof-of-participation badge contract that gates
// community voting. Badges are non-transferable while the voting contract they
// are bound to reports an active window.
package badge

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/models"
)

var (
	ErrTokenNotFound       = errors.New("badge token not found")
	ErrAlreadyMinted       = errors.New("account already holds a badge")
	ErrAlreadyClaimed      = errors.New("badge already claimed")
	ErrNotTokenOwner       = errors.New("caller does not own the badge")
	ErrTransferWhileActive = errors.New("badge transfer blocked while voting is active")
	ErrInvalidBadge        = errors.New("invalid badge data")
)

// Contract is the read surface voting contracts and adapters consume.
type Contract interface {
	Address() common.Address
	Iteration() uint64
	HasMinted(owner common.Address) bool
	RoleOf(owner common.Address) models.Role
	OwnerOf(tokenID uint64) (common.Address, error)
	TokenIteration(tokenID uint64) (uint64, error)
	TokenRole(tokenID uint64) (models.Role, error)
	Claimed(tokenID uint64) (bool, error)
}

// ActivityChecker is implemented by the voting contract a badge set is bound to.
type ActivityChecker interface {
	IsActive(now time.Time) bool
}
