// Package projects keeps the candidate project directory of a voting contract.
package projects

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidProject is returned for a duplicate registration or an unknown project.
	ErrInvalidProject = errors.New("invalid project")
	// ErrProjectsLocked is returned for any mutation after the directory was locked.
	ErrProjectsLocked = errors.New("projects locked")
)

// Directory assigns dense 1-based ids to project addresses. Removal swaps the
// last project into the freed slot, so ids are only stable until the next removal.
type Directory struct {
	addrs  []common.Address
	ids    map[common.Address]uint64
	locked bool
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{ids: make(map[common.Address]uint64)}
}

// CanRegister reports the error Register would return without mutating anything.
func (d *Directory) CanRegister(addr common.Address) error {
	if d.locked {
		return ErrProjectsLocked
	}
	if addr == (common.Address{}) {
		return errors.Wrap(ErrInvalidProject, "zero address")
	}
	if _, ok := d.ids[addr]; ok {
		return errors.Wrapf(ErrInvalidProject, "%s already registered", addr.Hex())
	}
	return nil
}

// Register appends addr and returns its id.
func (d *Directory) Register(addr common.Address) (uint64, error) {
	if err := d.CanRegister(addr); err != nil {
		return 0, err
	}
	d.addrs = append(d.addrs, addr)
	id := uint64(len(d.addrs))
	d.ids[addr] = id
	return id, nil
}

// CanRemove reports the error Remove would return without mutating anything.
func (d *Directory) CanRemove(addr common.Address) error {
	if d.locked {
		return ErrProjectsLocked
	}
	if _, ok := d.ids[addr]; !ok {
		return errors.Wrapf(ErrInvalidProject, "%s not registered", addr.Hex())
	}
	return nil
}

// Remove deletes addr. The previously last project takes over its id, which is
// returned as moved together with ok=true when a swap happened.
func (d *Directory) Remove(addr common.Address) (moved common.Address, ok bool, err error) {
	if err = d.CanRemove(addr); err != nil {
		return
	}
	id := d.ids[addr]
	last := uint64(len(d.addrs))
	if id != last {
		moved = d.addrs[last-1]
		d.addrs[id-1] = moved
		d.ids[moved] = id
		ok = true
	}
	d.addrs = d.addrs[:last-1]
	delete(d.ids, addr)
	return
}

func (d *Directory) IsRegistered(addr common.Address) bool {
	_, ok := d.ids[addr]
	return ok
}

// IDOf returns 0 for unknown addresses.
func (d *Directory) IDOf(addr common.Address) uint64 {
	return d.ids[addr]
}

// AddressOf returns the project holding id.
func (d *Directory) AddressOf(id uint64) (common.Address, error) {
	if id == 0 || id > uint64(len(d.addrs)) {
		return common.Address{}, errors.Wrapf(ErrInvalidProject, "id %d out of range", id)
	}
	return d.addrs[id-1], nil
}

func (d *Directory) Count() uint64 {
	return uint64(len(d.addrs))
}

// Addresses returns a copy of the projects ordered by id.
func (d *Directory) Addresses() []common.Address {
	out := make([]common.Address, len(d.addrs))
	copy(out, d.addrs)
	return out
}

// Lock freezes the directory permanently.
func (d *Directory) Lock() {
	d.locked = true
}

func (d *Directory) Locked() bool {
	return d.locked
}

// Clone returns an independent copy of d.
func (d *Directory) Clone() *Directory {
	out := &Directory{
		addrs:  make([]common.Address, len(d.addrs)),
		ids:    make(map[common.Address]uint64, len(d.ids)),
		locked: d.locked,
	}
	copy(out.addrs, d.addrs)
	for addr, id := range d.ids {
		out.ids[addr] = id
	}
	return out
}
