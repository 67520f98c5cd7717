package service

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/models"
)

// args reads typed values out of a transaction's string arguments.
type args map[string]string

func (a args) raw(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return "", errors.Wrapf(ErrBadArgument, "missing %q", key)
	}
	return v, nil
}

func (a args) address(key string) (common.Address, error) {
	v, err := a.raw(key)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, errors.Wrapf(ErrBadArgument, "%q is not an address", key)
	}
	return common.HexToAddress(v), nil
}

func (a args) uint(key string) (uint64, error) {
	v, err := a.raw(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadArgument, "%q: %v", key, err)
	}
	return n, nil
}

func (a args) uintOr(key string, def uint64) (uint64, error) {
	if _, ok := a[key]; !ok {
		return def, nil
	}
	return a.uint(key)
}

func (a args) mode(key string) (models.VotingMode, error) {
	v, err := a.raw(key)
	if err != nil {
		return 0, err
	}
	m, err := models.ParseVotingMode(v)
	if err != nil {
		return 0, errors.Wrapf(ErrBadArgument, "%q: %v", key, err)
	}
	return m, nil
}

func (a args) duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, errors.Wrapf(ErrBadArgument, "%q: invalid duration %q", key, v)
	}
	return d, nil
}

func (a args) role(key string, def models.Role) (models.Role, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	switch r := models.Role(v); r {
	case models.RoleCommunity, models.RoleSMT, models.RoleDAOHIC, models.RoleDevRel, models.RoleProject:
		return r, nil
	}
	return "", errors.Wrapf(ErrBadArgument, "unknown role %q", v)
}
