package voting

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"pob-voting/badge"
	"pob-voting/models"
)

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

var (
	owner    = addr(0x100)
	outsider = addr(0x101)
	devrel   = addr(0x200)
	smt1     = addr(0x301)
	smt2     = addr(0x302)
	smt3     = addr(0x303)
	hic1     = addr(0x401)
	hic2     = addr(0x402)
	hic3     = addr(0x403)
	member1  = addr(0x501)
	member2  = addr(0x502)
	projA    = addr(0xA00)
	projB    = addr(0xB00)
	projC    = addr(0xC00)

	t0       = time.Unix(1_700_000_000, 0)
	duration = 48 * time.Hour
)

func at(d time.Duration) time.Time { return t0.Add(d) }

func txAt(from common.Address, when time.Time) Tx {
	return Tx{From: from, Time: when}
}

// ownerTx is an owner call before activation.
func ownerTx() Tx { return txAt(owner, t0.Add(-time.Hour)) }

func newBadges(t *testing.T, holders ...common.Address) (*badge.Registry, []uint64) {
	reg, err := badge.NewRegistry(badge.RegistryConfig{Address: addr(0xBAD), Iteration: 1})
	require.NoError(t, err)
	ids := make([]uint64, len(holders))
	for i, h := range holders {
		ids[i], err = reg.Mint(h, models.RoleCommunity, t0.Add(-2*time.Hour))
		require.NoError(t, err)
	}
	return reg, ids
}

func testConfig(pob badge.Contract) Config {
	return Config{
		Address:   addr(0xC0FFEE),
		Owner:     owner,
		Iteration: 1,
		Duration:  duration,
		Badge:     pob,
	}
}

func found(p common.Address) models.Winner {
	return models.Winner{Project: p, Found: true}
}

// newActiveV3 deploys a v3 jury with projects A, B and C, three SMT and three
// DAO-HIC voters, and two community badges, then activates it at t0.
func newActiveV3(t *testing.T) (*JuryV3, []uint64) {
	require := require.New(t)
	pob, tokens := newBadges(t, member1, member2)
	j, err := NewJuryV3(testConfig(pob))
	require.NoError(err)
	pob.Bind(j)

	for _, p := range []common.Address{projA, projB, projC} {
		require.NoError(j.RegisterProject(ownerTx(), p))
	}
	for _, v := range []common.Address{smt1, smt2, smt3} {
		require.NoError(j.AddSmtVoter(ownerTx(), v))
	}
	for _, v := range []common.Address{hic1, hic2, hic3} {
		require.NoError(j.AddDaoHicVoter(ownerTx(), v))
	}
	require.NoError(j.Activate(txAt(owner, t0)))
	return j, tokens
}
