package adapter

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"pob-voting/badge"
	"pob-voting/models"
	"pob-voting/voting"
)

func addr(n int64) common.Address { return common.BigToAddress(big.NewInt(n)) }

var (
	owner   = addr(0x100)
	lead1   = addr(0x201)
	lead2   = addr(0x202)
	lead3   = addr(0x203)
	hic1    = addr(0x301)
	member  = addr(0x401)
	projA   = addr(0xA00)
	projB   = addr(0xB00)
	t0      = time.Unix(1_700_000_000, 0)
	setupTx = voting.Tx{From: owner, Time: t0.Add(-time.Hour)}
	voteAt  = t0.Add(time.Hour)
)

func tx(from common.Address) voting.Tx { return voting.Tx{From: from, Time: voteAt} }

func newBadge(t *testing.T) (*badge.Registry, uint64) {
	reg, err := badge.NewRegistry(badge.RegistryConfig{Address: addr(0xBAD), Iteration: 1})
	require.NoError(t, err)
	id, err := reg.Mint(member, models.RoleCommunity, t0)
	require.NoError(t, err)
	return reg, id
}

func juryConfig(pob badge.Contract) voting.Config {
	return voting.Config{Address: addr(0xC0), Owner: owner, Iteration: 1, Duration: 24 * time.Hour, Badge: pob}
}

// Every generation gets the same ballots: the lead entity splits 2-1 for A
// (or the single DevRel votes A), DAO-HIC votes A, the community votes B.
func deployV1(t *testing.T) Adapter {
	require := require.New(t)
	pob, token := newBadge(t)
	j, err := voting.NewJuryV1(juryConfig(pob))
	require.NoError(err)
	require.NoError(j.RegisterProject(setupTx, projA))
	require.NoError(j.RegisterProject(setupTx, projB))
	require.NoError(j.SetDevRelAccount(setupTx, lead1))
	require.NoError(j.AddDaoHicVoter(setupTx, hic1))
	require.NoError(j.Activate(voting.Tx{From: owner, Time: t0}))
	require.NoError(j.VoteDevRel(tx(lead1), projA))
	require.NoError(j.VoteDaoHic(tx(hic1), projB))
	require.NoError(j.VoteCommunity(tx(member), token, projB))
	a, err := NewV1(j)
	require.NoError(err)
	return a
}

func deployV2(t *testing.T, mode models.VotingMode) Adapter {
	require := require.New(t)
	pob, token := newBadge(t)
	j, err := voting.NewJuryV2(juryConfig(pob))
	require.NoError(err)
	require.NoError(j.SetVotingMode(setupTx, mode))
	require.NoError(j.RegisterProject(setupTx, projA))
	require.NoError(j.RegisterProject(setupTx, projB))
	require.NoError(j.SetDevRelAccount(setupTx, lead1))
	require.NoError(j.AddDaoHicVoter(setupTx, hic1))
	require.NoError(j.Activate(voting.Tx{From: owner, Time: t0}))
	require.NoError(j.VoteDevRel(tx(lead1), projA))
	require.NoError(j.VoteDaoHic(tx(hic1), projB))
	require.NoError(j.VoteCommunity(tx(member), token, projB))
	a, err := NewV2(j)
	require.NoError(err)
	return a
}

func deployV3(t *testing.T) (Adapter, *voting.JuryV3) {
	require := require.New(t)
	pob, token := newBadge(t)
	j, err := voting.NewJuryV3(juryConfig(pob))
	require.NoError(err)
	require.NoError(j.RegisterProject(setupTx, projA))
	require.NoError(j.RegisterProject(setupTx, projB))
	for _, v := range []common.Address{lead1, lead2, lead3} {
		require.NoError(j.AddSmtVoter(setupTx, v))
	}
	require.NoError(j.AddDaoHicVoter(setupTx, hic1))
	require.NoError(j.Activate(voting.Tx{From: owner, Time: t0}))
	require.NoError(j.VoteSmt(tx(lead1), projA))
	require.NoError(j.VoteSmt(tx(lead2), projA))
	require.NoError(j.VoteSmt(tx(lead3), projB))
	require.NoError(j.VoteDaoHic(tx(hic1), projA))
	require.NoError(j.VoteCommunity(tx(member), token, projB))
	a, err := NewV3(j)
	require.NoError(err)
	return a, j
}

func TestUniformSurface(t *testing.T) {
	v3, _ := deployV3(t)
	adapters := map[string]Adapter{
		"v1": deployV1(t),
		"v2": deployV2(t, models.Consensus),
		"v3": v3,
	}
	for name, a := range adapters {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			require.Equal(uint64(1), a.Iteration())
			require.True(a.IsActive(voteAt))
			require.Equal(t0, a.StartTime())
			require.False(a.VotingEnded(voteAt))
			require.Equal(owner, a.Owner())
			require.False(a.Locked())
			require.True(a.ProjectsLocked())
			require.Equal([]common.Address{projA, projB}, a.GetProjectAddresses())
			require.True(a.IsRegisteredProject(projB))

			ok, err := a.IsEntityVoter(models.EntitySMT, lead1)
			require.NoError(err)
			require.True(ok)
			voted, err := a.EntityHasVoted(models.EntitySMT, lead1)
			require.NoError(err)
			require.True(voted)
			choice, err := a.EntityVoteOf(models.EntitySMT, lead1)
			require.NoError(err)
			require.Equal(projA, choice)
			hics, err := a.GetEntityVoters(models.EntityDAOHIC)
			require.NoError(err)
			require.Equal([]common.Address{hic1}, hics)

			require.True(a.CommunityHasVoted(1))
			require.Equal(projB, a.CommunityVoteOf(1))
			require.False(a.CommunityHasVoted(2))
			cv, err := a.GetEntityVote(models.EntityCommunity)
			require.NoError(err)
			require.Equal(models.Winner{Project: projB, Found: true}, cv)

			require.Equal(addr(0xBAD), a.PobAddress())
			require.Equal(uint64(1), a.PobIteration())
			require.True(a.HasMintedBadge(member))
			require.Equal(models.RoleCommunity, a.GetRoleOf(member))
			claimed, err := a.Claimed(1)
			require.NoError(err)
			require.False(claimed)
			holder, err := a.OwnerOfToken(1)
			require.NoError(err)
			require.Equal(member, holder)
		})
	}
}

func TestInvalidEntityID(t *testing.T) {
	v3, _ := deployV3(t)
	for _, a := range []Adapter{deployV1(t), deployV2(t, models.Consensus), v3} {
		for _, e := range []models.EntityID{models.EntityCommunity, 3, 200} {
			_, err := a.GetEntityVoters(e)
			require.Equal(t, ErrInvalidEntityID, errors.Cause(err))
			_, err = a.EntityHasVoted(e, lead1)
			require.Equal(t, ErrInvalidEntityID, errors.Cause(err))
			_, err = a.EntityVoteOf(e, lead1)
			require.Equal(t, ErrInvalidEntityID, errors.Cause(err))
			_, err = a.IsEntityVoter(e, lead1)
			require.Equal(t, ErrInvalidEntityID, errors.Cause(err))
		}
		_, err := a.GetEntityVote(3)
		require.Equal(t, ErrInvalidEntityID, errors.Cause(err))
	}
}

func TestModeOverride(t *testing.T) {
	require := require.New(t)

	// v1/v2 ballots: DevRel A, DAO-HIC B, community B
	for _, a := range []Adapter{deployV1(t), deployV2(t, models.Consensus)} {
		require.Equal(models.Consensus, a.VotingMode(NoOverride))
		require.Equal(models.Weighted, a.VotingMode(Override(models.Weighted)))
		require.Equal(models.Winner{Project: projB, Found: true}, a.GetWinner(NoOverride))
		require.Equal(models.Winner{Project: projB, Found: true}, a.GetWinner(Override(models.Weighted)))
	}

	weighted := deployV2(t, models.Weighted)
	require.Equal(models.Weighted, weighted.VotingMode(NoOverride))
	require.Equal(models.Consensus, weighted.VotingMode(Override(models.Consensus)))

	// v3 ballots: SMT 2-1 A, DAO-HIC A, community B; both modes pick A
	v3, j := deployV3(t)
	require.Equal(models.Winner{Project: projA, Found: true}, v3.GetWinner(Override(models.Weighted)))
	require.Equal(models.Winner{Project: projA, Found: true}, v3.GetWinner(NoOverride))
	require.Equal(models.Consensus, j.VotingMode())
}

func TestV1WeightedMatchesContractMath(t *testing.T) {
	require := require.New(t)
	v1 := deployV1(t)
	v2 := deployV2(t, models.Weighted)

	require.Equal(v2.GetWinnerWithScores(), v1.GetWinnerWithScores())
	require.Equal(v2.GetWinnerWeighted(), v1.GetWinnerWeighted())
}

func TestCatalog(t *testing.T) {
	require := require.New(t)
	c := NewCatalog()
	v1Addr, v3Addr := addr(0xAD1), addr(0xAD3)
	require.NoError(c.Register(v1Addr, "v1", Generations["v1"]))
	require.NoError(c.Register(v3Addr, "v3", Generations["v3"]))
	require.Equal(ErrAdapterExists, errors.Cause(c.Register(v1Addr, "v1", NewV1)))
	require.Equal([]common.Address{v1Addr, v3Addr}, c.Addresses())

	_, j := deployV3(t)
	a, err := c.Bind(v3Addr, j)
	require.NoError(err)
	require.Equal(uint64(1), a.Iteration())

	_, err = c.Bind(v1Addr, j)
	require.Equal(ErrContractMismatch, errors.Cause(err))
	_, err = c.Bind(addr(0xFFF), j)
	require.Equal(ErrUnknownAdapter, errors.Cause(err))

	name, ok := c.Name(v3Addr)
	require.True(ok)
	require.Equal("v3", name)
}
