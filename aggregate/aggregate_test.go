package aggregate

import (
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pob-voting/models"
)

var (
	pa = common.HexToAddress("0xaa")
	pb = common.HexToAddress("0xbb")
	pc = common.HexToAddress("0xcc")
)

func found(p common.Address) models.Winner {
	return models.Winner{Project: p, Found: true}
}

func sumScores(scores []*uint256.Int) *uint256.Int {
	total := new(uint256.Int)
	for _, s := range scores {
		total.Add(total, s)
	}
	return total
}

func TestEntityVote(t *testing.T) {
	require := require.New(t)

	require.False(EntityVote(nil).Found)
	require.False(EntityVote(map[common.Address]uint64{pa: 0, pb: 0}).Found)
	require.False(EntityVote(map[common.Address]uint64{pa: 2, pb: 2, pc: 1}).Found)
	require.Equal(found(pb), EntityVote(map[common.Address]uint64{pa: 1, pb: 3, pc: 2}))
	require.Equal(found(pa), EntityVote(map[common.Address]uint64{pa: 1}))
}

func TestConsensusWinner(t *testing.T) {
	tests := []struct {
		name  string
		votes []models.Winner
		want  models.Winner
	}{
		{"two of three", []models.Winner{found(pa), found(pa), found(pb)}, found(pa)},
		{"unanimous", []models.Winner{found(pc), found(pc), found(pc)}, found(pc)},
		{"all different", []models.Winner{found(pa), found(pb), found(pc)}, models.Winner{}},
		{"one abstains", []models.Winner{found(pa), {}, found(pb)}, models.Winner{}},
		{"two agree one abstains", []models.Winner{found(pb), {}, found(pb)}, found(pb)},
		{"single entity is not a majority", []models.Winner{{}, {}, found(pa)}, models.Winner{}},
		{"nobody voted", []models.Winner{{}, {}, {}}, models.Winner{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ConsensusWinner(tt.votes))
		})
	}
}

func TestWeightedFiveNinths(t *testing.T) {
	require := require.New(t)
	projects := []common.Address{pa, pb}
	res := WeightedScores(projects, []map[common.Address]uint64{
		{pa: 2, pb: 1},
		{pa: 1},
		{pb: 1},
	})

	require.Equal(found(pa), res.Winner)
	require.Equal(TotalScore, sumScores(res.Scores))
	// 5/9 and 4/9 of 1e18, with the odd unit going to the larger remainder
	require.Equal(uint256.NewInt(555_555_555_555_555_556), res.Scores[0])
	require.Equal(uint256.NewInt(444_444_444_444_444_444), res.Scores[1])
}

func TestWeightedNoVotes(t *testing.T) {
	require := require.New(t)
	res := WeightedScores([]common.Address{pa, pb, pc}, []map[common.Address]uint64{{}, {}, {}})
	require.False(res.Found)
	for _, s := range res.Scores {
		require.True(s.IsZero())
	}
}

func TestWeightedTie(t *testing.T) {
	require := require.New(t)
	res := WeightedScores([]common.Address{pa, pb}, []map[common.Address]uint64{
		{pa: 1},
		{pb: 1},
		{},
	})
	require.False(res.Found)
	require.Equal(TotalScore, sumScores(res.Scores))
	require.Equal(res.Scores[0], res.Scores[1])
}

func TestWeightedSingleEntityTakesWholeTotal(t *testing.T) {
	require := require.New(t)
	res := WeightedScores([]common.Address{pa, pb, pc}, []map[common.Address]uint64{
		{},
		{pc: 3},
		{},
	})
	require.Equal(found(pc), res.Winner)
	require.Equal(TotalScore, res.Scores[2])
	require.True(res.Scores[0].IsZero())
}

func TestWeightedSumIsTotal(t *testing.T) {
	require := require.New(t)
	rng := rand.New(rand.NewSource(7))
	projects := []common.Address{pa, pb, pc, common.HexToAddress("0xdd"), common.HexToAddress("0xee")}

	for i := 0; i < 300; i++ {
		tallies := make([]map[common.Address]uint64, 3)
		voted := false
		for e := range tallies {
			tallies[e] = make(map[common.Address]uint64)
			for _, p := range projects {
				if n := uint64(rng.Intn(4)); n > 0 && rng.Intn(2) == 0 {
					tallies[e][p] = n
					voted = true
				}
			}
		}
		res := WeightedScores(projects, tallies)
		if voted {
			require.Equal(TotalScore, sumScores(res.Scores))
		} else {
			require.True(sumScores(res.Scores).IsZero())
		}
	}
}

func TestConsensusPermutationInvariant(t *testing.T) {
	require := require.New(t)
	votes := []models.Winner{found(pa), found(pb), found(pa)}
	want := ConsensusWinner(votes)
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		shuffled := []models.Winner{votes[perm[0]], votes[perm[1]], votes[perm[2]]}
		require.Equal(want, ConsensusWinner(shuffled))
	}
}

func TestBreakdown(t *testing.T) {
	b := Breakdown(pa, map[common.Address]uint64{pa: 1}, nil, map[common.Address]uint64{pa: 4, pb: 1})
	require.Equal(t, models.VoteBreakdown{SMT: 1, Community: 4}, b)
}
