// Package aggregate derives entity votes and program winners from vote tallies.
// Every function is pure; callers pass a fresh snapshot on each query.
package aggregate

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pob-voting/models"
)

// TotalScore is the fixed-point total distributed among projects in weighted mode.
var TotalScore = uint256.NewInt(1_000_000_000_000_000_000)

// EntityVote returns the project with strictly more votes than any other.
// Ties, including an empty tally, yield no vote.
func EntityVote(counts map[common.Address]uint64) models.Winner {
	var (
		best common.Address
		max  uint64
		tied bool
	)
	for p, n := range counts {
		switch {
		case n > max:
			best, max, tied = p, n, false
		case n == max && n > 0:
			tied = true
		}
	}
	if max == 0 || tied {
		return models.Winner{}
	}
	return models.Winner{Project: best, Found: true}
}

// ConsensusWinner returns the project chosen by a strict majority of entities.
func ConsensusWinner(entityVotes []models.Winner) models.Winner {
	support := make(map[common.Address]int)
	for _, v := range entityVotes {
		if v.Found {
			support[v.Project]++
		}
	}
	for p, n := range support {
		if 2*n > len(entityVotes) {
			return models.Winner{Project: p, Found: true}
		}
	}
	return models.Winner{}
}

// WeightedScores splits TotalScore evenly across the entities holding at least
// one vote for a listed project, and each entity's share by its internal vote
// split. The winner is decided on exact fractions; reported scores are rounded
// down with the residue handed to the largest remainders, so they sum to
// TotalScore whenever any vote exists.
func WeightedScores(projects []common.Address, tallies []map[common.Address]uint64) models.ScoredWinner {
	res := models.ScoredWinner{
		Projects: append([]common.Address(nil), projects...),
		Scores:   make([]*uint256.Int, len(projects)),
	}
	for i := range res.Scores {
		res.Scores[i] = new(uint256.Int)
	}

	var (
		totals []uint64
		active []map[common.Address]uint64
	)
	for _, counts := range tallies {
		var total uint64
		for _, p := range projects {
			total += counts[p]
		}
		if total > 0 {
			totals = append(totals, total)
			active = append(active, counts)
		}
	}
	if len(active) == 0 {
		return res
	}

	// every project score is num[i]/denom with denom = k*lcm(totals)
	lcm := big.NewInt(1)
	for _, t := range totals {
		bt := new(big.Int).SetUint64(t)
		gcd := new(big.Int).GCD(nil, nil, lcm, bt)
		lcm.Mul(lcm, bt.Div(bt, gcd))
	}
	denom := new(big.Int).Mul(lcm, big.NewInt(int64(len(active))))

	nums := make([]*big.Int, len(projects))
	for i, p := range projects {
		nums[i] = new(big.Int)
		for e, counts := range active {
			if n := counts[p]; n > 0 {
				unit := new(big.Int).Div(lcm, new(big.Int).SetUint64(totals[e]))
				nums[i].Add(nums[i], unit.Mul(unit, new(big.Int).SetUint64(n)))
			}
		}
	}

	best, tied := -1, false
	for i, n := range nums {
		if n.Sign() == 0 {
			continue
		}
		switch {
		case best < 0 || n.Cmp(nums[best]) > 0:
			best, tied = i, false
		case n.Cmp(nums[best]) == 0:
			tied = true
		}
	}
	if best >= 0 && !tied {
		res.Winner = models.Winner{Project: projects[best], Found: true}
	}

	total := TotalScore.ToBig()
	rems := make([]*big.Int, len(projects))
	allotted := new(big.Int)
	for i, n := range nums {
		q, r := new(big.Int).QuoRem(new(big.Int).Mul(total, n), denom, new(big.Int))
		res.Scores[i] = uint256.MustFromBig(q)
		rems[i] = r
		allotted.Add(allotted, q)
	}
	residue := new(big.Int).Sub(total, allotted).Uint64()
	order := make([]int, len(projects))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rems[order[a]].Cmp(rems[order[b]]) > 0
	})
	for _, i := range order[:residue] {
		res.Scores[i].AddUint64(res.Scores[i], 1)
	}
	return res
}

// Breakdown returns the raw count project holds in each of the three entities.
func Breakdown(project common.Address, smt, daoHic, community map[common.Address]uint64) models.VoteBreakdown {
	return models.VoteBreakdown{
		SMT:       smt[project],
		DAOHIC:    daoHic[project],
		Community: community[project],
	}
}
