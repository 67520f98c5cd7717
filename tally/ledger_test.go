package tally

import (
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	pa = common.HexToAddress("0xaa")
	pb = common.HexToAddress("0xbb")
	pc = common.HexToAddress("0xcc")
)

func sum(counts map[common.Address]uint64) uint64 {
	var total uint64
	for _, n := range counts {
		total += n
	}
	return total
}

func TestCastAndRevote(t *testing.T) {
	require := require.New(t)
	l := NewLedger[common.Address]()
	v1 := common.HexToAddress("0x01")
	v2 := common.HexToAddress("0x02")

	_, had := l.Cast(v1, pa)
	require.False(had)
	l.Cast(v2, pa)
	require.Equal(uint64(2), l.Count(pa))

	prev, had := l.Cast(v1, pb)
	require.True(had)
	require.Equal(pa, prev)
	require.Equal(uint64(1), l.Count(pa))
	require.Equal(uint64(1), l.Count(pb))

	before := l.Counts()
	l.Cast(v1, pb)
	require.Equal(before, l.Counts())
	require.Equal(uint64(2), l.Participation())

	rec := l.Record(v1)
	require.True(rec.HasVoted)
	require.Equal(pb, rec.Project)
}

func TestRetractAfterManyChanges(t *testing.T) {
	require := require.New(t)
	l := NewLedger[uint64]()

	for _, p := range []common.Address{pa, pb, pc, pa, pb} {
		l.Cast(7, p)
	}
	l.Cast(8, pb)
	require.Equal(uint64(2), l.Count(pb))

	prev, ok := l.Retract(7)
	require.True(ok)
	require.Equal(pb, prev)
	require.Equal(uint64(1), l.Count(pb))
	require.False(l.HasVoted(7))
	_, ok = l.Retract(7)
	require.False(ok)
	require.Equal(uint64(1), l.Count(pb))
}

func TestDropProject(t *testing.T) {
	require := require.New(t)
	l := NewLedger[uint64]()
	l.Cast(1, pa)
	l.Cast(2, pa)
	l.Cast(3, pb)

	require.ElementsMatch([]uint64{1, 2}, l.DropProject(pa))
	require.Zero(l.Count(pa))
	require.Equal(uint64(1), l.Participation())
	require.Empty(l.DropProject(pc))
}

func TestCountsMatchParticipation(t *testing.T) {
	require := require.New(t)
	rng := rand.New(rand.NewSource(42))
	l := NewLedger[uint64]()
	targets := []common.Address{pa, pb, pc}

	for i := 0; i < 2000; i++ {
		voter := uint64(rng.Intn(25))
		if rng.Intn(4) == 0 {
			l.Retract(voter)
		} else {
			l.Cast(voter, targets[rng.Intn(len(targets))])
		}
		require.Equal(l.Participation(), sum(l.Counts()))
	}
}
