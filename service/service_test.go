package service

import (
	"context"
	"crypto/ecdsa"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"pob-voting/adapter"
	"pob-voting/badge"
	"pob-voting/chain"
	"pob-voting/models"
	"pob-voting/registry"
	"pob-voting/signing"
	"pob-voting/storage"
	"pob-voting/voting"
)

var (
	t0    = time.Unix(1_700_000_000, 0)
	projA = common.HexToAddress("0x000000000000000000000000000000000000A000")
	projB = common.HexToAddress("0x000000000000000000000000000000000000B000")
)

// flakyStore fails every block write while down is set.
type flakyStore struct {
	storage.Store
	down bool
}

func (f *flakyStore) SaveBlock(chainID string, b *models.Block) error {
	if f.down {
		return errors.New("disk full")
	}
	return f.Store.SaveBlock(chainID, b)
}

type env struct {
	t     *testing.T
	ctx   context.Context
	dir   string
	cfg   Config
	clock *chain.ManualClock
	store *flakyStore
	s     *VotingService
	cs    *signing.CryptoService
}

func newEnv(t *testing.T, cfg Config) *env {
	e := &env{
		t:     t,
		ctx:   context.Background(),
		dir:   t.TempDir(),
		clock: chain.NewManualClock(t0),
		cs:    signing.NewCryptoService(),
	}
	cfg.DataDir = e.dir
	if cfg.VotingDuration == 0 {
		cfg.VotingDuration = time.Hour
	}
	e.cfg = cfg
	e.s = e.open()
	return e
}

func (e *env) open() *VotingService {
	store, err := storage.NewJSONStore(e.dir)
	require.NoError(e.t, err)
	e.store = &flakyStore{Store: store}
	s, err := NewVotingService(e.ctx, e.cfg, e.store, e.clock)
	require.NoError(e.t, err)
	return s
}

func (e *env) key() *ecdsa.PrivateKey {
	k, err := e.cs.GenerateKeyPair()
	require.NoError(e.t, err)
	return k
}

func (e *env) signed(key *ecdsa.PrivateKey, to common.Address, method string, kv map[string]string) models.Transaction {
	tx := models.Transaction{
		To:     to,
		Method: method,
		Args:   kv,
		Nonce:  e.s.NextNonce(e.cs.Address(key)),
	}
	require.NoError(e.t, e.cs.SignTx(&tx, key))
	return tx
}

func (e *env) send(key *ecdsa.PrivateKey, to common.Address, method string, kv map[string]string) (*models.Receipt, error) {
	return e.s.Execute(e.ctx, e.signed(key, to, method, kv))
}

func (e *env) admin(to common.Address, method string, kv map[string]string) *models.Receipt {
	r, err := e.s.ExecuteAsAdmin(e.ctx, to, method, kv)
	require.NoError(e.t, err, method)
	return r
}

func u(n uint64) string { return strconv.FormatUint(n, 10) }

// round is a v3 round with projects A and B, three SMT voters, one DAO-HIC
// voter and one community member, activated at t0.
type round struct {
	pob, contract common.Address
	smt           []*ecdsa.PrivateKey
	hic, member   *ecdsa.PrivateKey
}

func (e *env) setupRound() round {
	require := require.New(e.t)
	reg := e.s.Registry().Address()

	pob, err := e.s.DeployBadge(e.ctx, 1)
	require.NoError(err)
	v3, err := e.s.DeployAdapter(e.ctx, "v3")
	require.NoError(err)
	e.admin(reg, MethodSetAdapter, map[string]string{"version": "3", "adapter": v3.Hex()})
	e.admin(reg, MethodRegisterIteration, map[string]string{"iteration": "1", "chainId": "57073"})

	contract, err := e.s.DeployRound(e.ctx, 1, 1, 3, "v3", pob)
	require.NoError(err)

	r := round{pob: pob, contract: contract, hic: e.key(), member: e.key()}
	for _, p := range []common.Address{projA, projB} {
		e.admin(contract, MethodRegisterProject, map[string]string{"project": p.Hex()})
	}
	for i := 0; i < 3; i++ {
		k := e.key()
		r.smt = append(r.smt, k)
		e.admin(contract, MethodAddSmtVoter, map[string]string{"voter": e.cs.Address(k).Hex()})
	}
	e.admin(contract, MethodAddDaoHicVoter, map[string]string{"voter": e.cs.Address(r.hic).Hex()})
	_, err = e.send(r.member, pob, MethodMintBadge, nil)
	require.NoError(err)
	e.admin(contract, MethodActivate, nil)
	return r
}

func (e *env) castVotes(r round) {
	require := require.New(e.t)
	for i, p := range []common.Address{projA, projA, projB} {
		_, err := e.send(r.smt[i], r.contract, MethodVoteSmt, map[string]string{"project": p.Hex()})
		require.NoError(err)
	}
	_, err := e.send(r.hic, r.contract, MethodVoteDaoHic, map[string]string{"project": projA.Hex()})
	require.NoError(err)
	receipt, err := e.send(r.member, r.contract, MethodVoteCommunity, map[string]string{"tokenId": "1", "project": projB.Hex()})
	require.NoError(err)
	require.Equal(voting.EventVoted, receipt.Events[0].Name)
}

func TestRoundLifecycle(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	r := e.setupRound()
	e.castVotes(r)

	results, err := NewResultsService(e.s).RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	require.Equal(r.contract, results.Contract)
	require.Equal(uint64(3), results.Version)
	require.Equal(models.Consensus, results.Mode)
	require.True(results.Active)
	require.Equal(models.Winner{Project: projA, Found: true}, results.Winner)
	require.Equal(models.ParticipationCounts{SMT: 3, DAOHIC: 1, Community: 1}, results.Participation)
	require.Len(results.Entities, 3)
	require.Equal(projB, results.Entities[models.EntityCommunity].Project)
	require.Len(results.Projects, 2)
	require.Equal(models.VoteBreakdown{SMT: 2, DAOHIC: 1}, results.Projects[0].Breakdown)
	require.Equal("555555555555555556", results.Projects[0].Score)
	require.Equal("444444444444444444", results.Projects[1].Score)

	weighted, err := NewResultsService(e.s).RoundResults(1, 1, adapter.Override(models.Weighted))
	require.NoError(err)
	require.True(weighted.ModeOverridden)
	require.Equal(models.Weighted, weighted.Mode)
	require.Equal(projA, weighted.Winner.Project)

	voters, err := NewResultsService(e.s).EntityVoters(1, 1, models.EntitySMT)
	require.NoError(err)
	require.Len(voters, 3)
	require.True(voters[2].HasVoted)
	require.Equal(projB, voters[2].Project)

	_, err = NewResultsService(e.s).EntityVoters(1, 1, models.EntityCommunity)
	require.Equal(adapter.ErrInvalidEntityID, errors.Cause(err))

	_, err = NewResultsService(e.s).RoundResults(1, 2, adapter.NoOverride)
	require.Equal(registry.ErrRoundNotFound, errors.Cause(err))

	require.NoError(e.s.Ledger().Validate())
}

func TestConfiguredModeOverride(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{ModeOverrides: map[RoundKey]models.VotingMode{{Iteration: 1, Round: 1}: models.Weighted}})
	r := e.setupRound()
	e.castVotes(r)

	results, err := NewResultsService(e.s).RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	require.True(results.ModeOverridden)
	require.Equal(models.Weighted, results.Mode)

	// the contract itself is untouched
	a, _, err := e.s.Adapter(1, 1)
	require.NoError(err)
	require.Equal(models.Consensus, a.VotingMode(adapter.NoOverride))
}

func TestRestartReplaysLedger(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	r := e.setupRound()
	e.castVotes(r)

	before, err := NewResultsService(e.s).RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	height := e.s.Ledger().Height()
	adminNonce := e.s.NextNonce(e.s.AdminAddress())
	admin := e.s.AdminAddress()
	registryAddr := e.s.Registry().Address()

	restarted := e.open()
	require.Equal(admin, restarted.AdminAddress())
	require.Equal(registryAddr, restarted.Registry().Address())
	require.Equal(height, restarted.Ledger().Height())
	require.Equal(adminNonce, restarted.NextNonce(admin))

	after, err := NewResultsService(restarted).RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	require.Equal(before, after)

	// replayed nonces still block resubmission
	entry, err := restarted.Ledger().Entry(height)
	require.NoError(err)
	_, err = restarted.Execute(e.ctx, entry.Tx)
	require.Equal(ErrStaleNonce, errors.Cause(err))
}

func TestTransactionRejections(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	r := e.setupRound()
	height := e.s.Ledger().Height()

	vote := e.signed(r.smt[0], r.contract, MethodVoteSmt, map[string]string{"project": projA.Hex()})
	_, err := e.s.Execute(e.ctx, vote)
	require.NoError(err)
	_, err = e.s.Execute(e.ctx, vote)
	require.Equal(ErrStaleNonce, errors.Cause(err))

	forged := e.signed(r.smt[1], r.contract, MethodVoteSmt, map[string]string{"project": projA.Hex()})
	forged.From = e.cs.Address(r.smt[2])
	_, err = e.s.Execute(e.ctx, forged)
	require.Equal(ErrSenderMismatch, errors.Cause(err))

	_, err = e.send(r.smt[1], r.contract, "selfDestruct", nil)
	require.Equal(ErrUnknownMethod, errors.Cause(err))

	_, err = e.send(r.smt[1], r.pob, MethodVoteSmt, map[string]string{"project": projA.Hex()})
	require.Equal(ErrWrongTarget, errors.Cause(err))

	_, err = e.send(r.smt[1], r.contract, MethodVoteSmt, map[string]string{"project": "nope"})
	require.Equal(ErrBadArgument, errors.Cause(err))

	_, err = e.send(r.hic, r.contract, MethodVoteSmt, map[string]string{"project": projA.Hex()})
	require.Equal(voting.ErrNotSmtVoter, errors.Cause(err))

	// a failed call does not burn the nonce
	nonce := e.s.NextNonce(e.cs.Address(r.hic))
	_, err = e.send(r.hic, r.contract, MethodVoteDaoHic, map[string]string{"project": projB.Hex()})
	require.NoError(err)
	require.Equal(nonce+1, e.s.NextNonce(e.cs.Address(r.hic)))

	_, err = e.send(r.smt[1], r.contract, MethodActivate, nil)
	require.Equal(voting.ErrOwnerOnly, errors.Cause(err))

	require.Equal(height+2, e.s.Ledger().Height())
}

func TestBadgeMinting(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	pob, err := e.s.DeployBadge(e.ctx, 1)
	require.NoError(err)

	k := e.key()
	_, err = e.send(k, pob, MethodMintBadge, map[string]string{"role": "smt"})
	require.Equal(ErrNotDeployer, errors.Cause(err))
	_, err = e.send(k, pob, MethodMintBadge, map[string]string{"role": "wizard"})
	require.Equal(ErrBadArgument, errors.Cause(err))

	other := e.cs.Address(e.key())
	e.admin(pob, MethodMintBadge, map[string]string{"role": "dao_hic", "to": other.Hex()})
	_, err = e.send(k, pob, MethodMintBadge, nil)
	require.NoError(err)
}

func TestRegistryOperationsGoThroughLedger(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	reg := e.s.Registry().Address()

	outsider := e.key()
	_, err := e.send(outsider, reg, MethodRegisterIteration, map[string]string{"iteration": "1", "chainId": "1"})
	require.Equal(registry.ErrOwnerOnly, errors.Cause(err))

	receipt := e.admin(reg, MethodRegisterIteration, map[string]string{"iteration": "1", "chainId": "1"})
	require.Equal(registry.EventIterationRegistered, receipt.Events[0].Name)

	_, err = e.s.ExecuteAsAdmin(e.ctx, reg, MethodSetAdapter, map[string]string{"version": "1", "adapter": projA.Hex()})
	require.Equal(ErrBadArgument, errors.Cause(err))

	_, err = e.s.ExecuteAsAdmin(e.ctx, reg, MethodAddRound, map[string]string{
		"iteration": "1", "round": "1", "contract": projA.Hex(),
	})
	require.Equal(ErrUnknownRound, errors.Cause(err))

	_, err = e.s.ExecuteAsAdmin(e.ctx, common.Address{}, MethodDeployRegistry, nil)
	require.Equal(ErrRegistryExists, errors.Cause(err))

	_, err = e.s.DeployAdapter(e.ctx, "v9")
	require.Equal(ErrUnknownGeneration, errors.Cause(err))
}

func TestPreviousRounds(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	r := e.setupRound()
	e.castVotes(r)

	second, err := e.s.DeployRound(e.ctx, 1, 2, 3, "v3", r.pob)
	require.NoError(err)

	prev, err := NewResultsService(e.s).PreviousRounds(second)
	require.NoError(err)
	require.Len(prev, 1)
	require.Equal(r.contract, prev[0].Contract)
	require.Equal(projA, prev[0].Winner.Project)

	a, rd, err := e.s.AdapterForContract(second)
	require.NoError(err)
	require.Equal(uint64(2), rd.Round)
	require.False(a.IsActive(e.s.Now()))
}

func TestFailedPersistLeavesNoTrace(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{SnapshotFiles: true})
	r := e.setupRound()
	e.castVotes(r)

	results := NewResultsService(e.s)
	before, err := results.RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	height := e.s.Ledger().Height()
	deployments := len(e.s.Ledger().Deployments())
	adapters := len(e.s.Catalog().Addresses())
	iterations := e.s.Registry().IterationCount()
	smt := e.cs.Address(r.smt[2])
	nonce := e.s.NextNonce(smt)
	adminNonce := e.s.NextNonce(e.s.AdminAddress())

	e.store.down = true
	revote := e.signed(r.smt[2], r.contract, MethodVoteSmt, map[string]string{"project": projA.Hex()})
	_, err = e.s.Execute(e.ctx, revote)
	require.Error(err)
	_, err = e.send(r.member, r.pob, MethodClaimBadge, map[string]string{"tokenId": "1"})
	require.Error(err)
	_, err = e.s.ExecuteAsAdmin(e.ctx, e.s.Registry().Address(), MethodRegisterIteration, map[string]string{"iteration": "2", "chainId": "1"})
	require.Error(err)
	_, err = e.s.DeployAdapter(e.ctx, "v1")
	require.Error(err)
	_, err = e.s.DeployBadge(e.ctx, 2)
	require.Error(err)

	after, err := results.RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	require.Equal(before, after)
	require.Equal(height, e.s.Ledger().Height())
	require.Equal(nonce, e.s.NextNonce(smt))
	require.Equal(adminNonce, e.s.NextNonce(e.s.AdminAddress()))
	require.Equal(deployments, len(e.s.Ledger().Deployments()))
	require.Equal(adapters, len(e.s.Catalog().Addresses()))
	require.Equal(iterations, e.s.Registry().IterationCount())
	a, _, err := e.s.Adapter(1, 1)
	require.NoError(err)
	voted, err := a.EntityVoteOf(models.EntitySMT, smt)
	require.NoError(err)
	require.Equal(projB, voted)
	claimed, err := a.Claimed(1)
	require.NoError(err)
	require.False(claimed)

	// the same transaction goes through once the store recovers
	e.store.down = false
	_, err = e.s.Execute(e.ctx, revote)
	require.NoError(err)
	require.Equal(height+1, e.s.Ledger().Height())

	updated, err := results.RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	restarted, err := NewResultsService(e.open()).RoundResults(1, 1, adapter.NoOverride)
	require.NoError(err)
	require.Equal(updated, restarted)
}

func TestBadgeSharedByRounds(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, Config{})
	r := e.setupRound()

	// a second round gated on the same badge must not lift the first round's gate
	_, err := e.s.DeployRound(e.ctx, 1, 2, 3, "v3", r.pob)
	require.NoError(err)

	holder := e.cs.Address(e.key())
	transfer := map[string]string{"to": holder.Hex(), "tokenId": "1"}
	_, err = e.send(r.member, r.pob, MethodTransferBadge, transfer)
	require.Equal(badge.ErrTransferWhileActive, errors.Cause(err))

	a, _, err := e.s.Adapter(1, 1)
	require.NoError(err)
	require.True(a.IsActive(e.s.Now()))

	e.clock.Advance(e.cfg.VotingDuration)
	require.False(a.IsActive(e.s.Now()))
	_, err = e.send(r.member, r.pob, MethodTransferBadge, transfer)
	require.NoError(err)
}
