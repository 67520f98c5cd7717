package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"pob-voting/chain"
	"pob-voting/models"
	"pob-voting/registry"
	"pob-voting/service"
	"pob-voting/signing"
	"pob-voting/storage"
	"pob-voting/voting"
)

var (
	projA = common.HexToAddress("0x000000000000000000000000000000000000A000")
	projB = common.HexToAddress("0x000000000000000000000000000000000000B000")
)

type fixture struct {
	t        *testing.T
	vs       *service.VotingService
	cs       *signing.CryptoService
	ts       *httptest.Server
	contract common.Address
	smt      []*ecdsa.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewJSONStore(dir)
	require.NoError(err)
	vs, err := service.NewVotingService(ctx, service.Config{DataDir: dir, VotingDuration: time.Hour},
		store, chain.NewManualClock(time.Unix(1_700_000_000, 0)))
	require.NoError(err)

	qp := service.NewQueueProcessor(vs, 16, 0)
	qp.Start()
	t.Cleanup(qp.Stop)

	ts := httptest.NewServer(NewServer(Config{}, vs, qp).Handler())
	t.Cleanup(ts.Close)

	return &fixture{t: t, vs: vs, cs: vs.Crypto(), ts: ts}
}

func (f *fixture) admin(to common.Address, method string, kv map[string]string) {
	_, err := f.vs.ExecuteAsAdmin(context.Background(), to, method, kv)
	require.NoError(f.t, err, method)
}

// setupRound deploys an active v3 round with two projects and three SMT voters.
func (f *fixture) setupRound() {
	require := require.New(f.t)
	ctx := context.Background()
	reg := f.vs.Registry().Address()

	pob, err := f.vs.DeployBadge(ctx, 1)
	require.NoError(err)
	v3, err := f.vs.DeployAdapter(ctx, "v3")
	require.NoError(err)
	f.admin(reg, service.MethodSetAdapter, map[string]string{"version": "3", "adapter": v3.Hex()})
	f.admin(reg, service.MethodRegisterIteration, map[string]string{"iteration": "1", "chainId": "57073"})
	f.contract, err = f.vs.DeployRound(ctx, 1, 1, 3, "v3", pob)
	require.NoError(err)

	for _, p := range []common.Address{projA, projB} {
		f.admin(f.contract, service.MethodRegisterProject, map[string]string{"project": p.Hex()})
	}
	for i := 0; i < 3; i++ {
		k, err := f.cs.GenerateKeyPair()
		require.NoError(err)
		f.smt = append(f.smt, k)
		f.admin(f.contract, service.MethodAddSmtVoter, map[string]string{"voter": f.cs.Address(k).Hex()})
	}
	hic, err := f.cs.GenerateKeyPair()
	require.NoError(err)
	f.admin(f.contract, service.MethodAddDaoHicVoter, map[string]string{"voter": f.cs.Address(hic).Hex()})
	f.admin(f.contract, service.MethodActivate, nil)
}

func (f *fixture) txRequest(key *ecdsa.PrivateKey, method string, kv map[string]string) TxRequest {
	tx := models.Transaction{
		To:     f.contract,
		Method: method,
		Args:   kv,
		Nonce:  f.vs.NextNonce(f.cs.Address(key)),
	}
	require.NoError(f.t, f.cs.SignTx(&tx, key))
	return TxRequest{From: tx.From, To: tx.To, Method: tx.Method, Args: tx.Args, Nonce: tx.Nonce, Signature: tx.Signature}
}

func (f *fixture) post(body any, out any) int {
	b, err := json.Marshal(body)
	require.NoError(f.t, err)
	resp, err := f.ts.Client().Post(f.ts.URL+"/api/tx", "application/json", bytes.NewReader(b))
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) get(path string, out any) int {
	resp, err := f.ts.Client().Get(f.ts.URL + path)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSubmitTx(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.setupRound()

	vote := f.txRequest(f.smt[0], service.MethodVoteSmt, map[string]string{"project": projA.Hex()})
	var receipt models.Receipt
	require.Equal(http.StatusOK, f.post(vote, &receipt))
	require.Equal(f.contract, receipt.To)
	require.Equal(voting.EventVoted, receipt.Events[0].Name)

	var errResp errorResponse
	require.Equal(http.StatusConflict, f.post(vote, &errResp))
	require.Equal(service.ErrStaleNonce.Error(), errResp.Error)

	outsider, err := f.cs.GenerateKeyPair()
	require.NoError(err)
	bad := f.txRequest(outsider, service.MethodVoteSmt, map[string]string{"project": projA.Hex()})
	require.Equal(http.StatusForbidden, f.post(bad, &errResp))
	require.Equal(voting.ErrNotSmtVoter.Error(), errResp.Error)

	forged := f.txRequest(f.smt[1], service.MethodVoteSmt, map[string]string{"project": projB.Hex()})
	forged.From = f.cs.Address(outsider)
	require.Equal(http.StatusForbidden, f.post(forged, &errResp))

	unknown := f.txRequest(f.smt[1], "selfDestruct", nil)
	require.Equal(http.StatusBadRequest, f.post(unknown, &errResp))

	require.Equal(http.StatusBadRequest, f.post(map[string]any{"nonce": "x"}, &errResp))

	var nonce NonceResponse
	require.Equal(http.StatusOK, f.get("/api/nonce/"+f.cs.Address(f.smt[0]).Hex(), &nonce))
	require.Equal(uint64(1), nonce.Nonce)
}

func TestRoundQueries(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.setupRound()
	for i, p := range []common.Address{projA, projA, projB} {
		var receipt models.Receipt
		require.Equal(http.StatusOK, f.post(f.txRequest(f.smt[i], service.MethodVoteSmt, map[string]string{"project": p.Hex()}), &receipt))
	}

	var reg RegistryResponse
	require.Equal(http.StatusOK, f.get("/api/registry", &reg))
	require.Equal(f.vs.AdminAddress(), reg.Owner)
	require.Equal(uint64(1), reg.Iterations)
	require.Len(reg.Adapters, 1)

	var rounds []registry.Round
	require.Equal(http.StatusOK, f.get("/api/rounds/1", &rounds))
	require.Len(rounds, 1)
	require.Equal(f.contract, rounds[0].Contract)

	var round registry.Round
	require.Equal(http.StatusOK, f.get("/api/contracts/"+f.contract.Hex()+"/round", &round))
	require.Equal(uint64(1), round.Round)
	require.Equal(uint64(3), round.Version)

	var results service.RoundResults
	require.Equal(http.StatusOK, f.get("/api/rounds/1/1/results", &results))
	require.Equal(models.Consensus, results.Mode)
	require.Equal(uint64(3), results.Participation.SMT)
	require.Equal(projA, results.Entities[models.EntitySMT].Project)

	require.Equal(http.StatusOK, f.get("/api/rounds/1/1/results?mode=weighted", &results))
	require.Equal(models.Weighted, results.Mode)
	require.True(results.ModeOverridden)

	var project service.ProjectResult
	require.Equal(http.StatusOK, f.get("/api/rounds/1/1/projects/"+projA.Hex(), &project))
	require.Equal(uint64(2), project.Breakdown.SMT)

	var voters []service.VoterVote
	require.Equal(http.StatusOK, f.get("/api/rounds/1/1/entities/smt/voters", &voters))
	require.Len(voters, 3)

	var prev []*service.RoundResults
	require.Equal(http.StatusOK, f.get("/api/contracts/"+f.contract.Hex()+"/previous", &prev))
	require.Empty(prev)

	var errResp errorResponse
	require.Equal(http.StatusNotFound, f.get("/api/rounds/1/2", &errResp))
	require.Equal(registry.ErrRoundNotFound.Error(), errResp.Error)
	require.Equal(http.StatusNotFound, f.get("/api/rounds/2", &errResp))
	require.Equal(http.StatusNotFound, f.get("/api/rounds/1/1/projects/"+common.HexToAddress("0xdead").Hex(), &errResp))
	require.Equal(http.StatusBadRequest, f.get("/api/rounds/1/1/results?mode=bogus", &errResp))
	require.Equal(http.StatusBadRequest, f.get("/api/rounds/1/1/entities/community/voters", &errResp))
	require.Equal(http.StatusBadRequest, f.get("/api/rounds/x/1", &errResp))
	require.Equal(http.StatusBadRequest, f.get("/api/contracts/nothex/round", &errResp))
	require.Equal(http.StatusNotFound, f.get("/api/nowhere", &errResp))
}

func TestChainEndpoints(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.setupRound()

	var info ChainResponse
	require.Equal(http.StatusOK, f.get("/api/chain", &info))
	require.Equal(f.vs.Ledger().Height(), info.Height)
	require.NotEmpty(info.Deployments)

	var valid ValidationResponse
	require.Equal(http.StatusOK, f.get("/api/chain/validate", &valid))
	require.True(valid.IsValid)

	var genesis BlockResponse
	require.Equal(http.StatusOK, f.get("/api/chain/blocks/0", &genesis))
	require.Nil(genesis.Entry)

	var block BlockResponse
	require.Equal(http.StatusOK, f.get("/api/chain/blocks/1", &block))
	require.NotNil(block.Entry)
	require.Equal(service.MethodDeployRegistry, block.Entry.Tx.Method)

	var errResp errorResponse
	require.Equal(http.StatusNotFound, f.get("/api/chain/blocks/9999", &errResp))

	var ops []service.OperationMetrics
	require.Equal(http.StatusOK, f.get("/api/metrics", &ops))
	require.NotEmpty(ops)

	require.Equal(http.StatusOK, f.get("/metrics", nil))
}

func TestStatusOf(t *testing.T) {
	require := require.New(t)
	for err, code := range map[error]int{
		voting.ErrOwnerOnly:                                http.StatusForbidden,
		errors.Wrap(registry.ErrOwnerOnly, "registry"):     http.StatusForbidden,
		errors.Wrap(registry.ErrIterationNotFound, "id 3"): http.StatusNotFound,
		errors.Wrap(voting.ErrContractLocked, "vote"):      http.StatusConflict,
		voting.ErrAlreadyVoter:                             http.StatusConflict,
		errors.Wrap(service.ErrBadArgument, "project"):     http.StatusBadRequest,
		service.ErrQueueFull:                               http.StatusServiceUnavailable,
		errors.New("disk on fire"):                         http.StatusInternalServerError,
	} {
		require.Equal(code, statusOf(err), err.Error())
	}
}
