package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/adapter"
	"pob-voting/badge"
	"pob-voting/chain"
	"pob-voting/models"
	"pob-voting/pkg/log"
	"pob-voting/registry"
	"pob-voting/signing"
	"pob-voting/storage"
	"pob-voting/voting"
)

// Contract kinds recorded with each deployment.
const (
	KindRegistry = "registry"
	KindBadge    = "badge"
	KindAdapter  = "adapter"
	KindJury     = "jury"
)

type Config struct {
	DataDir        string
	ChainID        string
	VotingDuration time.Duration
	// SnapshotFiles writes registry and badge JSON snapshots into DataDir.
	SnapshotFiles bool
	ModeOverrides map[RoundKey]models.VotingMode
}

// RoundKey identifies a round within the program.
type RoundKey struct {
	Iteration uint64
	Round     uint64
}

func (k RoundKey) String() string { return fmt.Sprintf("%d/%d", k.Iteration, k.Round) }

// adapterDeployment is what the ledger stores for a deployed adapter.
type adapterDeployment struct {
	Generation string
}

type VotingService struct {
	cfg      Config
	crypto   *signing.CryptoService
	ledger   *chain.Ledger
	verifier *TxVerifier
	catalog  *adapter.Catalog
	metrics  *MetricsCollector
	logger   *zap.Logger

	adminKey *ecdsa.PrivateKey
	adminMu  sync.Mutex

	regMu    sync.RWMutex
	registry *registry.Registry
}

// NewVotingService opens the ledger in store, replays it and deploys the
// round registry on a fresh chain.
func NewVotingService(ctx context.Context, cfg Config, store storage.Store, clock chain.Clock) (*VotingService, error) {
	if cfg.ChainID == "" {
		cfg.ChainID = "ledger"
	}
	if cfg.VotingDuration <= 0 {
		cfg.VotingDuration = 48 * time.Hour
	}
	cs := signing.NewCryptoService()
	adminKey, err := loadOrGenerateAdminKey(cs, cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup admin key")
	}
	ledger, err := chain.New(cfg.ChainID, store, clock)
	if err != nil {
		return nil, err
	}
	s := &VotingService{
		cfg:      cfg,
		crypto:   cs,
		ledger:   ledger,
		verifier: NewTxVerifier(cs, Methods()),
		catalog:  adapter.NewCatalog(),
		metrics:  NewMetricsCollector(),
		logger:   log.Logger("service"),
		adminKey: adminKey,
	}

	ledger.Track(s.verifier)
	ledger.Track(s.catalog)
	ledger.Track(registrySlot{s})

	if err := ledger.Replay(ctx, func(ctx context.Context, entry chain.Entry) error {
		_, err := s.apply(ctx, entry.Tx)
		return err
	}); err != nil {
		return nil, err
	}

	if s.Registry() == nil {
		if _, err := s.ExecuteAsAdmin(ctx, common.Address{}, MethodDeployRegistry, nil); err != nil {
			return nil, errors.Wrap(err, "failed to deploy round registry")
		}
	}
	s.logger.Info("voting service ready",
		zap.String("admin", s.AdminAddress().Hex()),
		zap.String("registry", s.Registry().Address().Hex()),
		zap.Uint64("height", ledger.Height()))
	return s, nil
}

func (s *VotingService) Ledger() *chain.Ledger                { return s.ledger }
func (s *VotingService) Catalog() *adapter.Catalog            { return s.catalog }
func (s *VotingService) Metrics() *MetricsCollector           { return s.metrics }
func (s *VotingService) Crypto() *signing.CryptoService       { return s.crypto }
func (s *VotingService) AdminAddress() common.Address         { return s.crypto.Address(s.adminKey) }
func (s *VotingService) NextNonce(from common.Address) uint64 { return s.verifier.NextNonce(from) }

// registrySlot lets a failed registry deployment clear the service pointer.
type registrySlot struct{ s *VotingService }

func (r registrySlot) Checkpoint() func() {
	r.s.regMu.RLock()
	reg := r.s.registry
	r.s.regMu.RUnlock()
	return func() {
		r.s.regMu.Lock()
		defer r.s.regMu.Unlock()
		r.s.registry = reg
	}
}

// juryGate is the transfer gate of a badge contract: it is open while any
// deployed jury that counts the badge's votes is active.
type juryGate struct {
	ledger *chain.Ledger
	badge  common.Address
}

type gatedJury interface {
	PobAddress() common.Address
	IsActive(now time.Time) bool
}

func (g juryGate) IsActive(now time.Time) bool {
	for _, d := range g.ledger.Deployments() {
		if d.Kind != KindJury {
			continue
		}
		j, ok := d.Contract.(gatedJury)
		if ok && j.PobAddress() == g.badge && j.IsActive(now) {
			return true
		}
	}
	return false
}

func (s *VotingService) Registry() *registry.Registry {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.registry
}

// Execute verifies a signed transaction and commits it to the ledger.
func (s *VotingService) Execute(ctx context.Context, tx models.Transaction) (*models.Receipt, error) {
	start := time.Now()
	label := methodLabel(tx.Method)
	s.metrics.RecordStart(label)

	receipt, err := s.execute(ctx, tx)

	s.metrics.RecordEnd(label, time.Since(start), err)
	if err != nil {
		s.logger.Debug("transaction rejected",
			zap.String("method", tx.Method),
			zap.String("from", tx.From.Hex()),
			zap.Error(err))
		return nil, err
	}
	if entity, ok := voteEntity[tx.Method]; ok {
		votesTotal.WithLabelValues(entity).Inc()
	}
	return receipt, nil
}

func (s *VotingService) execute(ctx context.Context, tx models.Transaction) (*models.Receipt, error) {
	if err := s.verifier.Verify(tx); err != nil {
		return nil, err
	}
	return s.apply(ctx, tx)
}

// apply runs an authenticated transaction. Replay calls it directly.
func (s *VotingService) apply(ctx context.Context, tx models.Transaction) (*models.Receipt, error) {
	if _, ok := deployMethods[tx.Method]; ok {
		return s.deploy(ctx, tx)
	}
	h, ok := handlers[tx.Method]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMethod, "%q", tx.Method)
	}
	target, ok := s.ledger.Contract(tx.To)
	if !ok {
		return nil, errors.Wrapf(chain.ErrUnknownContract, "%s", tx.To.Hex())
	}
	return s.ledger.Submit(ctx, tx, func(vtx voting.Tx) error {
		if err := s.verifier.CheckNonce(tx.From, tx.Nonce); err != nil {
			return err
		}
		if err := h(s, vtx, target, args(tx.Args)); err != nil {
			return err
		}
		s.verifier.Commit(tx.From, tx.Nonce)
		return nil
	})
}

func (s *VotingService) deploy(ctx context.Context, tx models.Transaction) (*models.Receipt, error) {
	a := args(tx.Args)
	var (
		kind  string
		build chain.BuildFunc
	)
	switch tx.Method {
	case MethodDeployRegistry:
		kind, build = KindRegistry, s.buildRegistry
	case MethodDeployBadge:
		kind, build = KindBadge, func(addr common.Address, vtx voting.Tx) (any, error) {
			return s.buildBadge(addr, a)
		}
	case MethodDeployJury:
		kind, build = KindJury, func(addr common.Address, vtx voting.Tx) (any, error) {
			return s.buildJury(addr, vtx, a)
		}
	case MethodDeployAdapter:
		kind, build = KindAdapter, func(addr common.Address, vtx voting.Tx) (any, error) {
			return s.buildAdapter(addr, a)
		}
	}
	return s.ledger.Deploy(ctx, tx, kind, func(addr common.Address, vtx voting.Tx) (any, error) {
		if err := s.verifier.CheckNonce(tx.From, tx.Nonce); err != nil {
			return nil, err
		}
		c, err := build(addr, vtx)
		if err != nil {
			return nil, err
		}
		s.verifier.Commit(tx.From, tx.Nonce)
		return c, nil
	})
}

func (s *VotingService) snapshotPath(name string) string {
	if !s.cfg.SnapshotFiles || s.cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(s.cfg.DataDir, name)
}

func (s *VotingService) buildRegistry(addr common.Address, vtx voting.Tx) (any, error) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	if s.registry != nil {
		return nil, ErrRegistryExists
	}
	path := s.snapshotPath("rounds.json")
	r, err := registry.NewRegistry(registry.RegistryConfig{
		Address:  addr,
		Owner:    vtx.From,
		FilePath: path,
		AutoSave: path != "",
	}, s.ledger)
	if err != nil {
		return nil, err
	}
	s.registry = r
	return r, nil
}

func (s *VotingService) buildBadge(addr common.Address, a args) (any, error) {
	iteration, err := a.uint("iteration")
	if err != nil {
		return nil, err
	}
	path := s.snapshotPath(fmt.Sprintf("badges_%s.json", addr.Hex()))
	pob, err := badge.NewRegistry(badge.RegistryConfig{
		Address:   addr,
		Iteration: iteration,
		FilePath:  path,
		AutoSave:  path != "",
	})
	if err != nil {
		return nil, err
	}
	pob.Bind(juryGate{ledger: s.ledger, badge: addr})
	return pob, nil
}

func (s *VotingService) buildJury(addr common.Address, vtx voting.Tx, a args) (any, error) {
	badgeAddr, err := a.address("badge")
	if err != nil {
		return nil, err
	}
	c, ok := s.ledger.Contract(badgeAddr)
	if !ok {
		return nil, errors.Wrapf(chain.ErrUnknownContract, "badge %s", badgeAddr.Hex())
	}
	pob, ok := c.(*badge.Registry)
	if !ok {
		return nil, errors.Wrapf(ErrBadArgument, "%s is not a badge contract", badgeAddr.Hex())
	}
	duration, err := a.duration("duration", s.cfg.VotingDuration)
	if err != nil {
		return nil, err
	}
	iteration, err := a.uintOr("iteration", pob.Iteration())
	if err != nil {
		return nil, err
	}
	cfg := voting.Config{
		Address:   addr,
		Owner:     vtx.From,
		Iteration: iteration,
		Duration:  duration,
		Badge:     pob,
	}

	var jury any
	switch gen := a["generation"]; gen {
	case "v1":
		jury, err = voting.NewJuryV1(cfg)
	case "v2":
		jury, err = voting.NewJuryV2(cfg)
	case "v3", "":
		jury, err = voting.NewJuryV3(cfg)
	default:
		return nil, errors.Wrapf(ErrUnknownGeneration, "%q", gen)
	}
	if err != nil {
		return nil, err
	}
	return jury, nil
}

func (s *VotingService) buildAdapter(addr common.Address, a args) (any, error) {
	gen, err := a.raw("generation")
	if err != nil {
		return nil, err
	}
	build, ok := adapter.Generations[gen]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownGeneration, "%q", gen)
	}
	if err := s.catalog.Register(addr, gen, build); err != nil {
		return nil, err
	}
	return &adapterDeployment{Generation: gen}, nil
}

// ExecuteAsAdmin signs tx with the operator key and executes it.
func (s *VotingService) ExecuteAsAdmin(ctx context.Context, to common.Address, method string, kv map[string]string) (*models.Receipt, error) {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	tx := models.Transaction{
		To:     to,
		Method: method,
		Args:   kv,
		Nonce:  s.verifier.NextNonce(s.AdminAddress()),
	}
	if err := s.crypto.SignTx(&tx, s.adminKey); err != nil {
		return nil, err
	}
	return s.Execute(ctx, tx)
}

// DeployBadge deploys a badge contract for iteration.
func (s *VotingService) DeployBadge(ctx context.Context, iteration uint64) (common.Address, error) {
	r, err := s.ExecuteAsAdmin(ctx, common.Address{}, MethodDeployBadge, map[string]string{
		"iteration": strconv.FormatUint(iteration, 10),
	})
	if err != nil {
		return common.Address{}, err
	}
	return r.To, nil
}

// DeployJury deploys a voting contract of the given generation.
func (s *VotingService) DeployJury(ctx context.Context, generation string, pob common.Address, duration time.Duration) (common.Address, error) {
	kv := map[string]string{"generation": generation, "badge": pob.Hex()}
	if duration > 0 {
		kv["duration"] = duration.String()
	}
	r, err := s.ExecuteAsAdmin(ctx, common.Address{}, MethodDeployJury, kv)
	if err != nil {
		return common.Address{}, err
	}
	return r.To, nil
}

// DeployAdapter deploys an adapter for a contract generation.
func (s *VotingService) DeployAdapter(ctx context.Context, generation string) (common.Address, error) {
	r, err := s.ExecuteAsAdmin(ctx, common.Address{}, MethodDeployAdapter, map[string]string{"generation": generation})
	if err != nil {
		return common.Address{}, err
	}
	return r.To, nil
}

// DeployRound deploys a jury and registers it as the next round of
// iteration under version.
func (s *VotingService) DeployRound(ctx context.Context, iteration, round, version uint64, generation string, pob common.Address) (common.Address, error) {
	contract, err := s.DeployJury(ctx, generation, pob, 0)
	if err != nil {
		return common.Address{}, err
	}
	reg := s.Registry().Address()
	hint := strconv.FormatUint(s.ledger.Height(), 10)
	if _, err := s.ExecuteAsAdmin(ctx, reg, MethodAddRound, map[string]string{
		"iteration":       strconv.FormatUint(iteration, 10),
		"round":           strconv.FormatUint(round, 10),
		"contract":        contract.Hex(),
		"deployBlockHint": hint,
	}); err != nil {
		return common.Address{}, err
	}
	if _, err := s.ExecuteAsAdmin(ctx, reg, MethodSetRoundVersion, map[string]string{
		"iteration": strconv.FormatUint(iteration, 10),
		"round":     strconv.FormatUint(round, 10),
		"version":   strconv.FormatUint(version, 10),
	}); err != nil {
		return common.Address{}, err
	}
	return contract, nil
}

// Adapter resolves a round to its voting contract wrapped by the adapter of
// the round's version.
func (s *VotingService) Adapter(iteration, round uint64) (adapter.Adapter, registry.Round, error) {
	r := s.Registry()
	contract, adapterAddr, err := r.GetAdapterConfig(iteration, round)
	if err != nil {
		return nil, registry.Round{}, err
	}
	rd, err := r.GetRound(iteration, round)
	if err != nil {
		return nil, registry.Round{}, err
	}
	c, ok := s.ledger.Contract(contract)
	if !ok {
		return nil, rd, errors.Wrapf(ErrUnknownRound, "%s", contract.Hex())
	}
	a, err := s.catalog.Bind(adapterAddr, c)
	if err != nil {
		return nil, rd, err
	}
	return a, rd, nil
}

// AdapterForContract is Adapter keyed by voting contract address.
func (s *VotingService) AdapterForContract(contract common.Address) (adapter.Adapter, registry.Round, error) {
	rd, err := s.Registry().GetRoundByContract(contract)
	if err != nil {
		return nil, registry.Round{}, err
	}
	return s.Adapter(rd.Iteration, rd.Round)
}

// ModeOverride is the configured read-side mode for a round.
func (s *VotingService) ModeOverride(iteration, round uint64) adapter.ModeOverride {
	if m, ok := s.cfg.ModeOverrides[RoundKey{iteration, round}]; ok {
		return adapter.Override(m)
	}
	return adapter.NoOverride
}

// View runs fn against a state no transaction is modifying.
func (s *VotingService) View(fn func() error) error {
	return s.ledger.View(fn)
}

func (s *VotingService) Now() time.Time {
	return s.ledger.Now()
}
