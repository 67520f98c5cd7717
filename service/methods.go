package service

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/badge"
	"pob-voting/models"
	"pob-voting/registry"
	"pob-voting/voting"
)

// Transaction methods accepted by the ledger.
const (
	MethodDeployRegistry = "deployRegistry"
	MethodDeployBadge    = "deployBadge"
	MethodDeployJury     = "deployJury"
	MethodDeployAdapter  = "deployAdapter"

	MethodRegisterProject        = "registerProject"
	MethodRemoveProject          = "removeProject"
	MethodAddDaoHicVoter         = "addDaoHicVoter"
	MethodRemoveDaoHicVoter      = "removeDaoHicVoter"
	MethodAddSmtVoter            = "addSmtVoter"
	MethodRemoveSmtVoter         = "removeSmtVoter"
	MethodSetDevRelAccount       = "setDevRelAccount"
	MethodRemoveDevRelAccount    = "removeDevRelAccount"
	MethodVoteDevRel             = "voteDevRel"
	MethodVoteSmt                = "voteSmt"
	MethodVoteDaoHic             = "voteDaoHic"
	MethodVoteCommunity          = "voteCommunity"
	MethodActivate               = "activate"
	MethodCloseManually          = "closeManually"
	MethodLockContractForHistory = "lockContractForHistory"
	MethodTransferOwnership      = "transferOwnership"
	MethodSetVotingMode          = "setVotingMode"
	MethodUpgradeTo              = "upgradeTo"

	MethodRegisterIteration = "registerIteration"
	MethodAddRound          = "addRound"
	MethodSetAdapter        = "setAdapter"
	MethodSetRoundVersion   = "setRoundVersion"

	MethodMintBadge     = "mintBadge"
	MethodTransferBadge = "transferBadge"
	MethodClaimBadge    = "claimBadge"
)

type handler func(s *VotingService, tx voting.Tx, target any, a args) error

// voteEntity labels vote methods for the votes metric.
var voteEntity = map[string]string{
	MethodVoteDevRel:    models.EntityDevRel.String(),
	MethodVoteSmt:       models.EntitySMT.String(),
	MethodVoteDaoHic:    models.EntityDAOHIC.String(),
	MethodVoteCommunity: models.EntityCommunity.String(),
}

type projectAdmin interface {
	RegisterProject(tx voting.Tx, addr common.Address) error
	RemoveProject(tx voting.Tx, addr common.Address) error
}

type daoHicJury interface {
	AddDaoHicVoter(tx voting.Tx, addr common.Address) error
	RemoveDaoHicVoter(tx voting.Tx, addr common.Address) error
	VoteDaoHic(tx voting.Tx, project common.Address) error
}

type communityJury interface {
	VoteCommunity(tx voting.Tx, tokenID uint64, project common.Address) error
}

type lifecycleAdmin interface {
	Activate(tx voting.Tx) error
	CloseManually(tx voting.Tx) error
	LockContractForHistory(tx voting.Tx) error
	TransferOwnership(tx voting.Tx, newOwner common.Address) error
}

type smtJury interface {
	AddSmtVoter(tx voting.Tx, addr common.Address) error
	RemoveSmtVoter(tx voting.Tx, addr common.Address) error
	VoteSmt(tx voting.Tx, project common.Address) error
}

type devRelJury interface {
	SetDevRelAccount(tx voting.Tx, addr common.Address) error
	RemoveDevRelAccount(tx voting.Tx) error
	VoteDevRel(tx voting.Tx, project common.Address) error
}

type modalJury interface {
	SetVotingMode(tx voting.Tx, mode models.VotingMode) error
	UpgradeTo(tx voting.Tx, impl common.Address) error
}

func as[T any](target any, method string) (T, error) {
	t, ok := target.(T)
	if !ok {
		return t, errors.Wrapf(ErrWrongTarget, "%s on %T", method, target)
	}
	return t, nil
}

// withAddress adapts a single-address contract call into a handler.
func withAddress[T any](method, key string, call func(T, voting.Tx, common.Address) error) handler {
	return func(_ *VotingService, tx voting.Tx, target any, a args) error {
		c, err := as[T](target, method)
		if err != nil {
			return err
		}
		addr, err := a.address(key)
		if err != nil {
			return err
		}
		return call(c, tx, addr)
	}
}

func withoutArgs[T any](method string, call func(T, voting.Tx) error) handler {
	return func(_ *VotingService, tx voting.Tx, target any, _ args) error {
		c, err := as[T](target, method)
		if err != nil {
			return err
		}
		return call(c, tx)
	}
}

var handlers = map[string]handler{
	MethodRegisterProject: withAddress(MethodRegisterProject, "project", projectAdmin.RegisterProject),
	MethodRemoveProject:   withAddress(MethodRemoveProject, "project", projectAdmin.RemoveProject),

	MethodAddDaoHicVoter:    withAddress(MethodAddDaoHicVoter, "voter", daoHicJury.AddDaoHicVoter),
	MethodRemoveDaoHicVoter: withAddress(MethodRemoveDaoHicVoter, "voter", daoHicJury.RemoveDaoHicVoter),
	MethodVoteDaoHic:        withAddress(MethodVoteDaoHic, "project", daoHicJury.VoteDaoHic),

	MethodAddSmtVoter:    withAddress(MethodAddSmtVoter, "voter", smtJury.AddSmtVoter),
	MethodRemoveSmtVoter: withAddress(MethodRemoveSmtVoter, "voter", smtJury.RemoveSmtVoter),
	MethodVoteSmt:        withAddress(MethodVoteSmt, "project", smtJury.VoteSmt),

	MethodSetDevRelAccount:    withAddress(MethodSetDevRelAccount, "account", devRelJury.SetDevRelAccount),
	MethodRemoveDevRelAccount: withoutArgs(MethodRemoveDevRelAccount, devRelJury.RemoveDevRelAccount),
	MethodVoteDevRel:          withAddress(MethodVoteDevRel, "project", devRelJury.VoteDevRel),

	MethodVoteCommunity: func(_ *VotingService, tx voting.Tx, target any, a args) error {
		c, err := as[communityJury](target, MethodVoteCommunity)
		if err != nil {
			return err
		}
		tokenID, err := a.uint("tokenId")
		if err != nil {
			return err
		}
		project, err := a.address("project")
		if err != nil {
			return err
		}
		return c.VoteCommunity(tx, tokenID, project)
	},

	MethodActivate:               withoutArgs(MethodActivate, lifecycleAdmin.Activate),
	MethodCloseManually:          withoutArgs(MethodCloseManually, lifecycleAdmin.CloseManually),
	MethodLockContractForHistory: withoutArgs(MethodLockContractForHistory, lifecycleAdmin.LockContractForHistory),
	MethodTransferOwnership:      withAddress(MethodTransferOwnership, "newOwner", lifecycleAdmin.TransferOwnership),

	MethodSetVotingMode: func(_ *VotingService, tx voting.Tx, target any, a args) error {
		c, err := as[modalJury](target, MethodSetVotingMode)
		if err != nil {
			return err
		}
		mode, err := a.mode("mode")
		if err != nil {
			return err
		}
		return c.SetVotingMode(tx, mode)
	},
	MethodUpgradeTo: withAddress(MethodUpgradeTo, "implementation", modalJury.UpgradeTo),

	MethodRegisterIteration: func(_ *VotingService, tx voting.Tx, target any, a args) error {
		r, err := as[*registry.Registry](target, MethodRegisterIteration)
		if err != nil {
			return err
		}
		id, err := a.uint("iteration")
		if err != nil {
			return err
		}
		chainID, err := a.uint("chainId")
		if err != nil {
			return err
		}
		return r.RegisterIteration(tx, id, chainID)
	},
	MethodAddRound: func(s *VotingService, tx voting.Tx, target any, a args) error {
		r, err := as[*registry.Registry](target, MethodAddRound)
		if err != nil {
			return err
		}
		it, err := a.uint("iteration")
		if err != nil {
			return err
		}
		rd, err := a.uint("round")
		if err != nil {
			return err
		}
		contract, err := a.address("contract")
		if err != nil {
			return err
		}
		if _, ok := s.ledger.Contract(contract); !ok {
			return errors.Wrapf(ErrUnknownRound, "%s", contract.Hex())
		}
		hint, err := a.uintOr("deployBlockHint", 0)
		if err != nil {
			return err
		}
		if err := r.AddRound(tx, it, rd, contract, hint); err != nil {
			return err
		}
		roundsRegistered.Set(float64(r.RoundCount()))
		return nil
	},
	MethodSetAdapter: func(s *VotingService, tx voting.Tx, target any, a args) error {
		r, err := as[*registry.Registry](target, MethodSetAdapter)
		if err != nil {
			return err
		}
		version, err := a.uint("version")
		if err != nil {
			return err
		}
		addr, err := a.address("adapter")
		if err != nil {
			return err
		}
		if _, ok := s.catalog.Name(addr); !ok {
			return errors.Wrapf(ErrBadArgument, "%s is not a deployed adapter", addr.Hex())
		}
		return r.SetAdapter(tx, version, addr)
	},
	MethodSetRoundVersion: func(_ *VotingService, tx voting.Tx, target any, a args) error {
		r, err := as[*registry.Registry](target, MethodSetRoundVersion)
		if err != nil {
			return err
		}
		it, err := a.uint("iteration")
		if err != nil {
			return err
		}
		rd, err := a.uint("round")
		if err != nil {
			return err
		}
		version, err := a.uint("version")
		if err != nil {
			return err
		}
		return r.SetRoundVersion(tx, it, rd, version)
	},

	MethodMintBadge: func(s *VotingService, tx voting.Tx, target any, a args) error {
		b, err := as[*badge.Registry](target, MethodMintBadge)
		if err != nil {
			return err
		}
		role, err := a.role("role", models.RoleCommunity)
		if err != nil {
			return err
		}
		to := tx.From
		if _, ok := a["to"]; ok {
			if to, err = a.address("to"); err != nil {
				return err
			}
		}
		// Anyone may mint a community badge for themselves; everything else
		// is issued by the deployer.
		if role != models.RoleCommunity || to != tx.From {
			d, _ := s.ledger.Deployment(b.Address())
			if d.Deployer != tx.From {
				return ErrNotDeployer
			}
		}
		_, err = b.Mint(to, role, tx.Time)
		return err
	},
	MethodTransferBadge: func(_ *VotingService, tx voting.Tx, target any, a args) error {
		b, err := as[*badge.Registry](target, MethodTransferBadge)
		if err != nil {
			return err
		}
		to, err := a.address("to")
		if err != nil {
			return err
		}
		tokenID, err := a.uint("tokenId")
		if err != nil {
			return err
		}
		return b.Transfer(tx.From, to, tokenID, tx.Time)
	},
	MethodClaimBadge: func(_ *VotingService, tx voting.Tx, target any, a args) error {
		b, err := as[*badge.Registry](target, MethodClaimBadge)
		if err != nil {
			return err
		}
		tokenID, err := a.uint("tokenId")
		if err != nil {
			return err
		}
		return b.Claim(tx.From, tokenID)
	},
}

var deployMethods = map[string]struct{}{
	MethodDeployRegistry: {},
	MethodDeployBadge:    {},
	MethodDeployJury:     {},
	MethodDeployAdapter:  {},
}

// Methods lists every method name the verifier accepts.
func Methods() []string {
	out := make([]string, 0, len(handlers)+len(deployMethods))
	for m := range handlers {
		out = append(out, m)
	}
	for m := range deployMethods {
		out = append(out, m)
	}
	return out
}

// methodLabel keeps unknown method names out of metric labels.
func methodLabel(method string) string {
	if _, ok := handlers[method]; ok {
		return method
	}
	if _, ok := deployMethods[method]; ok {
		return method
	}
	return "unknown"
}
