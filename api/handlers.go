package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pob-voting/adapter"
	"pob-voting/chain"
	"pob-voting/models"
	"pob-voting/voting"
)

// TxRequest is the body of POST /api/tx.
type TxRequest struct {
	From      common.Address    `json:"from"`
	To        common.Address    `json:"to"`
	Method    string            `json:"method"`
	Args      map[string]string `json:"args,omitempty"`
	Nonce     uint64            `json:"nonce"`
	Signature hexutil.Bytes     `json:"signature"`
}

func (r TxRequest) transaction() models.Transaction {
	return models.Transaction{
		From:      r.From,
		To:        r.To,
		Method:    r.Method,
		Args:      r.Args,
		Nonce:     r.Nonce,
		Signature: r.Signature,
	}
}

type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

type RegistryResponse struct {
	Address    common.Address            `json:"address"`
	Owner      common.Address            `json:"owner"`
	Iterations uint64                    `json:"iterations"`
	Rounds     int                       `json:"rounds"`
	Adapters   map[uint64]common.Address `json:"adapters"`
}

type ChainResponse struct {
	ChainID     string             `json:"chain_id"`
	Height      uint64             `json:"height"`
	LastHash    string             `json:"last_hash"`
	Deployments []chain.Deployment `json:"deployments"`
}

type BlockResponse struct {
	Block *models.Block `json:"block"`
	Entry *chain.Entry  `json:"entry,omitempty"`
}

type ValidationResponse struct {
	IsValid bool   `json:"is_valid"`
	Height  uint64 `json:"height"`
	Error   string `json:"error,omitempty"`
}

func pathUint(r *http.Request, key string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s", key)
	}
	return v, nil
}

func pathAddress(r *http.Request, key string) (common.Address, error) {
	v := mux.Vars(r)[key]
	if !common.IsHexAddress(v) {
		return common.Address{}, errors.Errorf("invalid %s", key)
	}
	return common.HexToAddress(v), nil
}

func pathRound(r *http.Request) (uint64, uint64, error) {
	it, err := pathUint(r, "iteration")
	if err != nil {
		return 0, 0, err
	}
	rd, err := pathUint(r, "round")
	if err != nil {
		return 0, 0, err
	}
	return it, rd, nil
}

// parseEntity accepts an entity name or its index.
func parseEntity(s string) (models.EntityID, error) {
	switch strings.ToLower(s) {
	case "smt", "devrel":
		return models.EntitySMT, nil
	case "dao_hic", "daohic":
		return models.EntityDAOHIC, nil
	case "community":
		return models.EntityCommunity, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(adapter.ErrInvalidEntityID, "%q", s)
	}
	return models.EntityID(n), nil
}

// parseMode reads the optional ?mode= override.
func parseMode(r *http.Request) (adapter.ModeOverride, error) {
	v := r.URL.Query().Get("mode")
	if v == "" {
		return adapter.NoOverride, nil
	}
	mode, err := models.ParseVotingMode(v)
	if err != nil {
		return adapter.NoOverride, err
	}
	return adapter.Override(mode), nil
}

func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	var req TxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug("failed to decode transaction", zap.Error(err))
		badRequest(w, "invalid request body")
		return
	}
	if req.Method == "" {
		badRequest(w, "method is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SubmitTimeout)
	defer cancel()
	receipt, err := s.queue.Submit(ctx, req.transaction())
	if err != nil {
		s.logger.Info("transaction rejected",
			zap.String("method", req.Method),
			zap.Stringer("from", req.From),
			zap.Error(err))
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetNonce(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Address: addr, Nonce: s.votingService.NextNonce(addr)})
}

func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	reg := s.votingService.Registry()
	resp := RegistryResponse{
		Address:    reg.Address(),
		Owner:      reg.Owner(),
		Iterations: reg.IterationCount(),
		Rounds:     reg.RoundCount(),
		Adapters:   make(map[uint64]common.Address),
	}
	for _, v := range reg.Versions() {
		if addr, ok := reg.Adapter(v); ok {
			resp.Adapters[v] = addr
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRounds(w http.ResponseWriter, r *http.Request) {
	it, err := pathUint(r, "iteration")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rounds, err := s.votingService.Registry().GetRounds(it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	it, rd, err := pathRound(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	round, err := s.votingService.Registry().GetRound(it, rd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	it, rd, err := pathRound(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	override, err := parseMode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.results.RoundResults(it, rd, override)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetEntityVoters(w http.ResponseWriter, r *http.Request) {
	it, rd, err := pathRound(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	entity, err := parseEntity(mux.Vars(r)["entity"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	voters, err := s.results.EntityVoters(it, rd, entity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voters)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	it, rd, err := pathRound(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	project, err := pathAddress(r, "project")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	override, err := parseMode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.results.RoundResults(it, rd, override)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, p := range res.Projects {
		if p.Project == project {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	s.writeError(w, r, errors.Wrapf(voting.ErrInvalidProject, "%s", project.Hex()))
}

func (s *Server) handleGetRoundByContract(w http.ResponseWriter, r *http.Request) {
	contract, err := pathAddress(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	round, err := s.votingService.Registry().GetRoundByContract(contract)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleGetPreviousRounds(w http.ResponseWriter, r *http.Request) {
	contract, err := pathAddress(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	prev, err := s.results.PreviousRounds(contract)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prev)
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	l := s.votingService.Ledger()
	blocks := l.Blocks()
	resp := ChainResponse{
		ChainID:     l.ChainID(),
		Height:      blocks[len(blocks)-1].Index,
		LastHash:    hexutil.Encode(blocks[len(blocks)-1].Hash),
		Deployments: l.Deployments(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	index, err := pathUint(r, "index")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	blocks := s.votingService.Ledger().Blocks()
	if index >= uint64(len(blocks)) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "block not found"})
		return
	}
	resp := BlockResponse{Block: blocks[index]}
	if index > 0 {
		entry, err := s.votingService.Ledger().Entry(index)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Entry = &entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	l := s.votingService.Ledger()
	resp := ValidationResponse{IsValid: true, Height: l.Height()}
	if err := l.Validate(); err != nil {
		s.logger.Warn("chain validation failed", zap.Error(err))
		resp.IsValid = false
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.votingService.Metrics().GetMetrics())
}
